package model

import "time"

// Appointment is a scheduled consultation.
type Appointment struct {
	ID              string `json:"id,omitempty"`
	PatientID       string `json:"patientId"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
}

// Values returns the appointment as a field map for validation.
func (a Appointment) Values() map[string]string {
	return map[string]string{
		"patientId":       a.PatientID,
		"appointmentDate": a.AppointmentDate,
		"appointmentTime": a.AppointmentTime,
	}
}

// Visit is one recorded consultation of a patient.
type Visit struct {
	ID                 string `json:"_id,omitempty"`
	PatientID          string `json:"patientId,omitempty"`
	VisitNumber        string `json:"visitNumber,omitempty"`
	VisitDate          string `json:"visitDate,omitempty"`
	ConsultationReason string `json:"Consultation_Reason"`
}

// Medication is one line of a prescription.
type Medication struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Duration string `json:"duration"`
}

// Prescription belongs to a visit.
type Prescription struct {
	ID          string       `json:"_id,omitempty"`
	PatientID   string       `json:"patientId,omitempty"`
	VisitID     string       `json:"visitId,omitempty"`
	Medications []Medication `json:"Medications"`
}

// Notification is a server-side notice addressed to the practitioner.
type Notification struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry is one audit line from the API's history log.
type HistoryEntry struct {
	ID        string    `json:"_id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryVerbs maps the API's action names to the wording shown to users.
var HistoryVerbs = map[string]string{
	"Create": "create",
	"Update": "update",
	"Delete": "delete",
	"Read":   "view",
}

// Verb returns the display verb for the entry's action.
func (h HistoryEntry) Verb() string {
	if v, ok := HistoryVerbs[h.Action]; ok {
		return v
	}
	return h.Action
}

// Profile is the signed-in practitioner's account data.
type Profile struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	Specialty    string `json:"specialty"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

// Values returns the profile as a field map for validation.
func (p Profile) Values() map[string]string {
	return map[string]string{
		"firstName":   p.FirstName,
		"lastName":    p.LastName,
		"username":    p.Username,
		"email":       p.Email,
		"phoneNumber": p.PhoneNumber,
		"specialty":   p.Specialty,
	}
}

// Credentials are submitted on sign-in.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUp is the registration payload.
type SignUp struct {
	Profile
	Password string `json:"password"`
}

// AuthResult is returned by sign-in and sign-up.
type AuthResult struct {
	AccessToken string `json:"accessToken"`
	Profile
}

// PasswordChange is the authenticated password update payload.
type PasswordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// PasswordReset is the token-based password reset form.
type PasswordReset struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

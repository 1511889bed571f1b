package service

import (
	"context"
	"fmt"
	"strings"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/model"
	"clinicdesk/internal/session"
	"clinicdesk/internal/validation"
)

// ClinicAPI is the part of the Patient Records API client the clinic use
// cases call.
type ClinicAPI interface {
	ListPatients(ctx context.Context, sess session.Session) ([]model.Patient, error)
	UpdatePatient(ctx context.Context, sess session.Session, id string, upd model.PatientUpdate) error
	DeletePatient(ctx context.Context, sess session.Session, id string) error

	ListAppointments(ctx context.Context, sess session.Session) ([]model.Appointment, error)
	CreateAppointment(ctx context.Context, sess session.Session, a model.Appointment) error
	UpdateAppointment(ctx context.Context, sess session.Session, a model.Appointment) error
	DeleteAppointment(ctx context.Context, sess session.Session, patientID, id string) error

	ListVisits(ctx context.Context, sess session.Session, patientID, visitNumber string) ([]model.Visit, error)
	GetVisit(ctx context.Context, sess session.Session, patientID, visitID string) (model.Visit, error)
	UpdateVisit(ctx context.Context, sess session.Session, patientID, visitID string, v model.Visit) error

	ListPrescriptions(ctx context.Context, sess session.Session, patientID, visitID string) ([]model.Prescription, error)
	GetPrescription(ctx context.Context, sess session.Session, patientID, visitID, id string) (model.Prescription, error)
	UpdatePrescription(ctx context.Context, sess session.Session, patientID, visitID, id string, p model.Prescription) error

	ListNotifications(ctx context.Context, sess session.Session) ([]model.Notification, error)
	DeleteNotification(ctx context.Context, sess session.Session, id string) error
	ListHistory(ctx context.Context, sess session.Session) ([]model.HistoryEntry, error)

	SignIn(ctx context.Context, cred model.Credentials) (model.AuthResult, error)
	SignUp(ctx context.Context, su model.SignUp) (model.AuthResult, error)
	VerifyToken(ctx context.Context, sess session.Session) error
	Logout(ctx context.Context, sess session.Session) error
	GetProfile(ctx context.Context, sess session.Session) (model.Profile, error)
	UpdateProfile(ctx context.Context, sess session.Session, p model.Profile, photo *clinicapi.ProfilePhoto) error
	UpdatePassword(ctx context.Context, sess session.Session, pc model.PasswordChange) error
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

// VisitDetails is a visit with its prescriptions.
type VisitDetails struct {
	Visit         model.Visit          `json:"visit"`
	Prescriptions []model.Prescription `json:"prescriptions"`
}

// ClinicService holds the dashboard, patient, visit and account use cases.
// Inputs are validated before any remote call; failures are *validation.Error.
type ClinicService interface {
	// Patients lists patients whose first name starts with query, ignoring
	// case. An empty query lists everyone.
	Patients(ctx context.Context, sess session.Session, query string) ([]model.Patient, error)
	// UpdatePatient fills the gender and marital status defaults, then
	// validates and sends the full record.
	UpdatePatient(ctx context.Context, sess session.Session, id string, upd model.PatientUpdate) error
	DeletePatient(ctx context.Context, sess session.Session, id string) error

	Appointments(ctx context.Context, sess session.Session) ([]model.Appointment, error)
	// SaveAppointment creates the appointment when it has no ID and updates it otherwise.
	SaveAppointment(ctx context.Context, sess session.Session, a model.Appointment) error
	DeleteAppointment(ctx context.Context, sess session.Session, patientID, id string) error

	Visits(ctx context.Context, sess session.Session, patientID string) ([]model.Visit, error)
	SearchVisits(ctx context.Context, sess session.Session, patientID, visitNumber string) ([]model.Visit, error)
	Visit(ctx context.Context, sess session.Session, patientID, visitID string) (*VisitDetails, error)
	UpdateVisit(ctx context.Context, sess session.Session, patientID, visitID string, v model.Visit) error

	Prescriptions(ctx context.Context, sess session.Session, patientID, visitID string) ([]model.Prescription, error)
	Prescription(ctx context.Context, sess session.Session, patientID, visitID, id string) (model.Prescription, error)
	UpdatePrescription(ctx context.Context, sess session.Session, patientID, visitID, id string, p model.Prescription) error

	Notifications(ctx context.Context, sess session.Session) ([]model.Notification, error)
	DeleteNotification(ctx context.Context, sess session.Session, id string) error
	History(ctx context.Context, sess session.Session) ([]model.HistoryEntry, error)

	SignIn(ctx context.Context, cred model.Credentials) (model.AuthResult, error)
	SignUp(ctx context.Context, su model.SignUp) (model.AuthResult, error)
	VerifyToken(ctx context.Context, sess session.Session) error
	Logout(ctx context.Context, sess session.Session) error
	Profile(ctx context.Context, sess session.Session) (model.Profile, error)
	UpdateProfile(ctx context.Context, sess session.Session, p model.Profile, photo *clinicapi.ProfilePhoto) error
	ChangePassword(ctx context.Context, sess session.Session, pc model.PasswordChange) error
	ResetPassword(ctx context.Context, token string, r model.PasswordReset) (string, error)
}

type clinicService struct {
	api ClinicAPI
}

// NewClinicService constructs a ClinicService.
func NewClinicService(api ClinicAPI) ClinicService {
	return &clinicService{api: api}
}

func (s *clinicService) Patients(ctx context.Context, sess session.Session, query string) ([]model.Patient, error) {
	all, err := s.api.ListPatients(ctx, sess)
	if err != nil {
		return nil, err
	}
	prefix := strings.ToLower(strings.TrimSpace(query))
	if prefix == "" {
		return all, nil
	}
	out := make([]model.Patient, 0, len(all))
	for _, p := range all {
		if strings.HasPrefix(strings.ToLower(p.FirstName), prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *clinicService) UpdatePatient(ctx context.Context, sess session.Session, id string, upd model.PatientUpdate) error {
	if id == "" {
		return ErrIDRequired
	}
	upd = upd.WithDefaults()
	if err := validation.PatientEdit.Check(upd.Values(), nil); err != nil {
		return err
	}
	return s.api.UpdatePatient(ctx, sess, id, upd)
}

func (s *clinicService) DeletePatient(ctx context.Context, sess session.Session, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.api.DeletePatient(ctx, sess, id)
}

func (s *clinicService) Appointments(ctx context.Context, sess session.Session) ([]model.Appointment, error) {
	return s.api.ListAppointments(ctx, sess)
}

func (s *clinicService) SaveAppointment(ctx context.Context, sess session.Session, a model.Appointment) error {
	if err := validation.Appointment.Check(a.Values(), nil); err != nil {
		return err
	}
	if a.ID == "" {
		return s.api.CreateAppointment(ctx, sess, a)
	}
	return s.api.UpdateAppointment(ctx, sess, a)
}

func (s *clinicService) DeleteAppointment(ctx context.Context, sess session.Session, patientID, id string) error {
	if patientID == "" || id == "" {
		return ErrIDRequired
	}
	return s.api.DeleteAppointment(ctx, sess, patientID, id)
}

func (s *clinicService) Visits(ctx context.Context, sess session.Session, patientID string) ([]model.Visit, error) {
	if patientID == "" {
		return nil, ErrIDRequired
	}
	return s.api.ListVisits(ctx, sess, patientID, "")
}

func (s *clinicService) SearchVisits(ctx context.Context, sess session.Session, patientID, visitNumber string) ([]model.Visit, error) {
	if patientID == "" {
		return nil, ErrIDRequired
	}
	visitNumber = strings.TrimSpace(visitNumber)
	if err := validation.VisitSearch.Check(map[string]string{"visitNumber": visitNumber}, nil); err != nil {
		return nil, err
	}
	return s.api.ListVisits(ctx, sess, patientID, visitNumber)
}

func (s *clinicService) Visit(ctx context.Context, sess session.Session, patientID, visitID string) (*VisitDetails, error) {
	if patientID == "" || visitID == "" {
		return nil, ErrIDRequired
	}
	v, err := s.api.GetVisit(ctx, sess, patientID, visitID)
	if err != nil {
		return nil, err
	}
	rx, err := s.api.ListPrescriptions(ctx, sess, patientID, visitID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return &VisitDetails{Visit: v, Prescriptions: rx}, nil
}

func (s *clinicService) UpdateVisit(ctx context.Context, sess session.Session, patientID, visitID string, v model.Visit) error {
	if patientID == "" || visitID == "" {
		return ErrIDRequired
	}
	if err := validation.VisitUpdate.Check(map[string]string{"Consultation_Reason": v.ConsultationReason}, nil); err != nil {
		return err
	}
	return s.api.UpdateVisit(ctx, sess, patientID, visitID, v)
}

func (s *clinicService) Prescriptions(ctx context.Context, sess session.Session, patientID, visitID string) ([]model.Prescription, error) {
	if patientID == "" || visitID == "" {
		return nil, ErrIDRequired
	}
	return s.api.ListPrescriptions(ctx, sess, patientID, visitID)
}

func (s *clinicService) Prescription(ctx context.Context, sess session.Session, patientID, visitID, id string) (model.Prescription, error) {
	if patientID == "" || visitID == "" || id == "" {
		return model.Prescription{}, ErrIDRequired
	}
	return s.api.GetPrescription(ctx, sess, patientID, visitID, id)
}

// UpdatePrescription requires name, dosage and duration on every line.
// Field errors are keyed "Medications.<index>.<field>".
func (s *clinicService) UpdatePrescription(ctx context.Context, sess session.Session, patientID, visitID, id string, p model.Prescription) error {
	if patientID == "" || visitID == "" || id == "" {
		return ErrIDRequired
	}
	errs := validation.Errors{}
	for i, m := range p.Medications {
		line := validation.PrescriptionMedication.Validate(map[string]string{
			"name":     m.Name,
			"dosage":   m.Dosage,
			"duration": m.Duration,
		}, nil)
		for field, msg := range line {
			errs[fmt.Sprintf("Medications.%d.%s", i, field)] = msg
		}
	}
	if !errs.Empty() {
		return &validation.Error{Fields: errs}
	}
	return s.api.UpdatePrescription(ctx, sess, patientID, visitID, id, p)
}

func (s *clinicService) Notifications(ctx context.Context, sess session.Session) ([]model.Notification, error) {
	return s.api.ListNotifications(ctx, sess)
}

func (s *clinicService) DeleteNotification(ctx context.Context, sess session.Session, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.api.DeleteNotification(ctx, sess, id)
}

func (s *clinicService) History(ctx context.Context, sess session.Session) ([]model.HistoryEntry, error) {
	return s.api.ListHistory(ctx, sess)
}

func (s *clinicService) SignIn(ctx context.Context, cred model.Credentials) (model.AuthResult, error) {
	if err := validation.SignIn.Check(map[string]string{
		"username": cred.Username,
		"password": cred.Password,
	}, nil); err != nil {
		return model.AuthResult{}, err
	}
	return s.api.SignIn(ctx, cred)
}

func (s *clinicService) SignUp(ctx context.Context, su model.SignUp) (model.AuthResult, error) {
	vals := su.Profile.Values()
	vals["password"] = su.Password
	if err := validation.SignUp.Check(vals, nil); err != nil {
		return model.AuthResult{}, err
	}
	return s.api.SignUp(ctx, su)
}

func (s *clinicService) VerifyToken(ctx context.Context, sess session.Session) error {
	return s.api.VerifyToken(ctx, sess)
}

func (s *clinicService) Logout(ctx context.Context, sess session.Session) error {
	return s.api.Logout(ctx, sess)
}

func (s *clinicService) Profile(ctx context.Context, sess session.Session) (model.Profile, error) {
	return s.api.GetProfile(ctx, sess)
}

func (s *clinicService) UpdateProfile(ctx context.Context, sess session.Session, p model.Profile, photo *clinicapi.ProfilePhoto) error {
	if err := validation.Profile.Check(p.Values(), nil); err != nil {
		return err
	}
	return s.api.UpdateProfile(ctx, sess, p, photo)
}

func (s *clinicService) ChangePassword(ctx context.Context, sess session.Session, pc model.PasswordChange) error {
	if err := validation.PasswordChange.Check(map[string]string{
		"oldPassword": pc.OldPassword,
		"newPassword": pc.NewPassword,
	}, nil); err != nil {
		return err
	}
	return s.api.UpdatePassword(ctx, sess, pc)
}

func (s *clinicService) ResetPassword(ctx context.Context, token string, r model.PasswordReset) (string, error) {
	if token == "" {
		return "", ErrIDRequired
	}
	if err := validation.PasswordReset.Check(map[string]string{
		"newPassword":     r.NewPassword,
		"confirmPassword": r.ConfirmPassword,
	}, nil); err != nil {
		return "", err
	}
	return s.api.ResetPassword(ctx, token, r.NewPassword)
}

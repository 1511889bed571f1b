package validation

import "clinicdesk/internal/model"

// MaxFilesPerCategory bounds the reports and images lists.
const MaxFilesPerCategory = 10

const maxFilesMsg = "Maximum of 10 files allowed"

// DemographicStep validates the identity and demographic intake step.
var DemographicStep = Schema{
	Text(model.FieldLastName, Required("Last name is required")),
	Text(model.FieldFirstName, Required("First name is required")),
	Text(model.FieldEmail, Required("Email is required"), Email("Invalid email format")),
	Text(model.FieldPhone, Required("Phone number is required"), Digits("Phone number must be a number")),
	Text(model.FieldGender, Required("Gender is required"), OneOf("Gender must be Male or Female", model.Genders...)),
	Text(model.FieldBirthDate, DateRequired("Birthdate is required")),
	Text(model.FieldMaritalStatus, Required("Marital status is required"),
		OneOf("Marital status must be Single, Married or Divorced", model.MaritalStatuses...)),
}

// ClinicalStep validates the clinical free-text step.
var ClinicalStep = Schema{
	Text(model.FieldMedicalHistory, Required("Medical history is required")),
	Text(model.FieldMedications, Required("Current medications are required")),
	Text(model.FieldSummaryReport, Required("Medical report is required")),
	Text(model.FieldReasonForConsultation, Required("Reason for consultation is required")),
}

// VisitStep validates the visit dates and attachment lists.
var VisitStep = Schema{
	Text(model.FieldVisitDate, DateRequired("Visit date is required")),
	Text(model.FieldNextAppointmentDate, DateRequired("Next appointment is required")),
	List(model.FieldReports, ListBound(1, MaxFilesPerCategory, "Reports are required", maxFilesMsg)),
	List(model.FieldImages, ListBound(1, MaxFilesPerCategory, "Images are required", maxFilesMsg)),
}

// PatientEdit validates a dashboard edit of an existing patient.
var PatientEdit = Schema{
	Text(model.FieldFirstName, Required("Required")),
	Text(model.FieldLastName, Required("Required")),
	Text(model.FieldEmail, Required("Required"), Email("Invalid email address")),
	Text(model.FieldPhone, Required("Required")),
	Text(model.FieldBirthDate, DateRequired("Required")),
	Text(model.FieldGender, OneOf("Gender must be Male or Female", model.Genders...)),
	Text(model.FieldMaritalStatus, OneOf("Marital status must be Single, Married or Divorced", model.MaritalStatuses...)),
}

// Appointment validates the appointment form.
var Appointment = Schema{
	Text("patientId", Required("Patient is required")),
	Text("appointmentDate", DateRequired("Appointment date is required")),
	Text("appointmentTime", Required("Appointment time is required")),
}

// VisitSearch validates the visit-number filter.
var VisitSearch = Schema{
	Text("visitNumber", Required("Visit number is required")),
}

// VisitUpdate validates an edit of a visit.
var VisitUpdate = Schema{
	Text("Consultation_Reason", Required("Consultation reason is required")),
}

// PrescriptionMedication validates one medication line.
var PrescriptionMedication = Schema{
	Text("name", Required("Medication name is required")),
	Text("dosage", Required("Dosage is required")),
	Text("duration", Required("Duration is required")),
}

// SignIn validates the sign-in form.
var SignIn = Schema{
	Text("username", Required("Username is required")),
	Text("password", Required("Password is required")),
}

// SignUp validates the registration form.
var SignUp = Schema{
	Text("firstName", Required("First name is required")),
	Text("lastName", Required("Last name is required")),
	Text("email", Required("Email is required"), Email("Invalid email")),
	Text("phoneNumber", Required("Phone number is required"), DigitsLen(10, 15, "Invalid phone number")),
	Text("username", Required("Username is required")),
	Text("specialty", Required("Specialty is required")),
	Text("password", Required("Password is required"), MinLen(6, "Password must be at least 6 characters")),
}

// Profile validates the profile edit form.
var Profile = Schema{
	Text("firstName", Required("First name is required"), MaxLen(20, "First name must not exceed 20 characters")),
	Text("lastName", Required("Last name is required"), MaxLen(20, "Last name must not exceed 20 characters")),
	Text("email", Required("Email is required"), Email("Invalid email address")),
	Text("phoneNumber", Required("Phone number is required"), Digits("Invalid phone number")),
	Text("specialty", Required("Specialty is required"), MaxLen(40, "Specialty must not exceed 40 characters")),
	Text("username", Required("Username is required"), MaxLen(20, "Username must not exceed 20 characters")),
}

// PasswordChange validates the authenticated password update.
var PasswordChange = Schema{
	Text("oldPassword", Required("The old password is required")),
	Text("newPassword", Required("The new password is required"),
		MinLen(8, "The new password must contain at least 8 characters")),
}

// PasswordReset validates the token-based reset form.
var PasswordReset = Schema{
	Text("newPassword", Required("New password is required"), MinLen(6, "Password must be at least 6 characters long")),
	Text("confirmPassword", Required("Confirmation password is required"), Equal("newPassword", "Passwords must match")),
}

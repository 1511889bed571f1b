package model

// Gender values accepted by the intake form.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Marital status values accepted by the intake form.
const (
	MaritalSingle   = "Single"
	MaritalMarried  = "Married"
	MaritalDivorced = "Divorced"
)

// Genders and MaritalStatuses are the declared enum sets.
var (
	Genders         = []string{GenderMale, GenderFemale}
	MaritalStatuses = []string{MaritalSingle, MaritalMarried, MaritalDivorced}
)

// Patient is a patient record as returned by the Patient Records API.
type Patient struct {
	ID                    string   `json:"_id"`
	FirstName             string   `json:"firstName"`
	LastName              string   `json:"lastName"`
	Email                 string   `json:"email"`
	Phone                 string   `json:"phone"`
	Gender                string   `json:"gender"`
	BirthDate             string   `json:"birthDate"`
	MaritalStatus         string   `json:"maritalStatus"`
	MedicalHistory        string   `json:"medicalHistory,omitempty"`
	Medications           string   `json:"medications,omitempty"`
	SummaryReport         string   `json:"summaryReport,omitempty"`
	ReasonForConsultation string   `json:"reasonForConsultation,omitempty"`
	VisitDate             string   `json:"visitDate,omitempty"`
	NextAppointmentDate   string   `json:"nextAppointmentDate,omitempty"`
	Reports               []string `json:"reports,omitempty"`
	Images                []string `json:"images,omitempty"`
}

// PatientUpdate is the JSON payload sent when a patient is edited from the
// dashboard. Every scalar field is always present.
type PatientUpdate struct {
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	Gender                string `json:"gender"`
	BirthDate             string `json:"birthDate"`
	MaritalStatus         string `json:"maritalStatus"`
	MedicalHistory        string `json:"medicalHistory"`
	Medications           string `json:"medications"`
	SummaryReport         string `json:"summaryReport"`
	ReasonForConsultation string `json:"reasonForConsultation"`
	VisitDate             string `json:"visitDate"`
	NextAppointmentDate   string `json:"nextAppointmentDate"`
}

// WithDefaults fills the enum fields the dashboard leaves blank.
func (u PatientUpdate) WithDefaults() PatientUpdate {
	if u.Gender == "" {
		u.Gender = GenderMale
	}
	if u.MaritalStatus == "" {
		u.MaritalStatus = MaritalSingle
	}
	return u
}

// Values returns the payload as a field map for validation.
func (u PatientUpdate) Values() map[string]string {
	return map[string]string{
		FieldFirstName:             u.FirstName,
		FieldLastName:              u.LastName,
		FieldEmail:                 u.Email,
		FieldPhone:                 u.Phone,
		FieldGender:                u.Gender,
		FieldBirthDate:             u.BirthDate,
		FieldMaritalStatus:         u.MaritalStatus,
		FieldMedicalHistory:        u.MedicalHistory,
		FieldMedications:           u.Medications,
		FieldSummaryReport:         u.SummaryReport,
		FieldReasonForConsultation: u.ReasonForConsultation,
		FieldVisitDate:             u.VisitDate,
		FieldNextAppointmentDate:   u.NextAppointmentDate,
	}
}

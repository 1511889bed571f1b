package model

// Patient record field names, shared by the wizard steps, the multipart
// payload and the JSON update payload.
const (
	FieldLastName              = "lastName"
	FieldFirstName             = "firstName"
	FieldEmail                 = "email"
	FieldPhone                 = "phone"
	FieldGender                = "gender"
	FieldBirthDate             = "birthDate"
	FieldMaritalStatus         = "maritalStatus"
	FieldMedicalHistory        = "medicalHistory"
	FieldMedications           = "medications"
	FieldSummaryReport         = "summaryReport"
	FieldReasonForConsultation = "reasonForConsultation"
	FieldVisitDate             = "visitDate"
	FieldNextAppointmentDate   = "nextAppointmentDate"
	FieldReports               = string(CategoryReports)
	FieldImages                = string(CategoryImages)
)

// RecordFields lists the scalar fields of a patient record in payload order.
var RecordFields = []string{
	FieldLastName,
	FieldFirstName,
	FieldEmail,
	FieldPhone,
	FieldGender,
	FieldBirthDate,
	FieldMaritalStatus,
	FieldMedicalHistory,
	FieldMedications,
	FieldSummaryReport,
	FieldReasonForConsultation,
	FieldVisitDate,
	FieldNextAppointmentDate,
}

// Delta is the subset of the record one wizard step validated and hands up
// to be merged into the draft. Files is only set by the visit step.
type Delta struct {
	Fields map[string]string      `json:"fields"`
	Files  map[Category][]FileRef `json:"files,omitempty"`
}

// Keys returns the number of scalar and list keys carried by the delta.
func (d Delta) Keys() int {
	return len(d.Fields) + len(d.Files)
}

// Draft is the cumulative patient record under construction.
type Draft struct {
	Fields  map[string]string `json:"fields"`
	Reports []FileRef         `json:"reports"`
	Images  []FileRef         `json:"images"`
}

// NewDraft returns an empty draft.
func NewDraft() Draft {
	return Draft{Fields: map[string]string{}}
}

// Get returns the value of a scalar field, "" when unset.
func (d Draft) Get(field string) string {
	return d.Fields[field]
}

// Files returns the attachment list for c.
func (d Draft) Files(c Category) []FileRef {
	switch c {
	case CategoryReports:
		return d.Reports
	case CategoryImages:
		return d.Images
	}
	return nil
}

// IsEmpty reports whether nothing has been merged yet.
func (d Draft) IsEmpty() bool {
	return len(d.Fields) == 0 && len(d.Reports) == 0 && len(d.Images) == 0
}

// Merge returns a new draft with delta applied on top of d. The merge is
// shallow and right-biased: keys present in delta replace those in d, all
// other keys are kept. d itself is not modified.
func (d Draft) Merge(delta Delta) Draft {
	out := Draft{
		Fields:  make(map[string]string, len(d.Fields)+len(delta.Fields)),
		Reports: cloneRefs(d.Reports),
		Images:  cloneRefs(d.Images),
	}
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	for k, v := range delta.Fields {
		out.Fields[k] = v
	}
	if refs, ok := delta.Files[CategoryReports]; ok {
		out.Reports = cloneRefs(refs)
	}
	if refs, ok := delta.Files[CategoryImages]; ok {
		out.Images = cloneRefs(refs)
	}
	return out
}

func cloneRefs(in []FileRef) []FileRef {
	if in == nil {
		return nil
	}
	out := make([]FileRef, len(in))
	copy(out, in)
	return out
}

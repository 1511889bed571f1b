package wizard

import (
	"strings"

	"clinicdesk/internal/model"
	"clinicdesk/internal/validation"
)

// FileSource exposes attachment lists to the visit step.
type FileSource interface {
	Files(c model.Category) []model.FileRef
	Count(c model.Category) int
}

// SchemaFor returns the validation schema of a step.
func SchemaFor(s Step) (validation.Schema, error) {
	switch s {
	case StepDemographic:
		return validation.DemographicStep, nil
	case StepClinical:
		return validation.ClinicalStep, nil
	case StepVisit:
		return validation.VisitStep, nil
	}
	return nil, ErrUnknownStep
}

// StepForm is the working copy of one step. It is seeded from the draft but
// never writes to it; validated values leave only through Submit.
type StepForm struct {
	step    Step
	schema  validation.Schema
	values  map[string]string
	touched map[string]bool
	errors  validation.Errors
}

// NewStepForm seeds a step form from the draft. Owned fields missing from
// the draft start empty.
func NewStepForm(step Step, draft model.Draft) (*StepForm, error) {
	schema, err := SchemaFor(step)
	if err != nil {
		return nil, err
	}
	f := &StepForm{
		step:    step,
		schema:  schema,
		values:  make(map[string]string),
		touched: make(map[string]bool),
		errors:  validation.Errors{},
	}
	for _, name := range schema.TextFields() {
		f.values[name] = draft.Get(name)
	}
	return f, nil
}

// Step returns the step index of the form.
func (f *StepForm) Step() Step { return f.step }

// Change sets a field value and clears its previous error.
func (f *StepForm) Change(field, value string) error {
	if !f.ownsText(field) {
		return ErrUnknownField
	}
	f.values[field] = value
	delete(f.errors, field)
	return nil
}

// Blur marks a field as touched. Errors of touched fields are rendered.
func (f *StepForm) Blur(field string) error {
	if !f.schema.Has(field) {
		return ErrUnknownField
	}
	f.touched[field] = true
	return nil
}

// Submit validates every owned field. On failure all fields become touched,
// the error map is kept and ok is false. On success the delta holds exactly
// the owned fields with trimmed values; the visit step adds the attachment
// lists taken from files.
func (f *StepForm) Submit(files FileSource) (delta model.Delta, ok bool) {
	counts := map[string]int{}
	if files != nil {
		for _, c := range model.Categories {
			counts[string(c)] = files.Count(c)
		}
	}
	trimmed := make(map[string]string, len(f.values))
	for k, v := range f.values {
		trimmed[k] = strings.TrimSpace(v)
	}

	errs := f.schema.Validate(trimmed, counts)
	if !errs.Empty() {
		f.errors = errs
		for _, name := range f.schema.Fields() {
			f.touched[name] = true
		}
		return model.Delta{}, false
	}

	f.errors = validation.Errors{}
	delta = model.Delta{Fields: trimmed}
	for _, fld := range f.schema {
		if !fld.IsList() {
			continue
		}
		if delta.Files == nil {
			delta.Files = make(map[model.Category][]model.FileRef)
		}
		c := model.Category(fld.Name)
		if files != nil {
			delta.Files[c] = files.Files(c)
		}
	}
	return delta, true
}

// Values returns a copy of the in-progress values, unvalidated.
func (f *StepForm) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Errors returns the full error map of the last submit attempt.
func (f *StepForm) Errors() validation.Errors {
	out := make(validation.Errors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// VisibleErrors returns the errors of touched fields only.
func (f *StepForm) VisibleErrors() validation.Errors {
	out := validation.Errors{}
	for k, v := range f.errors {
		if f.touched[k] {
			out[k] = v
		}
	}
	return out
}

// Touched reports whether field has been blurred or submitted.
func (f *StepForm) Touched(field string) bool {
	return f.touched[field]
}

func (f *StepForm) ownsText(field string) bool {
	_, ok := f.values[field]
	return ok
}

// FormState is the serialisable form of a StepForm.
type FormState struct {
	Step    Step              `json:"step"`
	Values  map[string]string `json:"values"`
	Touched map[string]bool   `json:"touched,omitempty"`
	Errors  validation.Errors `json:"errors,omitempty"`
}

func (f *StepForm) state() FormState {
	touched := make(map[string]bool, len(f.touched))
	for k, v := range f.touched {
		touched[k] = v
	}
	return FormState{Step: f.step, Values: f.Values(), Touched: touched, Errors: f.Errors()}
}

func restoreForm(fs FormState, draft model.Draft) (*StepForm, error) {
	f, err := NewStepForm(fs.Step, draft)
	if err != nil {
		return nil, err
	}
	for k, v := range fs.Values {
		if f.ownsText(k) {
			f.values[k] = v
		}
	}
	for k, v := range fs.Touched {
		if v && f.schema.Has(k) {
			f.touched[k] = true
		}
	}
	for k, v := range fs.Errors {
		if f.schema.Has(k) {
			f.errors[k] = v
		}
	}
	return f, nil
}

func (f *StepForm) clearError(field string) {
	delete(f.errors, field)
}

package main

import (
	"slices"
	"strings"

	"github.com/charmbracelet/huh"

	"clinicdesk/internal/model"
	"clinicdesk/internal/validation"
	"clinicdesk/internal/wizard"
)

type action string

const (
	actionNext action = "next"
	actionBack action = "back"
	actionQuit action = "quit"
)

var labels = map[string]string{
	model.FieldLastName:              "Last name",
	model.FieldFirstName:             "First name",
	model.FieldEmail:                 "Email",
	model.FieldPhone:                 "Phone number",
	model.FieldGender:                "Gender",
	model.FieldBirthDate:             "Birthdate",
	model.FieldMaritalStatus:         "Marital status",
	model.FieldMedicalHistory:        "Medical history",
	model.FieldMedications:           "Current medications",
	model.FieldSummaryReport:         "Medical report",
	model.FieldReasonForConsultation: "Reason for consultation",
	model.FieldVisitDate:             "Visit date",
	model.FieldNextAppointmentDate:   "Next appointment",
	model.FieldReports:               "Reports",
	model.FieldImages:                "Images",
}

func labelOf(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

var stepSchemas = map[wizard.Step]validation.Schema{
	wizard.StepDemographic: validation.DemographicStep,
	wizard.StepClinical:    validation.ClinicalStep,
	wizard.StepVisit:       validation.VisitStep,
}

var multiline = []string{
	model.FieldMedicalHistory,
	model.FieldMedications,
	model.FieldSummaryReport,
	model.FieldReasonForConsultation,
}

// stepInput is what one run of a step form produced.
type stepInput struct {
	Values  map[string]string
	Reports []string
	Images  []string
	Action  action
}

// stepForm binds the fields of one wizard step, prefilled from values.
type stepForm struct {
	step    wizard.Step
	form    *huh.Form
	bound   map[string]*string
	reports string
	images  string
	action  action
}

func newStepForm(step wizard.Step, values map[string]string, errs validation.Errors) *stepForm {
	sf := &stepForm{step: step, bound: make(map[string]*string)}

	var fields []huh.Field
	if len(errs) > 0 {
		fields = append(fields, huh.NewNote().Title("Please fix").Description(renderErrors(errs)))
	}
	for _, name := range stepSchemas[step].TextFields() {
		v := values[name]
		sf.bound[name] = &v
		fields = append(fields, inputFor(name, &v))
	}

	next := "Next"
	if step == wizard.StepVisit {
		next = "Submit"
		fields = append(fields,
			huh.NewInput().Title("Add reports").Description("Comma-separated PDF or Word file paths").Value(&sf.reports),
			huh.NewInput().Title("Add images").Description("Comma-separated image file paths").Value(&sf.images),
		)
	}

	opts := []huh.Option[action]{huh.NewOption(next, actionNext)}
	if step != wizard.StepDemographic {
		opts = append(opts, huh.NewOption("Back", actionBack))
	}
	opts = append(opts, huh.NewOption("Discard and quit", actionQuit))
	fields = append(fields, huh.NewSelect[action]().Title("Continue").Options(opts...).Value(&sf.action))

	sf.form = huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCharm())
	return sf
}

func (sf *stepForm) Run() (stepInput, error) {
	if err := sf.form.Run(); err != nil {
		return stepInput{}, err
	}
	return sf.collect(), nil
}

func (sf *stepForm) collect() stepInput {
	in := stepInput{
		Values:  make(map[string]string, len(sf.bound)),
		Reports: splitPaths(sf.reports),
		Images:  splitPaths(sf.images),
		Action:  sf.action,
	}
	for name, v := range sf.bound {
		in.Values[name] = strings.TrimSpace(*v)
	}
	return in
}

func inputFor(name string, v *string) huh.Field {
	switch {
	case name == model.FieldGender:
		return huh.NewSelect[string]().Title(labelOf(name)).
			Options(huh.NewOptions(model.Genders...)...).Value(v)
	case name == model.FieldMaritalStatus:
		return huh.NewSelect[string]().Title(labelOf(name)).
			Options(huh.NewOptions(model.MaritalStatuses...)...).Value(v)
	case slices.Contains(multiline, name):
		return huh.NewText().Title(labelOf(name)).Value(v)
	case strings.HasSuffix(name, "Date"):
		return huh.NewInput().Title(labelOf(name)).Description("YYYY-MM-DD").Value(v)
	default:
		return huh.NewInput().Title(labelOf(name)).Value(v)
	}
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func signInForm(cred *model.Credentials) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Username").Value(&cred.Username),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&cred.Password),
	)).WithTheme(huh.ThemeCharm())
}

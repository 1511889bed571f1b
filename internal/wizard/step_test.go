package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/model"
)

func TestStepForm_SeedsFromDraft(t *testing.T) {
	draft := model.NewDraft().Merge(model.Delta{Fields: map[string]string{
		model.FieldFirstName:      "Jane",
		model.FieldMedicalHistory: "asthma",
	}})

	f, err := NewStepForm(StepDemographic, draft)
	require.NoError(t, err)
	vals := f.Values()
	assert.Len(t, vals, 7)
	assert.Equal(t, "Jane", vals[model.FieldFirstName])
	assert.Equal(t, "", vals[model.FieldEmail])
	_, leaked := vals[model.FieldMedicalHistory]
	assert.False(t, leaked)
}

func TestStepForm_UnknownStep(t *testing.T) {
	_, err := NewStepForm(Step(4), model.NewDraft())
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestStepForm_SubmitEmptyFailsEveryStep(t *testing.T) {
	for _, step := range []Step{StepDemographic, StepClinical, StepVisit} {
		f, err := NewStepForm(step, model.NewDraft())
		require.NoError(t, err)

		var files FileSource
		if step == StepVisit {
			files = NewAggregator()
		}
		delta, ok := f.Submit(files)
		assert.False(t, ok)
		assert.Zero(t, delta.Keys())

		schema, _ := SchemaFor(step)
		for _, name := range schema.Fields() {
			assert.NotEmpty(t, f.VisibleErrors()[name], "step %d field %s", step, name)
			assert.True(t, f.Touched(name))
		}
	}
}

func TestStepForm_DeltaIsTrimmedAndExact(t *testing.T) {
	f, err := NewStepForm(StepDemographic, model.NewDraft())
	require.NoError(t, err)
	for k, v := range demographics() {
		require.NoError(t, f.Change(k, "  "+v+" "))
	}

	delta, ok := f.Submit(nil)
	require.True(t, ok)
	assert.Equal(t, demographics(), delta.Fields)
	assert.Nil(t, delta.Files)
	assert.Equal(t, 7, delta.Keys())
}

func TestStepForm_ChangeClearsError(t *testing.T) {
	f, err := NewStepForm(StepClinical, model.NewDraft())
	require.NoError(t, err)
	_, ok := f.Submit(nil)
	require.False(t, ok)
	require.NotEmpty(t, f.Errors()[model.FieldMedications])

	require.NoError(t, f.Change(model.FieldMedications, "none"))
	assert.Empty(t, f.Errors()[model.FieldMedications])
	assert.NotEmpty(t, f.Errors()[model.FieldSummaryReport])
}

func TestStepForm_ErrorsHiddenUntilTouched(t *testing.T) {
	f, err := NewStepForm(StepDemographic, model.NewDraft())
	require.NoError(t, err)
	f.errors[model.FieldEmail] = "Invalid email format"

	assert.Empty(t, f.VisibleErrors())
	require.NoError(t, f.Blur(model.FieldEmail))
	assert.Equal(t, "Invalid email format", f.VisibleErrors()[model.FieldEmail])
}

func TestStepForm_RejectsForeignFields(t *testing.T) {
	f, err := NewStepForm(StepVisit, model.NewDraft())
	require.NoError(t, err)
	assert.ErrorIs(t, f.Change(model.FieldEmail, "x"), ErrUnknownField)
	assert.ErrorIs(t, f.Change(model.FieldReports, "x"), ErrUnknownField)
	assert.NoError(t, f.Blur(model.FieldReports))
}

func TestStepForm_VisitDeltaCarriesFiles(t *testing.T) {
	f, err := NewStepForm(StepVisit, model.NewDraft())
	require.NoError(t, err)
	for k, v := range visit() {
		require.NoError(t, f.Change(k, v))
	}
	agg := NewAggregator()
	_, err = agg.Add(model.CategoryReports, model.FileRef{Handle: "r"})
	require.NoError(t, err)
	_, err = agg.Add(model.CategoryImages, model.FileRef{Handle: "i"})
	require.NoError(t, err)

	delta, ok := f.Submit(agg)
	require.True(t, ok)
	assert.Len(t, delta.Fields, 2)
	assert.Equal(t, "r", delta.Files[model.CategoryReports][0].Handle)
	assert.Equal(t, "i", delta.Files[model.CategoryImages][0].Handle)
}

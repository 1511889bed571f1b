package wizard

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/model"
)

func demographics() map[string]string {
	return map[string]string{
		model.FieldFirstName:     "Jane",
		model.FieldLastName:      "Doe",
		model.FieldEmail:         "jane@x.com",
		model.FieldPhone:         "5551234567",
		model.FieldGender:        "Female",
		model.FieldBirthDate:     "1990-01-01",
		model.FieldMaritalStatus: "Single",
	}
}

func clinical() map[string]string {
	return map[string]string{
		model.FieldMedicalHistory:        "asthma",
		model.FieldMedications:           "salbutamol",
		model.FieldSummaryReport:         "stable",
		model.FieldReasonForConsultation: "follow-up",
	}
}

func visit() map[string]string {
	return map[string]string{
		model.FieldVisitDate:           "2024-05-01",
		model.FieldNextAppointmentDate: "2024-06-01",
	}
}

func toStep3(t *testing.T) *Controller {
	t.Helper()
	c := New()
	_, err := c.Advance(demographics())
	require.NoError(t, err)
	_, err = c.Advance(clinical())
	require.NoError(t, err)
	require.Equal(t, StateStep3, c.State())
	return c
}

func attachBoth(t *testing.T, c *Controller) {
	t.Helper()
	_, err := c.AddFile(model.CategoryReports, model.FileRef{Handle: "r1", Filename: "report.pdf"})
	require.NoError(t, err)
	_, err = c.AddFile(model.CategoryImages, model.FileRef{Handle: "i1", Filename: "xray.png"})
	require.NoError(t, err)
}

func TestController_New(t *testing.T) {
	c := New()
	assert.Equal(t, StateStep1, c.State())
	assert.Equal(t, StepDemographic, c.Step())
	assert.True(t, c.Draft().IsEmpty())
	assert.Nil(t, c.Notification())
}

func TestController_AdvanceStep1(t *testing.T) {
	c := New()
	out, err := c.Advance(demographics())
	require.NoError(t, err)

	assert.Equal(t, Outcome{From: StateStep1, To: StateStep2}, out)
	assert.Equal(t, StateStep2, c.State())
	draft := c.Draft()
	assert.Len(t, draft.Fields, 7)
	for k, v := range demographics() {
		assert.Equal(t, v, draft.Get(k))
	}
}

func TestController_AdvanceBlockedByValidation(t *testing.T) {
	c := New()
	vals := demographics()
	vals[model.FieldEmail] = ""

	_, err := c.Advance(vals)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, StateStep1, c.State())
	assert.True(t, c.Draft().IsEmpty())
	assert.Equal(t, "Email is required", c.Form().VisibleErrors()[model.FieldEmail])
}

func TestController_AdvanceUnknownField(t *testing.T) {
	c := New()
	_, err := c.Advance(map[string]string{model.FieldMedications: "x"})
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, StateStep1, c.State())
}

func TestController_AdvanceUnknownFieldChangesNothing(t *testing.T) {
	c := New()
	values := demographics()
	values[model.FieldVisitDate] = "2024-05-01"

	_, err := c.Advance(values)
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), model.FieldVisitDate)
	assert.Equal(t, StateStep1, c.State())
	for field, v := range c.Form().Values() {
		assert.Empty(t, v, field)
	}
	assert.Empty(t, c.Form().VisibleErrors())
}

func TestController_RetreatRoundTrip(t *testing.T) {
	c := New()
	_, err := c.Advance(demographics())
	require.NoError(t, err)

	require.NoError(t, c.EditField(model.FieldMedicalHistory, "draft history"))
	before := c.Form().Values()

	require.NoError(t, c.Retreat())
	assert.Equal(t, StateStep1, c.State())
	assert.Equal(t, demographics(), c.Form().Values())

	_, err = c.Advance(nil)
	require.NoError(t, err)
	assert.Equal(t, StateStep2, c.State())
	assert.Equal(t, before, c.Form().Values())
}

func TestController_RetreatFromStep1Rejected(t *testing.T) {
	c := New()
	err := c.Retreat()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateStep1, c.State())
}

func TestController_Step3RequiresReports(t *testing.T) {
	c := toStep3(t)
	_, err := c.AddFile(model.CategoryImages, model.FileRef{Handle: "i1"})
	require.NoError(t, err)

	out, err := c.Advance(visit())
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, out.Submit)
	assert.Equal(t, StateStep3, c.State())
	assert.Equal(t, "Reports are required", c.Form().VisibleErrors()[model.FieldReports])
	assert.Equal(t, 1, c.Uploads().Count(model.CategoryImages))
	assert.Equal(t, "Jane", c.Draft().Get(model.FieldFirstName))
}

func TestController_SubmissionFailureKeepsDraft(t *testing.T) {
	c := toStep3(t)
	attachBoth(t, c)

	out, err := c.Advance(visit())
	require.NoError(t, err)
	assert.True(t, out.Submit)
	assert.Equal(t, StateSubmitting, c.State())

	_, err = c.Advance(nil)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, c.EditField(model.FieldVisitDate, "x"), ErrSubmissionInFlight)

	require.NoError(t, c.CompleteSubmission(errors.New("status 500")))
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, StepVisit, c.Step())
	assert.Equal(t, &Notification{Level: NoticeError, Message: MessageSubmitFailed}, c.Notification())

	draft := c.Draft()
	assert.Len(t, draft.Fields, 13)
	assert.Len(t, draft.Reports, 1)
	assert.Len(t, draft.Images, 1)

	out, err = c.Advance(nil)
	require.NoError(t, err)
	assert.True(t, out.Submit)
	assert.Equal(t, StateSubmitting, c.State())
}

func TestController_SubmissionSuccessAndReset(t *testing.T) {
	c := toStep3(t)
	attachBoth(t, c)
	_, err := c.Advance(visit())
	require.NoError(t, err)

	require.NoError(t, c.CompleteSubmission(nil))
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, NoticeSuccess, c.Notification().Level)
	assert.ErrorIs(t, c.EditField(model.FieldVisitDate, "x"), ErrInvalidTransition)

	require.NoError(t, c.Reset())
	assert.Equal(t, StateStep1, c.State())
	assert.True(t, c.Draft().IsEmpty())
	assert.Zero(t, c.Uploads().Count(model.CategoryReports))
	assert.Nil(t, c.Notification())
}

func TestController_ResetOnlyFromDone(t *testing.T) {
	c := toStep3(t)
	assert.ErrorIs(t, c.Reset(), ErrInvalidTransition)
	assert.ErrorIs(t, c.CompleteSubmission(nil), ErrInvalidTransition)
}

func TestController_SnapshotRestore(t *testing.T) {
	c := toStep3(t)
	attachBoth(t, c)
	require.NoError(t, c.EditField(model.FieldVisitDate, "2024-05-01"))
	require.NoError(t, c.TouchField(model.FieldVisitDate))

	raw, err := json.Marshal(c.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	restored, err := Restore(snap)
	require.NoError(t, err)

	assert.Equal(t, c.State(), restored.State())
	assert.Equal(t, c.Draft(), restored.Draft())
	assert.Equal(t, c.Form().Values(), restored.Form().Values())
	assert.True(t, restored.Form().Touched(model.FieldVisitDate))
	assert.Equal(t, c.Uploads().All(), restored.Uploads().All())
}

func TestController_RestoreRejectsUnknownState(t *testing.T) {
	_, err := Restore(Snapshot{State: "step9"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNext(t *testing.T) {
	tests := []struct {
		from    State
		event   Event
		want    State
		wantErr error
	}{
		{StateStep1, EventAdvance, StateStep2, nil},
		{StateStep2, EventAdvance, StateStep3, nil},
		{StateStep3, EventAdvance, StateSubmitting, nil},
		{StateStep2, EventRetreat, StateStep1, nil},
		{StateStep3, EventRetreat, StateStep2, nil},
		{StateSubmitting, EventSubmitSucceeded, StateDone, nil},
		{StateSubmitting, EventSubmitFailed, StateFailed, nil},
		{StateFailed, EventAdvance, StateSubmitting, nil},
		{StateDone, EventReset, StateStep1, nil},
		{StateStep1, EventRetreat, StateStep1, ErrInvalidTransition},
		{StateStep1, EventReset, StateStep1, ErrInvalidTransition},
		{StateDone, EventAdvance, StateDone, ErrInvalidTransition},
		{StateSubmitting, EventAdvance, StateSubmitting, ErrSubmissionInFlight},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

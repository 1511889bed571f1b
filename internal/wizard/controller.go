package wizard

import (
	"fmt"
	"maps"
	"slices"

	"clinicdesk/internal/model"
)

// Outcome reports what Advance did.
type Outcome struct {
	From State
	To   State
	// Submit is set when the visit step validated and the merged draft must
	// now be handed to the submission adapter.
	Submit bool
}

// Controller owns the draft, the current step form, the attachments and the
// last notification. It is the only writer of the draft. A Controller is not
// safe for concurrent use; callers serialise access per wizard.
type Controller struct {
	state   State
	draft   model.Draft
	form    *StepForm
	uploads *Aggregator
	notice  *Notification
}

// New returns a controller on the first step with an empty draft.
func New() *Controller {
	c := &Controller{
		state:   StateStep1,
		draft:   model.NewDraft(),
		uploads: NewAggregator(),
	}
	c.form, _ = NewStepForm(StepDemographic, c.draft)
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Step returns the form step on screen.
func (c *Controller) Step() Step { return c.state.Step() }

// Draft returns the cumulative draft.
func (c *Controller) Draft() model.Draft { return c.draft.Merge(model.Delta{}) }

// Form returns the current step form.
func (c *Controller) Form() *StepForm { return c.form }

// Uploads returns the attachment aggregator.
func (c *Controller) Uploads() *Aggregator { return c.uploads }

// Notification returns the last submission notice, if any.
func (c *Controller) Notification() *Notification { return c.notice }

// EditField forwards a change of the current step's field.
func (c *Controller) EditField(field, value string) error {
	if err := c.CheckEditable(); err != nil {
		return err
	}
	return c.form.Change(field, value)
}

// TouchField forwards a blur of the current step's field.
func (c *Controller) TouchField(field string) error {
	if err := c.CheckEditable(); err != nil {
		return err
	}
	return c.form.Blur(field)
}

// AddFile attaches a file to a category.
func (c *Controller) AddFile(cat model.Category, ref model.FileRef) (AddResult, error) {
	if err := c.CheckEditable(); err != nil {
		return 0, err
	}
	res, err := c.uploads.Add(cat, ref)
	if err == nil {
		c.form.clearError(string(cat))
	}
	return res, err
}

// RemoveFile detaches a file from a category.
func (c *Controller) RemoveFile(cat model.Category, handle string) (model.FileRef, bool, error) {
	if err := c.CheckEditable(); err != nil {
		return model.FileRef{}, false, err
	}
	return c.uploads.Remove(cat, handle)
}

// Advance applies values to the current form and submits it. Validation
// failure returns ErrValidation and leaves the state unchanged. On success
// the delta is merged into the draft and the next step is seeded; from the
// visit step the controller enters Submitting and Outcome.Submit is set.
func (c *Controller) Advance(values map[string]string) (Outcome, error) {
	from := c.state
	to, err := Next(from, EventAdvance)
	if err != nil {
		return Outcome{From: from, To: from}, err
	}
	// Every key is checked before any is applied so a bad map changes nothing.
	keys := slices.Sorted(maps.Keys(values))
	for _, k := range keys {
		if !c.form.ownsText(k) {
			return Outcome{From: from, To: from}, fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
	}
	for _, k := range keys {
		if err := c.form.Change(k, values[k]); err != nil {
			return Outcome{From: from, To: from}, fmt.Errorf("%w: %s", err, k)
		}
	}

	var files FileSource
	if c.form.Step() == StepVisit {
		files = c.uploads
	}
	delta, ok := c.form.Submit(files)
	if !ok {
		return Outcome{From: from, To: from}, ErrValidation
	}
	c.draft = c.draft.Merge(delta)
	c.state = to
	c.notice = nil

	if to == StateSubmitting {
		return Outcome{From: from, To: to, Submit: true}, nil
	}
	c.form, err = NewStepForm(to.Step(), c.draft)
	if err != nil {
		return Outcome{From: from, To: to}, err
	}
	return Outcome{From: from, To: to}, nil
}

// Retreat moves one step back. The leaving step's in-progress values are
// merged into the draft first so a later return shows them again.
func (c *Controller) Retreat() error {
	to, err := Next(c.state, EventRetreat)
	if err != nil {
		return err
	}
	c.draft = c.draft.Merge(model.Delta{Fields: c.form.Values()})
	form, err := NewStepForm(to.Step(), c.draft)
	if err != nil {
		return err
	}
	c.state = to
	c.form = form
	c.notice = nil
	return nil
}

// CompleteSubmission records the result of the submission started by
// Advance. A nil err moves to Done, anything else to Failed with the draft
// and attachments left intact for a retry.
func (c *Controller) CompleteSubmission(submitErr error) error {
	ev := EventSubmitSucceeded
	notice := &Notification{Level: NoticeSuccess, Message: MessageSubmitted}
	if submitErr != nil {
		ev = EventSubmitFailed
		notice = &Notification{Level: NoticeError, Message: MessageSubmitFailed}
	}
	to, err := Next(c.state, ev)
	if err != nil {
		return err
	}
	c.state = to
	c.notice = notice
	return nil
}

// Reset returns a finished wizard to the first step with an empty draft.
func (c *Controller) Reset() error {
	to, err := Next(c.state, EventReset)
	if err != nil {
		return err
	}
	c.state = to
	c.draft = model.NewDraft()
	c.uploads.Clear()
	c.notice = nil
	c.form, err = NewStepForm(to.Step(), c.draft)
	return err
}

// CheckEditable returns nil when the draft may still be edited: ErrSubmissionInFlight
// while submitting, ErrInvalidTransition once finished.
func (c *Controller) CheckEditable() error {
	if c.state.Editable() {
		return nil
	}
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	return fmt.Errorf("%w: wizard is %s", ErrInvalidTransition, c.state)
}

// Snapshot is the persistable form of a controller.
type Snapshot struct {
	State   State                              `json:"state"`
	Draft   model.Draft                        `json:"draft"`
	Form    FormState                          `json:"form"`
	Uploads map[model.Category][]model.FileRef `json:"uploads,omitempty"`
	Notice  *Notification                      `json:"notice,omitempty"`
}

// Snapshot captures the controller's full state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:   c.state,
		Draft:   c.Draft(),
		Form:    c.form.state(),
		Uploads: c.uploads.snapshot(),
		Notice:  c.notice,
	}
}

// Restore rebuilds a controller from a snapshot.
func Restore(s Snapshot) (*Controller, error) {
	if !s.State.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, s.State)
	}
	draft := s.Draft
	if draft.Fields == nil {
		draft.Fields = map[string]string{}
	}
	c := &Controller{
		state:   s.State,
		draft:   draft,
		uploads: NewAggregator(),
		notice:  s.Notice,
	}
	for _, cat := range model.Categories {
		for _, ref := range s.Uploads[cat] {
			if _, err := c.uploads.Add(cat, ref); err != nil {
				return nil, err
			}
		}
	}
	fs := s.Form
	if fs.Step == 0 {
		fs.Step = s.State.Step()
	}
	form, err := restoreForm(fs, draft)
	if err != nil {
		return nil, err
	}
	c.form = form
	return c, nil
}

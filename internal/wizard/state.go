// Package wizard implements the three-step patient intake flow: step forms
// with local validation, the upload aggregator and the controller that owns
// the cumulative draft.
package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("invalid wizard transition")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrValidation         = errors.New("step validation failed")
	ErrUnknownField       = errors.New("field not owned by current step")
	ErrUnknownCategory    = errors.New("unknown attachment category")
	ErrCategoryFull       = errors.New("attachment category is full")
	ErrUnknownStep        = errors.New("unknown wizard step")
)

// State is the closed set of wizard states.
type State string

const (
	StateStep1      State = "step1"
	StateStep2      State = "step2"
	StateStep3      State = "step3"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Event drives a state transition.
type Event string

const (
	EventAdvance         Event = "advance"
	EventRetreat         Event = "retreat"
	EventSubmitSucceeded Event = "submit_succeeded"
	EventSubmitFailed    Event = "submit_failed"
	EventReset           Event = "reset"
)

// transitions is the complete transition table; anything missing is rejected.
var transitions = map[State]map[Event]State{
	StateStep1: {
		EventAdvance: StateStep2,
	},
	StateStep2: {
		EventAdvance: StateStep3,
		EventRetreat: StateStep1,
	},
	StateStep3: {
		EventAdvance: StateSubmitting,
		EventRetreat: StateStep2,
	},
	StateSubmitting: {
		EventSubmitSucceeded: StateDone,
		EventSubmitFailed:    StateFailed,
	},
	StateFailed: {
		EventAdvance: StateSubmitting,
		EventRetreat: StateStep2,
	},
	StateDone: {
		EventReset: StateStep1,
	},
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	if s == StateSubmitting && (e == EventAdvance || e == EventRetreat) {
		return s, ErrSubmissionInFlight
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Step is the 1-based index of a form step.
type Step int

const (
	StepDemographic Step = 1
	StepClinical    Step = 2
	StepVisit       Step = 3
)

// Step returns the form step shown in state s. Submission states keep the
// visit step on screen.
func (s State) Step() Step {
	switch s {
	case StateStep1:
		return StepDemographic
	case StateStep2:
		return StepClinical
	default:
		return StepVisit
	}
}

// Editable reports whether the form and attachments accept changes in s.
func (s State) Editable() bool {
	switch s {
	case StateStep1, StateStep2, StateStep3, StateFailed:
		return true
	}
	return false
}

// NoticeLevel classifies a transient notification.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notification is the toast-style message produced by a submission.
type Notification struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

const (
	MessageSubmitted    = "Patient added successfully!"
	MessageSubmitFailed = "Failed to add patient. Please try again."
)

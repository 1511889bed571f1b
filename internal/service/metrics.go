package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"clinicdesk/internal/wizard"
)

// WizardMetrics counts wizard activity.
type WizardMetrics struct {
	transitions *prometheus.CounterVec
	submissions *prometheus.CounterVec
	uploads     *prometheus.CounterVec
}

// NewWizardMetrics registers the wizard counters on reg.
func NewWizardMetrics(reg prometheus.Registerer) (*WizardMetrics, error) {
	m := &WizardMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Wizard state transitions.",
		}, []string{"from", "to"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_submissions_total",
			Help: "Patient submissions by result.",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_uploads_total",
			Help: "Attachment uploads by category and result.",
		}, []string{"category", "result"}),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.submissions, m.uploads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *WizardMetrics) transition(from, to wizard.State) {
	if m == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *WizardMetrics) submission(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *WizardMetrics) upload(category, result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(category, result).Inc()
}

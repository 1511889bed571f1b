package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"clinicdesk/internal/validation"
	"clinicdesk/internal/wizard"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	noticeBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

var stepTitles = map[wizard.Step]string{
	wizard.StepDemographic: "Patient identity",
	wizard.StepClinical:    "Clinical information",
	wizard.StepVisit:       "Visit and attachments",
}

func renderHeader(step wizard.Step) string {
	return titleStyle.Render(fmt.Sprintf("Step %d of 3: %s", step, stepTitles[step]))
}

func renderErrors(errs validation.Errors) string {
	if len(errs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  %s: %s", labelOf(k), errs[k])))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderNotification(n *wizard.Notification) string {
	if n == nil {
		return ""
	}
	style := errorStyle
	if n.Level == wizard.NoticeSuccess {
		style = successStyle
	}
	return noticeBox.BorderForeground(style.GetForeground()).Render(style.Render(n.Message))
}

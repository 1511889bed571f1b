package clinicapi

import (
	"context"
	"net/http"
	"net/url"

	"clinicdesk/internal/model"
	"clinicdesk/internal/session"
)

func (c *Client) ListAppointments(ctx context.Context, sess session.Session) ([]model.Appointment, error) {
	var out []model.Appointment
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("appointments", "all"), nil, &out)
	return out, err
}

func (c *Client) CreateAppointment(ctx context.Context, sess session.Session, a model.Appointment) error {
	return c.doJSON(ctx, &sess, http.MethodPost, c.endpoint("appointments", a.PatientID, "add"), a, nil)
}

func (c *Client) UpdateAppointment(ctx context.Context, sess session.Session, a model.Appointment) error {
	return c.doJSON(ctx, &sess, http.MethodPut, c.endpoint("appointments", a.PatientID, a.ID), a, nil)
}

func (c *Client) DeleteAppointment(ctx context.Context, sess session.Session, patientID, id string) error {
	return c.doJSON(ctx, &sess, http.MethodDelete, c.endpoint("appointments", patientID, id), nil, nil)
}

// ListVisits returns a patient's visits, narrowed to one visit number when
// visitNumber is not empty.
func (c *Client) ListVisits(ctx context.Context, sess session.Session, patientID, visitNumber string) ([]model.Visit, error) {
	u := c.endpoint("visits", patientID, "all")
	if visitNumber != "" {
		u += "?" + url.Values{"visitNumber": {visitNumber}}.Encode()
	}
	var out []model.Visit
	err := c.doJSON(ctx, &sess, http.MethodGet, u, nil, &out)
	return out, err
}

func (c *Client) GetVisit(ctx context.Context, sess session.Session, patientID, visitID string) (model.Visit, error) {
	var out model.Visit
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("visits", patientID, visitID), nil, &out)
	return out, err
}

func (c *Client) UpdateVisit(ctx context.Context, sess session.Session, patientID, visitID string, v model.Visit) error {
	return c.doJSON(ctx, &sess, http.MethodPut, c.endpoint("visits", patientID, visitID), v, nil)
}

func (c *Client) ListPrescriptions(ctx context.Context, sess session.Session, patientID, visitID string) ([]model.Prescription, error) {
	var out []model.Prescription
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("prescriptions", patientID, visitID, "all"), nil, &out)
	return out, err
}

func (c *Client) GetPrescription(ctx context.Context, sess session.Session, patientID, visitID, id string) (model.Prescription, error) {
	var out model.Prescription
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("prescriptions", patientID, visitID, id), nil, &out)
	return out, err
}

func (c *Client) UpdatePrescription(ctx context.Context, sess session.Session, patientID, visitID, id string, p model.Prescription) error {
	return c.doJSON(ctx, &sess, http.MethodPut, c.endpoint("prescriptions", patientID, visitID, id), p, nil)
}

func (c *Client) ListNotifications(ctx context.Context, sess session.Session) ([]model.Notification, error) {
	var out []model.Notification
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("notifications", "all"), nil, &out)
	return out, err
}

func (c *Client) DeleteNotification(ctx context.Context, sess session.Session, id string) error {
	return c.doJSON(ctx, &sess, http.MethodDelete, c.endpoint("notifications", id), nil, nil)
}

func (c *Client) ListHistory(ctx context.Context, sess session.Session) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("history", "all"), nil, &out)
	return out, err
}

package clinicapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"clinicdesk/internal/model"
	"clinicdesk/internal/session"
)

// CreatePatient posts a multipart patient record to /patients/add. body is
// streamed as is; contentType must carry the multipart boundary.
func (c *Client) CreatePatient(ctx context.Context, sess session.Session, body io.Reader, contentType string) (model.Patient, error) {
	var raw json.RawMessage
	if err := c.do(ctx, &sess, http.MethodPost, c.endpoint("patients", "add"), body, contentType, &raw); err != nil {
		return model.Patient{}, err
	}
	// The answer is either the created record or a {"patient": ...} wrapper.
	var p model.Patient
	if json.Unmarshal(raw, &p) == nil && p.ID != "" {
		return p, nil
	}
	var wrapped struct {
		Patient model.Patient `json:"patient"`
	}
	if json.Unmarshal(raw, &wrapped) == nil {
		return wrapped.Patient, nil
	}
	return model.Patient{}, nil
}

func (c *Client) ListPatients(ctx context.Context, sess session.Session) ([]model.Patient, error) {
	var out []model.Patient
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("patients", "all"), nil, &out)
	return out, err
}

func (c *Client) UpdatePatient(ctx context.Context, sess session.Session, id string, upd model.PatientUpdate) error {
	return c.doJSON(ctx, &sess, http.MethodPut, c.endpoint("patients", id), upd, nil)
}

func (c *Client) DeletePatient(ctx context.Context, sess session.Session, id string) error {
	return c.doJSON(ctx, &sess, http.MethodDelete, c.endpoint("patients", id), nil, nil)
}

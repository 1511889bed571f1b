package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/model"
	"clinicdesk/internal/service"
	"clinicdesk/internal/validation"
)

// deskError is the decoded error envelope of the desk API.
type deskError struct {
	Status  int
	Code    string
	Message string
	Fields  validation.Errors
}

func (e *deskError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// deskClient talks to the clinic desk HTTP API on behalf of one signed-in
// practitioner.
type deskClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

func newDeskClient(baseURL string) *deskClient {
	return &deskClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *deskClient) SignIn(ctx context.Context, cred model.Credentials) (model.AuthResult, error) {
	var out model.AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/auth/signin", cred, &out)
	if err == nil {
		c.token = out.AccessToken
	}
	return out, err
}

func (c *deskClient) CreateWizard(ctx context.Context) (*service.WizardView, error) {
	var v service.WizardView
	return &v, c.doJSON(ctx, http.MethodPost, "/wizards", nil, &v)
}

func (c *deskClient) GetWizard(ctx context.Context, id string) (*service.WizardView, error) {
	var v service.WizardView
	return &v, c.doJSON(ctx, http.MethodGet, "/wizards/"+id, nil, &v)
}

func (c *deskClient) DeleteWizard(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/wizards/"+id, nil, nil)
}

func (c *deskClient) Advance(ctx context.Context, id string, values map[string]string) (*service.WizardView, error) {
	var v service.WizardView
	return &v, c.doJSON(ctx, http.MethodPost, "/wizards/"+id+"/advance", map[string]any{"values": values}, &v)
}

func (c *deskClient) Retreat(ctx context.Context, id string) (*service.WizardView, error) {
	var v service.WizardView
	return &v, c.doJSON(ctx, http.MethodPost, "/wizards/"+id+"/retreat", nil, &v)
}

// Upload attaches the file at path to category. The second result reports
// whether the server already held an identical file.
func (c *deskClient) Upload(ctx context.Context, id string, category model.Category, path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", contentTypeOf(path))
	part, err := mw.CreatePart(h)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return false, err
	}
	if err := mw.Close(); err != nil {
		return false, err
	}

	var out struct {
		Result string `json:"result"`
	}
	err = c.do(ctx, http.MethodPost, "/wizards/"+id+"/files/"+string(category), &body, mw.FormDataContentType(), &out)
	return out.Result == "duplicate", err
}

func contentTypeOf(path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (c *deskClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	if in == nil {
		return c.do(ctx, method, path, nil, "", out)
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(b), "application/json", out)
}

func (c *deskClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set(clinicapi.TokenHeader, c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env struct {
			Error struct {
				Code    string            `json:"code"`
				Message string            `json:"message"`
				Fields  validation.Errors `json:"fields"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &deskError{
			Status:  resp.StatusCode,
			Code:    env.Error.Code,
			Message: env.Error.Message,
			Fields:  env.Error.Fields,
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

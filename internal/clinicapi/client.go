// Package clinicapi is the client of the remote Patient Records API. Every
// call is made on behalf of a session whose token travels in the
// x-access-token header.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clinicdesk/internal/config"
	"clinicdesk/internal/session"
)

// TokenHeader carries the practitioner's access token.
const TokenHeader = "x-access-token"

// APIError is a non-2xx answer of the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clinic api: status %d", e.Status)
	}
	return fmt.Sprintf("clinic api: status %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by an *APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client talks to the Patient Records API. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New returns a client with a traced transport and the configured timeout.
func New(cfg config.ClinicAPIConfig) *Client {
	return NewWithHTTPClient(cfg.URL, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWithHTTPClient returns a client using hc for every request.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{httpClient: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) endpoint(parts ...string) string {
	esc := make([]string, len(parts))
	for i, p := range parts {
		esc[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(esc, "/")
}

// do sends one request and decodes a JSON answer into out when out is not nil.
// A missing session is only allowed for the unauthenticated user routes.
func (c *Client) do(ctx context.Context, sess *session.Session, method, u string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if sess != nil {
		req.Header.Set(TokenHeader, sess.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, sess *session.Session, method, u string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		ct = "application/json"
	}
	return c.do(ctx, sess, method, u, body, ct, out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Message is the generic {"message": ...} answer of mutating calls.
type Message struct {
	Message string `json:"message"`
}

// Package session carries the practitioner's access token from the inbound
// request to the Patient Records API calls made on their behalf.
package session

import (
	"errors"
	"strings"
)

// ErrMissing is returned when a request carries no access token.
var ErrMissing = errors.New("missing access token")

// Session is the authenticated caller. Token is opaque to this service and is
// forwarded verbatim as the x-access-token header.
type Session struct {
	Token string
}

// New returns a session for token.
func New(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrMissing
	}
	return Session{Token: token}, nil
}

// FromHeaders picks the token from the x-access-token header, falling back
// to an "Authorization: Bearer" header.
func FromHeaders(accessToken, authorization string) (Session, error) {
	if s, err := New(accessToken); err == nil {
		return s, nil
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return Session{}, ErrMissing
	}
	return New(token)
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool { return s.Token != "" }

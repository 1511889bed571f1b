package clinicapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"clinicdesk/internal/model"
	"clinicdesk/internal/session"
)

func (c *Client) SignIn(ctx context.Context, cred model.Credentials) (model.AuthResult, error) {
	var out model.AuthResult
	err := c.doJSON(ctx, nil, http.MethodPost, c.endpoint("users", "signin"), cred, &out)
	return out, err
}

func (c *Client) SignUp(ctx context.Context, su model.SignUp) (model.AuthResult, error) {
	var out model.AuthResult
	err := c.doJSON(ctx, nil, http.MethodPost, c.endpoint("users", "signup"), su, &out)
	return out, err
}

// VerifyToken succeeds when the API still accepts the session's token.
func (c *Client) VerifyToken(ctx context.Context, sess session.Session) error {
	return c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("users", "verifyToken"), nil, nil)
}

func (c *Client) Logout(ctx context.Context, sess session.Session) error {
	return c.doJSON(ctx, &sess, http.MethodPost, c.endpoint("users", "logout"), nil, nil)
}

func (c *Client) GetProfile(ctx context.Context, sess session.Session) (model.Profile, error) {
	var out model.Profile
	err := c.doJSON(ctx, &sess, http.MethodGet, c.endpoint("users", "profile"), nil, &out)
	return out, err
}

// ProfilePhoto is an optional picture sent with a profile update.
type ProfilePhoto struct {
	Filename string
	Content  io.Reader
}

// UpdateProfile sends the profile as multipart form data, with the photo
// part only when photo is not nil.
func (c *Client) UpdateProfile(ctx context.Context, sess session.Session, p model.Profile, photo *ProfilePhoto) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, kv := range [][2]string{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"email", p.Email},
		{"phoneNumber", p.PhoneNumber},
		{"specialty", p.Specialty},
		{"username", p.Username},
	} {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}
	if photo != nil {
		part, err := mw.CreateFormFile("profilePhoto", photo.Filename)
		if err != nil {
			return fmt.Errorf("create photo part: %w", err)
		}
		if _, err := io.Copy(part, photo.Content); err != nil {
			return fmt.Errorf("copy photo: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	return c.do(ctx, &sess, http.MethodPut, c.endpoint("users", "profile"), &buf, mw.FormDataContentType(), nil)
}

func (c *Client) UpdatePassword(ctx context.Context, sess session.Session, pc model.PasswordChange) error {
	return c.doJSON(ctx, &sess, http.MethodPut, c.endpoint("users", "updatePassword"), pc, nil)
}

// ResetPassword redeems an emailed reset token. Only the new password is sent.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var out Message
	err := c.doJSON(ctx, nil, http.MethodPost, c.endpoint("users", "reset-password", token),
		map[string]string{"newPassword": newPassword}, &out)
	return out.Message, err
}

package middleware

import (
	"github.com/gofiber/fiber/v2"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/session"
)

// SessionLocalKey is the fiber locals key holding the session.Session.
const SessionLocalKey = "session"

// Session reads the caller's access token into locals. Requests without a
// token pass through with no session; RequireSession rejects them.
func Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s, err := session.FromHeaders(c.Get(clinicapi.TokenHeader), c.Get(fiber.HeaderAuthorization)); err == nil {
			c.Locals(SessionLocalKey, s)
		}
		return c.Next()
	}
}

// RequireSession answers 401 through the application's error handler when
// Session found no token.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFrom(c); !ok {
			return fiber.NewError(fiber.StatusUnauthorized, session.ErrMissing.Error())
		}
		return c.Next()
	}
}

// SessionFrom returns the session stored by Session.
func SessionFrom(c *fiber.Ctx) (session.Session, bool) {
	s, ok := c.Locals(SessionLocalKey).(session.Session)
	return s, ok && s.Valid()
}

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/http/middleware"
	"clinicdesk/internal/service"
	"clinicdesk/internal/session"
	"clinicdesk/internal/validation"
	"clinicdesk/internal/wizard"
)

// errorPayload is the standard error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  validation.Errors `json:"fields,omitempty"`
}

// writeError writes the error envelope. message must be safe to show.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

func writeFieldErrors(c *fiber.Ctx, fields validation.Errors) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    "VALIDATION_FAILED",
			Message: "validation failed",
			Fields:  fields,
		},
	})
}

func invalidBody(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
}

// respondError maps service, wizard and upstream errors onto the envelope.
// Anything unrecognised is logged and answered with a bare 500.
func respondError(c *fiber.Ctx, err error) error {
	var verr *validation.Error
	var apiErr *clinicapi.APIError
	switch {
	case errors.As(err, &verr):
		return writeFieldErrors(c, verr.Fields)
	case errors.Is(err, wizard.ErrCategoryFull):
		return writeError(c, fiber.StatusUnprocessableEntity, "CATEGORY_FULL",
			fmt.Sprintf("Maximum of %d files allowed", validation.MaxFilesPerCategory))
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		return writeError(c, fiber.StatusConflict, "SUBMISSION_IN_FLIGHT", "submission already in progress")
	case errors.Is(err, wizard.ErrInvalidTransition):
		return writeError(c, fiber.StatusConflict, "INVALID_TRANSITION", "action not allowed in the current step")
	case errors.Is(err, wizard.ErrUnknownField):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
	case errors.Is(err, wizard.ErrUnknownCategory):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_CATEGORY", "unknown attachment category")
	case errors.Is(err, service.ErrUnsupportedMedia):
		return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "file type is not accepted")
	case errors.Is(err, service.ErrWizardNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "wizard not found")
	case errors.Is(err, service.ErrFileNotFound):
		return writeError(c, fiber.StatusNotFound, "FILE_NOT_FOUND", "attachment not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, session.ErrMissing):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = fiber.StatusBadGateway
		}
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return writeError(c, status, "UPSTREAM_ERROR", msg)
	}
	zerolog.Ctx(c.UserContext()).Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns the Fiber global error handler.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			return respondError(c, err)
		}

		switch fe.Code {
		case fiber.StatusBadRequest:
			return writeError(c, fe.Code, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, fe.Code, "UNAUTHORIZED", "missing access token")
		case fiber.StatusNotFound:
			return writeError(c, fe.Code, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, fe.Code, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, fe.Code, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, fe.Code, "INTERNAL_ERROR", "internal server error")
		}
	}
}

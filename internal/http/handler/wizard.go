package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"clinicdesk/internal/http/middleware"
	"clinicdesk/internal/service"
	"clinicdesk/internal/wizard"
)

type valuesRequest struct {
	Values map[string]string `json:"values"`
}

type touchRequest struct {
	Fields []string `json:"fields"`
}

type uploadResponse struct {
	*service.WizardView
	Result string `json:"result"`
}

// CreateWizard starts a new intake wizard on the first step.
//
// @Summary  Start an intake wizard
// @Tags     wizards
// @Produce  json
// @Success  201 {object} service.WizardView
// @Router   /wizards [post]
func CreateWizard(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Create(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// ListWizards pages through the stored wizards.
//
// @Summary  List intake wizards
// @Tags     wizards
// @Produce  json
// @Param    limit  query int false "page size"
// @Param    offset query int false "offset"
// @Success  200 {object} service.WizardListResult
// @Router   /wizards [get]
func ListWizards(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// GetWizard returns the current view of a wizard.
//
// @Summary  Get an intake wizard
// @Tags     wizards
// @Produce  json
// @Param    id path string true "wizard id"
// @Success  200 {object} service.WizardView
// @Failure  404 {object} errorPayload
// @Router   /wizards/{id} [get]
func GetWizard(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(v)
	}
}

// DeleteWizard discards a wizard and its staged files.
//
// @Summary  Discard an intake wizard
// @Tags     wizards
// @Param    id path string true "wizard id"
// @Success  204
// @Failure  409 {object} errorPayload
// @Router   /wizards/{id} [delete]
func DeleteWizard(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// EditWizardFields applies field changes to the current step.
//
// @Summary  Edit fields of the current step
// @Tags     wizards
// @Accept   json
// @Produce  json
// @Param    id   path string        true "wizard id"
// @Param    body body valuesRequest true "field values"
// @Success  200 {object} service.WizardView
// @Router   /wizards/{id}/fields [patch]
func EditWizardFields(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req valuesRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		v, err := svc.EditFields(c.UserContext(), c.Params("id"), req.Values)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(v)
	}
}

// TouchWizardFields marks fields as visited so their errors are shown.
//
// @Summary  Mark fields as touched
// @Tags     wizards
// @Accept   json
// @Produce  json
// @Param    id   path string       true "wizard id"
// @Param    body body touchRequest true "field names"
// @Success  200 {object} service.WizardView
// @Router   /wizards/{id}/touch [post]
func TouchWizardFields(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req touchRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		v, err := svc.Touch(c.UserContext(), c.Params("id"), req.Fields)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(v)
	}
}

// AdvanceWizard validates the current step and moves on. From the visit
// step it submits the patient and answers once the outcome is known.
//
// @Summary  Advance to the next step
// @Tags     wizards
// @Accept   json
// @Produce  json
// @Param    id   path string        true  "wizard id"
// @Param    body body valuesRequest false "last field values"
// @Success  200 {object} service.WizardView
// @Failure  409 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /wizards/{id}/advance [post]
func AdvanceWizard(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req valuesRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return invalidBody(c)
			}
		}
		sess, _ := middleware.SessionFrom(c)
		v, err := svc.Advance(c.UserContext(), sess, c.Params("id"), req.Values)
		if errors.Is(err, wizard.ErrValidation) && v != nil {
			return writeFieldErrors(c, v.Errors)
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(v)
	}
}

// RetreatWizard goes back one step, keeping what was typed.
//
// @Summary  Go back one step
// @Tags     wizards
// @Produce  json
// @Param    id path string true "wizard id"
// @Success  200 {object} service.WizardView
// @Router   /wizards/{id}/retreat [post]
func RetreatWizard(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.Retreat(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(v)
	}
}

// UploadWizardFile attaches a file (multipart field "file") to a category.
// A file whose content is already attached answers 200 with result
// "duplicate"; a new one answers 201.
//
// @Summary  Attach a report or image
// @Tags     wizards
// @Accept   multipart/form-data
// @Produce  json
// @Param    id       path     string true "wizard id"
// @Param    category path     string true "reports or images"
// @Param    file     formData file   true "attachment"
// @Success  201 {object} uploadResponse
// @Failure  415 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /wizards/{id}/files/{category} [post]
func UploadWizardFile(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get(fiber.HeaderContentType)
		if ct == "" {
			ct = "application/octet-stream"
		}
		v, res, err := svc.AddFile(c.UserContext(), c.Params("id"), c.Params("category"), service.Upload{
			Filename:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Body:        f,
		})
		if err != nil {
			return respondError(c, err)
		}
		if res == wizard.Duplicate {
			return c.JSON(uploadResponse{WizardView: v, Result: "duplicate"})
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{WizardView: v, Result: "added"})
	}
}

// PreviewWizardFile redirects to a short-lived download URL of a staged
// attachment.
//
// @Summary  Preview an attachment
// @Tags     wizards
// @Param    id       path string true "wizard id"
// @Param    category path string true "reports or images"
// @Param    handle   path string true "file handle"
// @Success  302
// @Failure  404 {object} errorPayload
// @Router   /wizards/{id}/files/{category}/{handle} [get]
func PreviewWizardFile(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := svc.FileURL(c.UserContext(), c.Params("id"), c.Params("category"), c.Params("handle"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Redirect(u, fiber.StatusFound)
	}
}

// RemoveWizardFile detaches a file by handle. Unknown handles are a no-op.
//
// @Summary  Remove an attachment
// @Tags     wizards
// @Produce  json
// @Param    id       path string true "wizard id"
// @Param    category path string true "reports or images"
// @Param    handle   path string true "file handle"
// @Success  200 {object} service.WizardView
// @Router   /wizards/{id}/files/{category}/{handle} [delete]
func RemoveWizardFile(svc service.WizardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := svc.RemoveFile(c.UserContext(), c.Params("id"), c.Params("category"), c.Params("handle"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(v)
	}
}

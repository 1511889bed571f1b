package handler

import (
	"github.com/gofiber/fiber/v2"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/model"
	"clinicdesk/internal/service"
)

type messageResponse struct {
	Message string `json:"message"`
}

// SignIn exchanges credentials for an access token. The answer is flat:
// accessToken next to the profile fields.
//
// @Summary  Sign in
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body model.Credentials true "credentials"
// @Success  200 {object} model.AuthResult
// @Failure  422 {object} errorPayload
// @Router   /auth/signin [post]
func SignIn(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cred model.Credentials
		if err := c.BodyParser(&cred); err != nil {
			return invalidBody(c)
		}
		out, err := svc.SignIn(c.UserContext(), cred)
		return sendJSON(c, out, err)
	}
}

func SignUp(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var su model.SignUp
		if err := c.BodyParser(&su); err != nil {
			return invalidBody(c)
		}
		out, err := svc.SignUp(c.UserContext(), su)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	}
}

func VerifyToken(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.VerifyToken(c.UserContext(), sessionOf(c)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"valid": true})
	}
}

func Logout(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return noContent(c, svc.Logout(c.UserContext(), sessionOf(c)))
	}
}

// ResetPassword redeems the emailed token in the path.
func ResetPassword(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var r model.PasswordReset
		if err := c.BodyParser(&r); err != nil {
			return invalidBody(c)
		}
		msg, err := svc.ResetPassword(c.UserContext(), c.Params("token"), r)
		return sendJSON(c, messageResponse{Message: msg}, err)
	}
}

func GetProfile(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Profile(c.UserContext(), sessionOf(c))
		return sendJSON(c, out, err)
	}
}

// UpdateProfile takes multipart form fields plus an optional
// "profilePhoto" file.
func UpdateProfile(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := model.Profile{
			FirstName:   c.FormValue("firstName"),
			LastName:    c.FormValue("lastName"),
			Username:    c.FormValue("username"),
			Email:       c.FormValue("email"),
			PhoneNumber: c.FormValue("phoneNumber"),
			Specialty:   c.FormValue("specialty"),
		}

		var photo *clinicapi.ProfilePhoto
		if fh, err := c.FormFile("profilePhoto"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			photo = &clinicapi.ProfilePhoto{Filename: fh.Filename, Content: f}
		}
		return noContent(c, svc.UpdateProfile(c.UserContext(), sessionOf(c), p, photo))
	}
}

func ChangePassword(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var pc model.PasswordChange
		if err := c.BodyParser(&pc); err != nil {
			return invalidBody(c)
		}
		return noContent(c, svc.ChangePassword(c.UserContext(), sessionOf(c), pc))
	}
}

package handler

import (
	"github.com/gofiber/fiber/v2"

	"clinicdesk/internal/http/middleware"
	"clinicdesk/internal/model"
	"clinicdesk/internal/service"
	"clinicdesk/internal/session"
)

type historyItem struct {
	model.HistoryEntry
	Verb string `json:"verb"`
}

func sessionOf(c *fiber.Ctx) session.Session {
	s, _ := middleware.SessionFrom(c)
	return s
}

func noContent(c *fiber.Ctx, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func sendJSON[T any](c *fiber.Ctx, v T, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(v)
}

// ListPatients answers the dashboard list, optionally filtered by the
// first-name prefix in ?q=.
//
// @Summary  List patients
// @Tags     patients
// @Produce  json
// @Param    q query string false "first name prefix"
// @Success  200 {array} model.Patient
// @Router   /patients [get]
func ListPatients(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Patients(c.UserContext(), sessionOf(c), c.Query("q"))
		return sendJSON(c, out, err)
	}
}

// UpdatePatient replaces an existing patient's record.
//
// @Summary  Update a patient
// @Tags     patients
// @Accept   json
// @Param    id   path string              true "patient id"
// @Param    body body model.PatientUpdate true "record"
// @Success  204
// @Failure  422 {object} errorPayload
// @Router   /patients/{id} [put]
func UpdatePatient(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var upd model.PatientUpdate
		if err := c.BodyParser(&upd); err != nil {
			return invalidBody(c)
		}
		return noContent(c, svc.UpdatePatient(c.UserContext(), sessionOf(c), c.Params("id"), upd))
	}
}

func DeletePatient(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return noContent(c, svc.DeletePatient(c.UserContext(), sessionOf(c), c.Params("id")))
	}
}

func ListAppointments(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Appointments(c.UserContext(), sessionOf(c))
		return sendJSON(c, out, err)
	}
}

// SaveAppointment creates an appointment on POST and updates the one named
// by the path on PUT.
func SaveAppointment(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var a model.Appointment
		if err := c.BodyParser(&a); err != nil {
			return invalidBody(c)
		}
		if id := c.Params("id"); id != "" {
			a.ID = id
			a.PatientID = c.Params("patientId")
		}
		if err := svc.SaveAppointment(c.UserContext(), sessionOf(c), a); err != nil {
			return respondError(c, err)
		}
		if a.ID == "" {
			return c.SendStatus(fiber.StatusCreated)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func DeleteAppointment(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return noContent(c, svc.DeleteAppointment(c.UserContext(), sessionOf(c), c.Params("patientId"), c.Params("id")))
	}
}

// ListVisits lists a patient's visits. With ?visitNumber= present the list
// is filtered and the number becomes mandatory.
func ListVisits(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pid := c.Params("patientId")
		if c.Context().QueryArgs().Has("visitNumber") {
			out, err := svc.SearchVisits(c.UserContext(), sessionOf(c), pid, c.Query("visitNumber"))
			return sendJSON(c, out, err)
		}
		out, err := svc.Visits(c.UserContext(), sessionOf(c), pid)
		return sendJSON(c, out, err)
	}
}

func GetVisit(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Visit(c.UserContext(), sessionOf(c), c.Params("patientId"), c.Params("visitId"))
		return sendJSON(c, out, err)
	}
}

func UpdateVisit(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var v model.Visit
		if err := c.BodyParser(&v); err != nil {
			return invalidBody(c)
		}
		return noContent(c, svc.UpdateVisit(c.UserContext(), sessionOf(c), c.Params("patientId"), c.Params("visitId"), v))
	}
}

func ListPrescriptions(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Prescriptions(c.UserContext(), sessionOf(c), c.Params("patientId"), c.Params("visitId"))
		return sendJSON(c, out, err)
	}
}

func GetPrescription(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Prescription(c.UserContext(), sessionOf(c), c.Params("patientId"), c.Params("visitId"), c.Params("rxId"))
		return sendJSON(c, out, err)
	}
}

// UpdatePrescription replaces the medication lines of a prescription.
// Line errors come back keyed "Medications.<index>.<field>".
func UpdatePrescription(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p model.Prescription
		if err := c.BodyParser(&p); err != nil {
			return invalidBody(c)
		}
		return noContent(c, svc.UpdatePrescription(c.UserContext(), sessionOf(c),
			c.Params("patientId"), c.Params("visitId"), c.Params("rxId"), p))
	}
}

func ListNotifications(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.Notifications(c.UserContext(), sessionOf(c))
		return sendJSON(c, out, err)
	}
}

func DeleteNotification(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return noContent(c, svc.DeleteNotification(c.UserContext(), sessionOf(c), c.Params("id")))
	}
}

// ListHistory returns the audit log with display verbs.
func ListHistory(svc service.ClinicService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := svc.History(c.UserContext(), sessionOf(c))
		if err != nil {
			return respondError(c, err)
		}
		out := make([]historyItem, 0, len(entries))
		for _, e := range entries {
			out = append(out, historyItem{HistoryEntry: e, Verb: e.Verb()})
		}
		return c.JSON(out)
	}
}

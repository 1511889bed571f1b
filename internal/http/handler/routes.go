package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"clinicdesk/internal/http/middleware"
	"clinicdesk/internal/service"
)

// RegisterRoutes attaches the health, wizard, clinic and account routes.
// Everything except health, sign-in, sign-up and password reset requires
// an access token.
func RegisterRoutes(app *fiber.App, db *sql.DB, wizards service.WizardService, clinic service.ClinicService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Use(middleware.Session())

	auth := app.Group("/auth")
	auth.Post("/signin", SignIn(clinic))
	auth.Post("/signup", SignUp(clinic))
	auth.Post("/reset-password/:token", ResetPassword(clinic))

	protected := middleware.RequireSession()
	auth.Post("/logout", protected, Logout(clinic))
	auth.Get("/verify", protected, VerifyToken(clinic))

	profile := app.Group("/profile", protected)
	profile.Get("/", GetProfile(clinic))
	profile.Put("/", UpdateProfile(clinic))
	profile.Put("/password", ChangePassword(clinic))

	w := app.Group("/wizards", protected)
	w.Post("/", CreateWizard(wizards))
	w.Get("/", ListWizards(wizards))
	w.Get("/:id", GetWizard(wizards))
	w.Delete("/:id", DeleteWizard(wizards))
	w.Patch("/:id/fields", EditWizardFields(wizards))
	w.Post("/:id/touch", TouchWizardFields(wizards))
	w.Post("/:id/advance", AdvanceWizard(wizards))
	w.Post("/:id/retreat", RetreatWizard(wizards))
	w.Post("/:id/files/:category", UploadWizardFile(wizards))
	w.Get("/:id/files/:category/:handle", PreviewWizardFile(wizards))
	w.Delete("/:id/files/:category/:handle", RemoveWizardFile(wizards))

	p := app.Group("/patients", protected)
	p.Get("/", ListPatients(clinic))
	p.Put("/:id", UpdatePatient(clinic))
	p.Delete("/:id", DeletePatient(clinic))
	p.Get("/:patientId/visits", ListVisits(clinic))
	p.Get("/:patientId/visits/:visitId", GetVisit(clinic))
	p.Put("/:patientId/visits/:visitId", UpdateVisit(clinic))
	p.Get("/:patientId/visits/:visitId/prescriptions", ListPrescriptions(clinic))
	p.Get("/:patientId/visits/:visitId/prescriptions/:rxId", GetPrescription(clinic))
	p.Put("/:patientId/visits/:visitId/prescriptions/:rxId", UpdatePrescription(clinic))

	a := app.Group("/appointments", protected)
	a.Get("/", ListAppointments(clinic))
	a.Post("/", SaveAppointment(clinic))
	a.Put("/:patientId/:id", SaveAppointment(clinic))
	a.Delete("/:patientId/:id", DeleteAppointment(clinic))

	n := app.Group("/notifications", protected)
	n.Get("/", ListNotifications(clinic))
	n.Delete("/:id", DeleteNotification(clinic))

	app.Get("/history", protected, ListHistory(clinic))
}

package routes

import (
	"github.com/dentiste/dental-api/controllers"
	"github.com/gofiber/fiber/v2"
)

func SetupPatientRoutes(router fiber.Router, h *controllers.PatientController, guards ...fiber.Handler) {
	patient := router.Group("/patients", guards...)
	patient.Get("/", h.ListPatients)
	patient.Post("/", h.CreatePatient)
	patient.Get("/:id", h.GetPatient)
	patient.Put("/:id", h.UpdatePatient)
	patient.Delete("/:id", h.DeletePatient)
	patient.Post("/:id/pathologies", h.AddPathology)
	patient.Get("/:id/appointments", h.PatientAppointments)
}

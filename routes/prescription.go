package routes

import (
	"github.com/dentiste/dental-api/controllers"
	"github.com/gofiber/fiber/v2"
)

func SetupPrescriptionRoutes(router fiber.Router, h *controllers.PrescriptionController, guards ...fiber.Handler) {
	prescription := router.Group("/prescriptions", guards...)
	prescription.Get("/", h.ListPrescriptions)
	prescription.Post("/", h.CreatePrescription)
	prescription.Get("/:id", h.GetPrescription)
	prescription.Put("/:id", h.UpdatePrescription)
	prescription.Patch("/:id/status", h.UpdatePrescriptionStatus)
	prescription.Delete("/:id", h.DeletePrescription)
}

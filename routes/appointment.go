package routes

import (
	"github.com/dentiste/dental-api/controllers"
	"github.com/gofiber/fiber/v2"
)

// SetupAppointmentRoutes configures all appointment related routes
func SetupAppointmentRoutes(router fiber.Router, h *controllers.AppointmentController, guards ...fiber.Handler) {
	appointment := router.Group("/appointments", guards...)
	appointment.Get("/", h.ListAppointments)
	appointment.Get("/upcoming", h.UpcomingAppointments)
	appointment.Post("/", h.CreateAppointment)
	appointment.Get("/:id", h.GetAppointment)
	appointment.Put("/:id", h.UpdateAppointment)
	appointment.Put("/:id/status", h.UpdateAppointmentStatus)
	appointment.Post("/:id/cancel", h.CancelAppointment)
	appointment.Delete("/:id", h.DeleteAppointment)
}

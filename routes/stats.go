package routes

import (
	"github.com/dentiste/dental-api/controllers"
	"github.com/gofiber/fiber/v2"
)

func SetupStatsRoutes(router fiber.Router, h *controllers.StatsController, guards ...fiber.Handler) {
	stats := router.Group("/stats", guards...)
	stats.Get("/", h.Dashboard)
	stats.Get("/dashboard", h.Dashboard)
	stats.Get("/appointments", h.AppointmentStats)
}

package routes

import (
	"github.com/dentiste/dental-api/controllers"
	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes configures all authentication related routes. limit guards
// the credential endpoints.
func SetupAuthRoutes(router fiber.Router, h *controllers.AuthController, protected, limit fiber.Handler) {
	auth := router.Group("/auth")

	// Public routes
	auth.Post("/register", limit, h.Register)
	auth.Post("/login", limit, h.Login)
	auth.Post("/refresh", limit, h.Refresh)

	// Protected routes
	auth.Get("/me", protected, h.Me)
	auth.Post("/logout", protected, h.Logout)
}

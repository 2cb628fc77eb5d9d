package middleware

import (
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
)

// RequireRole lets the request through when the caller holds one of roles.
// It must run after Protected.
func RequireRole(roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return unauthorized(c, "No authentication token")
		}
		for _, r := range roles {
			if claims.Role == string(r) {
				return c.Next()
			}
		}
		return utils.Fail(c, fiber.StatusForbidden, "Forbidden",
			"You don't have the required role to perform this action")
	}
}

package middleware

import (
	"github.com/dentiste/dental-api/auth"
	"github.com/dentiste/dental-api/logger"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenKey  = "user"
	claimsKey = "claims"
)

// Protected verifies the bearer token, rejects refresh and revoked tokens
// and stores the caller's claims in the request locals.
func Protected(secret []byte, revocations auth.Revocations) fiber.Handler {
	if revocations == nil {
		revocations = auth.NopRevocations{}
	}

	return jwtware.New(jwtware.Config{
		SigningKey:    secret,
		SigningMethod: "HS256",
		ContextKey:    tokenKey,
		Claims:        &auth.Claims{},
		ErrorHandler:  jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenKey).(*jwt.Token)
			if !ok {
				return unauthorized(c, "No authentication token")
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok || claims.ID == 0 || claims.Role == "" {
				return unauthorized(c, "Invalid token claims")
			}
			if claims.Type == auth.TokenRefresh {
				return unauthorized(c, "Refresh tokens cannot be used here")
			}

			revoked, err := revocations.IsRevoked(c.UserContext(), claims.RegisteredClaims.ID)
			if err != nil {
				// fail closed
				logger.From(c).Error().Err(err).Msg("revocation lookup failed")
				return unauthorized(c, "Unable to verify token")
			}
			if revoked {
				return unauthorized(c, "Token has been revoked")
			}

			c.Locals(claimsKey, claims)
			l := logger.From(c).With().Uint("practitioner_id", claims.ID).Logger()
			c.SetUserContext(l.WithContext(c.UserContext()))
			return c.Next()
		},
	})
}

// Claims returns the verified caller, or nil on an unprotected route.
func Claims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(claimsKey).(*auth.Claims)
	return claims
}

// PractitionerID is the tenant id of the caller.
func PractitionerID(c *fiber.Ctx) uint {
	if claims := Claims(c); claims != nil {
		return claims.ID
	}
	return 0
}

func jwtError(c *fiber.Ctx, err error) error {
	return unauthorized(c, "Invalid or expired token")
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", msg)
}

package controllers

import (
	"context"
	"errors"

	"github.com/dentiste/dental-api/auth"
	"github.com/dentiste/dental-api/logger"
	"github.com/dentiste/dental-api/middleware"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

type AuthController struct {
	users       UserStore
	issuer      *auth.Issuer
	revocations auth.Revocations
	clock       utils.Clock
}

func NewAuthController(users UserStore, issuer *auth.Issuer, revocations auth.Revocations, clock utils.Clock) *AuthController {
	if revocations == nil {
		revocations = auth.NopRevocations{}
	}
	if clock == nil {
		clock = utils.SystemClock
	}
	return &AuthController{users: users, issuer: issuer, revocations: revocations, clock: clock}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type sessionResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *models.User `json:"user,omitempty"`
}

func (h *AuthController) session(u *models.User) (*sessionResponse, error) {
	token, _, err := h.issuer.Issue(u)
	if err != nil {
		return nil, err
	}
	refresh, _, err := h.issuer.IssueRefresh(u)
	if err != nil {
		return nil, err
	}
	return &sessionResponse{Token: token, RefreshToken: refresh, User: u}, nil
}

// Register creates a dentist account and logs it in.
func (h *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return fail(c, err)
	}
	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		Role:     models.RoleDentist,
	}
	if err := h.users.CreateUser(c.UserContext(), user); err != nil {
		return fail(c, err)
	}

	resp, err := h.session(user)
	if err != nil {
		return fail(c, err)
	}
	logger.From(c).Info().Uint("user_id", user.ID).Msg("user registered")
	return utils.Created(c, resp)
}

func (h *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	user, err := h.users.FindUserByEmail(c.UserContext(), req.Email)
	if err != nil {
		return fail(c, err)
	}
	// same answer for unknown e-mail and wrong password
	if user == nil || !auth.CheckPassword(user.Password, req.Password) {
		return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid credentials")
	}

	resp, err := h.session(user)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, resp)
}

// Refresh trades a refresh token for a new access token.
func (h *AuthController) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	claims, err := h.issuer.Parse(req.RefreshToken)
	if err != nil || claims.Type != auth.TokenRefresh {
		return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid refresh token")
	}
	revoked, err := h.revocations.IsRevoked(c.UserContext(), claims.RegisteredClaims.ID)
	if err != nil {
		return fail(c, err)
	}
	if revoked {
		return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid refresh token")
	}

	user, err := h.users.FindUserByID(c.UserContext(), claims.ID)
	if err != nil {
		return fail(c, err)
	}
	if user == nil {
		return utils.Fail(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid refresh token")
	}
	token, _, err := h.issuer.Issue(user)
	if err != nil {
		return fail(c, err)
	}
	return utils.OK(c, sessionResponse{Token: token})
}

// Me returns the caller's account.
func (h *AuthController) Me(c *fiber.Ctx) error {
	user, err := h.users.FindUserByID(c.UserContext(), middleware.PractitionerID(c))
	if err != nil {
		return fail(c, err)
	}
	if user == nil {
		return utils.Fail(c, fiber.StatusNotFound, "NotFound", "User not found")
	}
	return utils.OK(c, user)
}

// Logout revokes the presented access token for the rest of its lifetime.
func (h *AuthController) Logout(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	if claims == nil {
		return fail(c, errors.New("logout reached without claims"))
	}
	if err := h.revocations.Revoke(c.UserContext(), claims.RegisteredClaims.ID, claims.ExpiresIn(h.clock.Now())); err != nil {
		return fail(c, err)
	}
	return utils.Message(c, "Successfully logged out")
}

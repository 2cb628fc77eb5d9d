package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dentiste/dental-api/auth"
	"github.com/dentiste/dental-api/middleware"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/store"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu    sync.Mutex
	next  uint
	users map[uint]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uint]*models.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return store.ErrEmailTaken
		}
	}
	f.next++
	u.ID = f.next
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

type session struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

func newAuthEnv(t *testing.T) *appointmentEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	revocations := auth.NewRedisRevocations(client)

	issuer := auth.NewIssuer(testSecret, time.Hour, nil)
	h := NewAuthController(newFakeUsers(), issuer, revocations, nil)

	app := fiber.New()
	app.Post("/api/auth/register", h.Register)
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/auth/refresh", h.Refresh)
	protected := app.Group("/api/auth", middleware.Protected(issuer.Secret(), revocations))
	protected.Get("/me", h.Me)
	protected.Post("/logout", h.Logout)

	return &appointmentEnv{app: app}
}

func decodeSession(t *testing.T, env envelope) session {
	t.Helper()
	var s session
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestAuthFlow(t *testing.T) {
	e := newAuthEnv(t)

	status, env := e.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"name":     "Dr Martin",
		"email":    "Martin@Cabinet.fr",
		"password": "s3cret!",
	})
	require.Equal(t, http.StatusCreated, status)
	reg := decodeSession(t, env)
	require.NotEmpty(t, reg.Token)
	require.NotEmpty(t, reg.RefreshToken)
	assert.Equal(t, models.RoleDentist, reg.User.Role)
	assert.Equal(t, "martin@cabinet.fr", reg.User.Email)

	status, env = e.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"name":     "Dr Martin",
		"email":    "martin@cabinet.fr",
		"password": "another1",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, env = e.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "martin@cabinet.fr",
		"password": "s3cret!",
	})
	require.Equal(t, http.StatusOK, status)
	token := decodeSession(t, env).Token

	status, env = e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, reg.User.ID, me.ID)

	status, _ = e.do(t, http.MethodGet, "/api/auth/me", reg.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", env.Message)

	status, env = e.do(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{"refreshToken": reg.RefreshToken})
	require.Equal(t, http.StatusOK, status)
	fresh := decodeSession(t, env).Token
	require.NotEmpty(t, fresh)

	status, _ = e.do(t, http.MethodGet, "/api/auth/me", fresh, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthRejections(t *testing.T) {
	e := newAuthEnv(t)
	e.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"name": "Dr Petit", "email": "petit@cabinet.fr", "password": "s3cret!",
	})

	status, env := e.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "petit@cabinet.fr", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", env.Message)

	status, env = e.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "nobody@cabinet.fr", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", env.Message)

	status, env = e.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"name": "X", "email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "name")
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")

	status, _ = e.do(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{"refreshToken": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

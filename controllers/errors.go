package controllers

import (
	"errors"
	"strconv"

	"github.com/dentiste/dental-api/logger"
	"github.com/dentiste/dental-api/scheduling"
	"github.com/dentiste/dental-api/store"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
)

// fail is the single place where errors become HTTP responses.
func fail(c *fiber.Ctx, err error) error {
	var (
		verr *ValidationError
		cerr *scheduling.ConflictError
		terr *scheduling.TransitionError
	)

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(utils.Response{
			Error:   "ValidationError",
			Message: verr.Message,
			Errors:  verr.Fields,
		})
	case errors.As(err, &cerr):
		return c.Status(fiber.StatusConflict).JSON(utils.Response{
			Error:     "SchedulingConflict",
			Message:   "This time slot is already taken. Conflicts with: " + cerr.Summary(),
			Conflicts: cerr.Conflicts,
		})
	case errors.As(err, &terr):
		return utils.Fail(c, fiber.StatusBadRequest, "InvalidTransition", terr.Error())
	case errors.Is(err, scheduling.ErrInPast):
		return utils.Fail(c, fiber.StatusBadRequest, "InPast", err.Error())
	case errors.Is(err, scheduling.ErrOutOfHours):
		return utils.Fail(c, fiber.StatusBadRequest, "OutOfHours", err.Error())
	case errors.Is(err, scheduling.ErrAlreadyPast):
		return utils.Fail(c, fiber.StatusBadRequest, "AlreadyPast", err.Error())
	case errors.Is(err, store.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "NotFound", capitalize(err.Error()))
	case errors.Is(err, store.ErrEmailTaken):
		return utils.Fail(c, fiber.StatusConflict, "Conflict", "A user with this email already exists")
	case errors.Is(err, store.ErrDuplicate):
		return utils.Fail(c, fiber.StatusConflict, "Conflict", capitalize(err.Error()))
	case errors.Is(err, store.ErrPatientHasAppointments):
		return utils.Fail(c, fiber.StatusConflict, "Conflict", "Cannot delete a patient who still has appointments")
	}

	logger.From(c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return utils.Fail(c, fiber.StatusInternalServerError, "InternalError", "An unexpected error occurred")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

// paramID reads a positive numeric path parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || v == 0 {
		return 0, invalidField(name, "must be a positive integer")
	}
	return uint(v), nil
}

// queryID reads an optional numeric query parameter; absent is 0.
func queryID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, invalidField(name, "must be a positive integer")
	}
	return uint(v), nil
}

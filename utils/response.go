package utils

import "github.com/gofiber/fiber/v2"

// Response is the envelope of every API reply.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Conflicts any    `json:"conflicts,omitempty"`
	Errors    any    `json:"errors,omitempty"`
}

func OK(c *fiber.Ctx, data any) error {
	return c.JSON(Response{Success: true, Data: data})
}

func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

func Message(c *fiber.Ctx, msg string) error {
	return c.JSON(Response{Success: true, Message: msg})
}

// Fail writes an error envelope. kind is the short machine readable error
// name, msg the human readable one.
func Fail(c *fiber.Ctx, status int, kind, msg string) error {
	return c.Status(status).JSON(Response{Success: false, Error: kind, Message: msg})
}

package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	RequestIDHeader = "X-Request-ID"
	localsKey       = "logger"
	requestIDKey    = "requestID"
)

// New builds the root logger. Development gets the human readable console
// writer, everything else JSON on stdout.
func New(level, env string) zerolog.Logger {
	return NewWithWriter(level, env, os.Stdout)
}

func NewWithWriter(level, env string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Middleware tags every request with an id, attaches a request scoped logger
// to the fiber locals and the user context, and logs the outcome.
func Middleware(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDHeader, rid)

		l := base.With().Str("request_id", rid).Logger()
		c.Locals(requestIDKey, rid)
		c.Locals(localsKey, &l)
		c.SetUserContext(l.WithContext(c.UserContext()))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		evt := l.Info()
		if status >= fiber.StatusInternalServerError {
			evt = l.Error().Err(err)
		} else if status >= fiber.StatusBadRequest {
			evt = l.Warn()
		}
		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("remote_ip", c.IP()).
			Msg("request")

		return err
	}
}

// From returns the request logger, or a disabled logger outside a request.
func From(c *fiber.Ctx) *zerolog.Logger {
	if l, ok := c.Locals(localsKey).(*zerolog.Logger); ok {
		return l
	}
	return Ctx(c.UserContext())
}

// Ctx returns the logger carried by ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

func RequestID(c *fiber.Ctx) string {
	rid, _ := c.Locals(requestIDKey).(string)
	return rid
}

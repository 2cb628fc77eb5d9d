package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/dentiste/dental-api/auth"
	"github.com/dentiste/dental-api/config"
	"github.com/dentiste/dental-api/controllers"
	"github.com/dentiste/dental-api/cron"
	"github.com/dentiste/dental-api/db"
	"github.com/dentiste/dental-api/logger"
	"github.com/dentiste/dental-api/metrics"
	"github.com/dentiste/dental-api/middleware"
	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/redis"
	"github.com/dentiste/dental-api/routes"
	"github.com/dentiste/dental-api/scheduling"
	"github.com/dentiste/dental-api/store"
	"github.com/dentiste/dental-api/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.LogLevel, cfg.Env)

	conn, err := db.Open(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	st := store.New(conn)

	var revocations auth.Revocations = auth.NopRevocations{}
	rdb, err := redis.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		revocations = auth.NewRedisRevocations(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, logout will not revoke tokens")
	}

	m := metrics.New(nil)
	app := newApp(cfg, log, st, revocations, m)

	if cfg.RemindersEnabled {
		reminders := cron.NewReminders(st, utils.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass), cron.ReminderOptions{
			Lead:     time.Duration(cfg.ReminderLeadMinutes) * time.Minute,
			Location: cfg.Location(),
			Recorder: m,
			Logger:   log,
		})
		runner, err := cron.Start(reminders, cron.DefaultSpec, time.Minute)
		if err != nil {
			return err
		}
		defer runner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}

func newApp(cfg *config.Config, log zerolog.Logger, st *store.Store, revocations auth.Revocations, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "dental-api",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(logger.Middleware(log))
	app.Use(m.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return utils.OK(c, fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", m.Handler())

	loc := cfg.Location()
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL(), nil)
	scheduler := scheduling.New(st, scheduling.PolicyFromConfig(cfg), scheduling.WithObserver(m))

	protected := middleware.Protected(issuer.Secret(), revocations)
	staff := middleware.RequireRole(models.RoleDentist, models.RoleAdmin)
	limit := middleware.NewRateLimiter(cfg.LoginRateRPS, cfg.LoginRateBurst).Handler()

	api := app.Group("/api")
	routes.SetupAuthRoutes(api, controllers.NewAuthController(st, issuer, revocations, nil), protected, limit)
	routes.SetupAppointmentRoutes(api, controllers.NewAppointmentController(scheduler, st, nil), protected, staff)
	routes.SetupPatientRoutes(api, controllers.NewPatientController(st, loc, nil), protected, staff)
	routes.SetupPrescriptionRoutes(api, controllers.NewPrescriptionController(st, loc, nil), protected, staff)
	routes.SetupStatsRoutes(api, controllers.NewStatsController(st, loc, nil), protected, staff)

	return app
}

// errorHandler catches what the handlers did not answer themselves, such as
// unknown routes and recovered panics.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.Fail(c, fe.Code, "Error", fe.Message)
	}
	logger.From(c).Error().Err(err).Msg("unhandled error")
	return utils.Fail(c, fiber.StatusInternalServerError, "InternalError", "An unexpected error occurred")
}

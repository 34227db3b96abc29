package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/Anvoria/authgate/internal/config"
	"github.com/Anvoria/authgate/internal/utils"
)

const shutdownTimeout = 10 * time.Second

// NewApp creates the Fiber app with middleware and routes
func NewApp(d *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               d.Config.App.Name,
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var apiErr *utils.APIError
			if errors.As(err, &apiErr) {
				return utils.APIErrorResponse(c, apiErr)
			}

			var e *fiber.Error
			if errors.As(err, &e) {
				return utils.ErrorResponse(c, e.Message, e.Code)
			}

			slog.Error("Unhandled request error", "path", c.Path(), "error", err)
			return utils.APIErrorResponse(c, utils.ErrInternalServer)
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(helmet.New())

	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
	}

	SetupRoutes(app, d)
	return app
}

// Start connects the configured backends and serves HTTP until ctx is done
func Start(ctx context.Context, cfg *config.Config) error {
	InitLogger(cfg.Logging.Level, cfg.Logging.Format)

	d, err := NewDependencies(cfg)
	if err != nil {
		slog.Error("Failed to initialize dependencies", "error", err)
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			slog.Warn("Failed to close dependencies", "error", err)
		}
	}()

	app := NewApp(d)

	go func() {
		<-ctx.Done()
		slog.Info("Server shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Error("Failed to shut down server", "error", err)
		}
	}()

	addr := cfg.Server.Address()
	slog.Info("Server starting",
		"address", addr,
		"app", cfg.App.Name,
		"session_timeout", cfg.Session.MaxDuration(),
	)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

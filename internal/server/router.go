package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Anvoria/authgate/internal/domain/audit"
	"github.com/Anvoria/authgate/internal/domain/auth"
	"github.com/Anvoria/authgate/internal/domain/token"
	"github.com/Anvoria/authgate/internal/utils"
)

// SetupRoutes registers every route on app
func SetupRoutes(app *fiber.App, d *Dependencies) {
	if d.Metrics != nil {
		app.Get(d.Config.Metrics.Path, d.Metrics.Handler())
	}

	app.Get("/.well-known/jwks.json", auth.JWKS(d.KeyStore))

	api := app.Group("/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	authHandler := auth.NewHandler(d.KeyService)

	api.Get("/session", auth.RequireToken(d.Verifier, token.TypeAccess), authHandler.Session)
	api.Post("/session/refresh-check", auth.RequireToken(d.Verifier, token.TypeRefresh), authHandler.Session)
	api.Get("/masquerade/session", auth.RequireToken(d.Verifier, token.TypeMasquerade), authHandler.Session)
	api.Get("/acting-as/session", auth.RequireToken(d.Verifier, token.TypeActingAs), authHandler.Session)

	admin := api.Group("/admin", auth.RequireToken(d.Verifier, token.TypeAccess), auth.RequireAdmin())
	admin.Get("/keys", authHandler.KeysStatus)
	admin.Post("/keys/rotate", authHandler.Rotate)
	admin.Post("/keys/retire-previous", authHandler.RetirePrevious)

	if d.Audit != nil {
		admin.Get("/audits", audit.NewHandler(d.Audit).List)
	}

	if d.Rejections != nil {
		admin.Get("/rejections", rejectionsHandler(d))
	}
}

// rejectionsHandler reports the shared rejection counters for one hour.
// The optional "hour" query parameter is RFC 3339; it defaults to now.
func rejectionsHandler(d *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		at := time.Now()
		if raw := c.Query("hour"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return utils.ErrorResponse(c, "invalid_hour", fiber.StatusBadRequest)
			}
			at = parsed
		}

		counts, err := d.Rejections.Counts(c.UserContext(), at)
		if err != nil {
			return utils.APIErrorResponse(c, utils.ErrInternalServer)
		}

		return utils.SuccessResponse(c, fiber.Map{
			"hour":   at.UTC().Truncate(time.Hour),
			"counts": counts,
		}, "Rejection counters retrieved")
	}
}

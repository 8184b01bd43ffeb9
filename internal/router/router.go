package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/absensi-go-api/internal/config"
	"github.com/noah-isme/absensi-go-api/internal/handler"
	"github.com/noah-isme/absensi-go-api/internal/middleware"
	"github.com/noah-isme/absensi-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ScanHandler       *handler.ScanHandler
	DailyTokenHandler *handler.DailyTokenHandler
	AdminHandler      *handler.AdminHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Scan is authenticated by the rotating token itself, never by JWT.
	if deps.ScanHandler != nil {
		attendance := api.Group("/attendance", middleware.RateLimit("scan", 60, time.Minute))
		deps.ScanHandler.Register(attendance)
	}

	// Companion surface for the QR printing collaborator.
	if deps.DailyTokenHandler != nil {
		qr := api.Group("/qr", jwtMiddleware)
		deps.DailyTokenHandler.Register(qr)
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRoles("admin", "staff"))
		deps.AdminHandler.Register(admin)
	}
}

package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/medico-project/medico-go-api/internal/config"
	"github.com/medico-project/medico-go-api/internal/handler"
	"github.com/medico-project/medico-go-api/internal/middleware"
	"github.com/medico-project/medico-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	ThreadHandler       *handler.ThreadHandler
	AppointmentHandler  *handler.AppointmentHandler
	LinkHandler         *handler.LinkHandler
	ArticleHandler      *handler.ArticleHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP and websocket routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	if deps.ThreadHandler != nil {
		deps.ThreadHandler.Register(protected)
	}
	if deps.AppointmentHandler != nil {
		deps.AppointmentHandler.Register(protected)
	}
	if deps.LinkHandler != nil {
		deps.LinkHandler.Register(protected)
	}
	if deps.ArticleHandler != nil {
		deps.ArticleHandler.Register(protected)
	}

	// Websocket routes sit behind the same JWT middleware; browsers pass the
	// token as a query parameter since they cannot set handshake headers.
	ws := api.Group("/ws", jwtMiddleware, middleware.RateLimit("ws-handshake", 30, time.Minute), upgradeGate)

	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(ws, protected)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(ws)
	}
}

// upgradeGate rejects plain HTTP requests on websocket routes and carries the
// request context across the upgrade, where fiber's context stops being valid.
func upgradeGate(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
	c.Locals("request_ctx", ctx)

	return c.Next()
}

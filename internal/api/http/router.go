package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/spec-kit/ouvidoria-service/internal/access"
	"github.com/spec-kit/ouvidoria-service/internal/api/http/handlers"
	"github.com/spec-kit/ouvidoria-service/internal/auth"
	"github.com/spec-kit/ouvidoria-service/internal/cache"
	"github.com/spec-kit/ouvidoria-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Auth           *handlers.AuthHandler
	Staff          *handlers.StaffHandler
	Admin          *handlers.AdminHandler
	Content        *handlers.ContentHandler
	AuthMiddleware *auth.AuthMiddleware
	// LookupLimiter throttles public protocol lookups and contests. Nil disables it.
	LookupLimiter *cache.RateLimiter
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	public := api.Group("/public", cfg.AuthMiddleware.Optional)
	public.Post("/tickets", auth.RequireCapability(access.CapSubmitTicket), cfg.Tickets.Submit)
	public.Get("/content", cfg.Content.List)
	tracking := public.Group("/tickets/:protocol", auth.RequireCapability(access.CapLookupProtocol))
	if cfg.LookupLimiter != nil {
		tracking.Use(rateLimit(cfg.LookupLimiter, logger))
	}
	tracking.Get("", cfg.Tickets.Lookup)
	tracking.Post("/contest", cfg.Tickets.Contest)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle)

	tickets := admin.Group("/tickets")
	tickets.Get("", auth.RequireCapability(access.CapViewQueue), cfg.StaffTickets.List)
	tickets.Get("/:id", auth.RequireCapability(access.CapViewQueue), cfg.StaffTickets.Get)
	tickets.Patch("/:id", auth.RequireCapability(access.CapEditTicket), cfg.StaffTickets.Update)
	tickets.Put("/:id/assignee", auth.RequireCapability(access.CapEditTicket), cfg.StaffTickets.Assign)
	tickets.Get("/:id/notes", auth.RequireCapability(access.CapManageNotes), cfg.StaffTickets.ListNotes)
	tickets.Post("/:id/notes", auth.RequireCapability(access.CapManageNotes), cfg.StaffTickets.AddNote)
	tickets.Get("/:id/history", auth.RequireCapability(access.CapViewQueue), cfg.StaffTickets.History)

	admin.Get("/dashboard", auth.RequireCapability(access.CapViewDashboard), cfg.Admin.Dashboard)

	staff := admin.Group("/staff", auth.RequireCapability(access.CapManageStaff))
	staff.Get("", cfg.Staff.List)
	staff.Post("", cfg.Staff.Create)
	staff.Patch("/:id", cfg.Staff.Update)
	staff.Delete("/:id", cfg.Staff.Remove)

	emails := admin.Group("/emails", auth.RequireCapability(access.CapManageEmails))
	emails.Get("", cfg.Admin.ListEmails)
	emails.Post("/:id/sent", cfg.Admin.MarkEmailSent)

	admin.Put("/content/:key", auth.RequireCapability(access.CapManageContent), cfg.Content.Update)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-sla/internal/auth"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Hooks          *handlers.HooksHandler
	Sla            *handlers.SlaHandler
	Catalog        *handlers.CatalogHandler
	Macros         *handlers.MacrosHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics serves the Prometheus exposition; nil disables /metrics.
	Metrics fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	hooks := api.Group("/hooks/tickets/:id", auth.RequireService())
	hooks.Post("/created", cfg.Hooks.TicketCreated)
	hooks.Post("/state-changed", cfg.Hooks.StateChanged)
	hooks.Post("/messages", cfg.Hooks.MessageAdded)

	api.Get("/tickets/:id/sla", auth.RequireStaffOrService(), cfg.Sla.GetTicketSla)
	api.Post("/sla/scan", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Sla.Scan)

	api.Post("/macros/:id/apply", auth.RequireStaffRole(), cfg.Macros.Apply)

	readers := auth.RequireStaffRole()
	admins := auth.RequireStaffRole(domain.StaffRoleAdmin, domain.StaffRoleTeamLead)

	api.Get("/calendars", readers, cfg.Catalog.ListCalendars)
	api.Post("/calendars", admins, cfg.Catalog.SaveCalendar)
	api.Put("/calendars/:id", admins, cfg.Catalog.SaveCalendar)
	api.Delete("/calendars/:id", admins, cfg.Catalog.DeleteCalendar)

	api.Get("/policies", readers, cfg.Catalog.ListPolicies)
	api.Post("/policies", admins, cfg.Catalog.SavePolicy)
	api.Put("/policies/:id", admins, cfg.Catalog.SavePolicy)
	api.Delete("/policies/:id", admins, cfg.Catalog.DeletePolicy)

	api.Get("/triggers", readers, cfg.Catalog.ListTriggers)
	api.Post("/triggers", admins, cfg.Catalog.SaveTrigger)
	api.Put("/triggers/:id", admins, cfg.Catalog.SaveTrigger)
	api.Delete("/triggers/:id", admins, cfg.Catalog.DeleteTrigger)

	api.Get("/macros", readers, cfg.Catalog.ListMacros)
	api.Post("/macros", admins, cfg.Catalog.SaveMacro)
	api.Put("/macros/:id", admins, cfg.Catalog.SaveMacro)
	api.Delete("/macros/:id", admins, cfg.Catalog.DeleteMacro)

	api.Get("/teams", readers, cfg.Catalog.ListTeams)
	api.Post("/teams", admins, cfg.Catalog.SaveTeam)
	api.Put("/teams/:id", admins, cfg.Catalog.SaveTeam)
}

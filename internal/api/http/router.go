package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Policies       *handlers.PoliciesHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/reply", cfg.Tickets.Reply)
	tickets.Patch("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Patch("/:id/priority", cfg.Tickets.ChangePriority)
	tickets.Patch("/:id/assignee", cfg.Tickets.Assign)

	tickets.Get("/:id/sla", cfg.SLA.Binding)
	tickets.Post("/:id/sla/evaluate", cfg.SLA.Evaluate)
	tickets.Get("/:id/sla/risk", cfg.SLA.Risk)

	slaGroup := api.Group("/sla")
	slaGroup.Get("/alerts", cfg.SLA.ListAlerts)
	slaGroup.Post("/alerts/:id/ack", cfg.SLA.AcknowledgeAlert)
	slaGroup.Get("/reports/compliance", cfg.SLA.ComplianceReport)

	policies := slaGroup.Group("/policies", auth.RequireRole(domain.AgentRoleAdmin))
	policies.Post("", cfg.Policies.Create)
	policies.Get("", cfg.Policies.List)
	policies.Get("/:id", cfg.Policies.Get)
	policies.Put("/:id", cfg.Policies.Update)
	policies.Delete("/:id", cfg.Policies.Delete)
}

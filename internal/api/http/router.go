package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/alonso06/showcase-queueapi/internal/api/http/handlers"
	"github.com/alonso06/showcase-queueapi/internal/auth"
	"github.com/alonso06/showcase-queueapi/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Queues         *handlers.QueuesHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Kiosk endpoints are public; queue
// operations sit behind staff authentication with role guards.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Staff.Login)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.Admit)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/position", cfg.Tickets.GetPosition)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("/queues", cfg.Queues.ListQueues)
	staff.Post("/queues/:id/claim", cfg.Queues.ClaimNext)
	staff.Post("/tickets/:id/complete", cfg.Tickets.Complete)
	staff.Get("/stats", cfg.Queues.Stats)

	supervised := staff.Group("", auth.RequireStaffRole(domain.StaffRoleSupervisor, domain.StaffRoleAdmin))
	supervised.Post("/priorities/:id/rebalance", cfg.Queues.TriggerRebalance)

	admin := staff.Group("", auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Post("/queues", cfg.Queues.CreateQueue)
	admin.Post("/queues/:id/close", cfg.Queues.CloseQueue)
}

package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/vpsdash/vpsdash/internal/server/handlers"
)

func (s *Server) registerRoutes(h *handlers.Handlers) {
	s.router.Get("/health", h.Health)
	s.router.Get("/version", h.Version)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/servers", h.Servers)
		r.Post("/servers/refresh", h.RefreshServers)
		r.Post("/servers/power", h.BatchPower)
		r.Post("/servers/{id}/power/{action}", h.PowerAction)
		r.Get("/servers/{id}/group", h.ServerGroup)

		r.Get("/balance", h.Balance)
		r.Get("/plans", h.Plans)
		r.Get("/regions", h.Regions)
		r.Get("/distros", h.Distros)
		r.Get("/stock", h.Stock)
		r.Post("/order", h.Order)

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/{id}", h.GetGroup)
			r.Patch("/{id}", h.UpdateGroup)
			r.Delete("/{id}", h.DeleteGroup)
			r.Post("/{id}/servers", h.AddGroupServers)
			r.Delete("/{id}/servers", h.RemoveGroupServers)
		})

		r.Get("/audit", h.AuditLog)
	})
}

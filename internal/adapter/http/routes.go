package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/ensembleapp/ensemble/internal/domain/tenant"
	"github.com/ensembleapp/ensemble/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, guard *middleware.Guard) {
	r.Get("/health", h.Health)

	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", h.Me)

		// Tenant administration (platform operators only)
		r.Group(func(r chi.Router) {
			r.Use(guard.RequirePlatformAdmin)
			r.Get("/tenants", h.ListTenants)
			r.Post("/tenants", h.CreateTenant)
			r.Get("/tenants/{id}", h.GetTenant)
			r.Post("/tenants/{id}/suspend", h.SuspendTenant)
			r.Post("/tenants/{id}/unsuspend", h.UnsuspendTenant)
		})

		// Team management (lead administrator only)
		r.Group(func(r chi.Router) {
			r.Use(guard.RequirePrincipalAdmin)
			r.Get("/team", h.ListTeam)
			r.Post("/team", h.AddTeamMember)
			r.Put("/team/{id}/permissions", h.SetTeamPermissions)
			r.Delete("/team/{id}", h.RemoveTeamMember)
		})

		// Announcements (admins with the module permission)
		r.With(guard.RequireAdmin, guard.RequireModule(tenant.ModuleAnnouncements)).
			Post("/announcements", h.PostAnnouncement)

		// Member notification pool
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireMember)
			r.Get("/notifications", h.ListNotifications)
			r.Get("/notifications/unread-count", h.UnreadNotificationCount)
			r.Post("/notifications/{id}/read", h.MarkNotificationRead)
			r.Post("/notifications/read-all", h.MarkAllNotificationsRead)
		})

		// Admin notification pool. Scoped to tenant staff: platform
		// operators hold no tenant and so no pool.
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireTenantAdmin)
			r.Get("/admin/notifications", h.ListAdminNotifications)
			r.Get("/admin/notifications/unread-count", h.UnreadAdminNotificationCount)
			r.Post("/admin/notifications/{id}/read", h.MarkAdminNotificationRead)
			r.Post("/admin/notifications/read-all", h.MarkAllAdminNotificationsRead)
		})
	})
}

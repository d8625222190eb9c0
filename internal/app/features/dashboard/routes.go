// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /dashboard. It is open to everyone; the router
// sends anonymous visitors to the login page.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeDashboard)
	return r
}

// RoleRoutes serves GET /dashboard under a role prefix such as
// /attendees, limited to the given roles.
func RoleRoutes(h *Handler, sm *auth.SessionManager, allowed ...models.UserType) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireUserType(allowed...))
		pr.Get("/dashboard", h.ServePanels)
	})
	return r
}

// internal/app/features/directory/routes.go
package directory

import (
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /admin. Every route is superuser-only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireSuperuser)
		pr.Get("/", h.ServeIndex)
		pr.Get("/users", h.ServeList)
		pr.Get("/users/{username}", h.ServeDetail)
		pr.Patch("/users/{username}", h.HandleEdit)
		pr.Post("/organizations", h.HandleCreateOrganization)
	})
	return r
}

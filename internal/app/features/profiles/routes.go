// internal/app/features/profiles/routes.go
package profiles

import (
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Attach adds GET /{slug} for profiles of kind to r. r is the router
// mounted at the kind's prefix (/attendees, /leaders or /faculty), so
// fixed routes on it such as /dashboard take precedence.
func Attach(r chi.Router, h *Handler, sm *auth.SessionManager, kind models.ProfileKind) {
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/{slug}", h.ServeProfile(kind))
	})
}

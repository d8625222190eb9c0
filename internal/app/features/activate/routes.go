// internal/app/features/activate/routes.go
package activate

import "github.com/go-chi/chi/v5"

// Routes is mounted at /activate.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/resend", h.HandleResend)
	r.Get("/{uid}/{token}/", h.ServeActivate)
	return r
}

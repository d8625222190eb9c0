// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	uierrors "github.com/dalemusser/rosterhub/internal/app/features/errors"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/dashroute"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Router   *dashroute.Router
	Resolver *dashroute.Resolver
	Log      *zap.Logger
}

func NewHandler(router *dashroute.Router, resolver *dashroute.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		Router:   router,
		Resolver: resolver,
		Log:      logger,
	}
}

// ServeDashboard handles GET /dashboard by redirecting to wherever the
// current user belongs. Anonymous visitors are sent to the login page.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	var subject dashroute.Subject
	if u, ok := auth.CurrentUser(r); ok {
		subject = u
	}

	dest := h.Router.Route(subject)
	http.Redirect(w, r, h.Resolver.Path(dest), http.StatusSeeOther)
}

type panelsResponse struct {
	Username string            `json:"username"`
	UserType models.UserType   `json:"user_type"`
	IsAdmin  bool              `json:"is_admin"`
	Panels   []dashroute.Panel `json:"panels"`
}

// ServePanels handles GET /<role>/dashboard.
func (h *Handler) ServePanels(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.WriteError(w, http.StatusUnauthorized, "Please sign in to continue.")
		return
	}
	panels := dashroute.Panels(u)
	if panels == nil {
		panels = []dashroute.Panel{}
	}
	uierrors.WriteJSON(w, http.StatusOK, panelsResponse{
		Username: u.Username,
		UserType: u.UserType,
		IsAdmin:  u.IsAdmin,
		Panels:   panels,
	})
}

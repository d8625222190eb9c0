// internal/app/features/profiles/handler.go
package profiles

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/rosterhub/internal/app/features/errors"
	"github.com/dalemusser/rosterhub/internal/app/features/register"
	organizationstore "github.com/dalemusser/rosterhub/internal/app/store/organizations"
	profilestore "github.com/dalemusser/rosterhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	Profiles *profilestore.Store
	Orgs     *organizationstore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, profiles *profilestore.Store, orgs *organizationstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Profiles: profiles,
		Orgs:     orgs,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type orgSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type profileResponse struct {
	ID          string               `json:"id"`
	Slug        string               `json:"slug"`
	Kind        models.ProfileKind   `json:"kind"`
	URL         string               `json:"url"`
	User        register.UserSummary `json:"user"`
	IsReturning bool                 `json:"is_returning"`
	Address     *models.Address      `json:"address,omitempty"`

	Organization     *orgSummary `json:"organization,omitempty"`
	RootOrganization *orgSummary `json:"root_organization,omitempty"`
}

// ServeProfile returns the handler for GET /<kind plural>/{slug}. Only the
// profile's owner and superusers may view it.
func (h *Handler) ServeProfile(kind models.ProfileKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := auth.CurrentUser(r)
		if !ok {
			uierrors.WriteError(w, http.StatusUnauthorized, "Please sign in to continue.")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		p, err := h.Profiles.GetBySlug(ctx, kind, chi.URLParam(r, "slug"))
		if errors.Is(err, profilestore.ErrNotFound) {
			uierrors.WriteError(w, http.StatusNotFound, "Profile not found.")
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "profiles: load profile", err, "A server error occurred.")
			return
		}
		if !viewer.Superuser() && viewer.ID != p.UserID {
			uierrors.WriteError(w, http.StatusForbidden, "You do not have access to this profile.")
			return
		}

		u, err := h.Users.GetByID(ctx, p.UserID)
		if errors.Is(err, userstore.ErrNotFound) {
			h.Log.Warn("profile without owner", zap.String("profile_id", p.ID.Hex()))
			uierrors.WriteError(w, http.StatusNotFound, "Profile not found.")
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "profiles: load owner", err, "A server error occurred.")
			return
		}

		resp := profileResponse{
			ID:          p.ID.Hex(),
			Slug:        p.Slug,
			Kind:        p.Kind,
			URL:         p.URL(),
			User:        register.Summarize(u),
			IsReturning: u.IsReturning(),
			Address:     p.Address,
		}
		if !p.OrganizationID.IsZero() {
			if err := h.loadOrganizations(ctx, p, &resp); err != nil {
				h.ErrLog.LogServerError(w, r, "profiles: load organization", err, "A server error occurred.")
				return
			}
		}
		uierrors.WriteJSON(w, http.StatusOK, resp)
	}
}

// loadOrganizations fills in the profile's organization and its root. A
// missing organization or a broken parent chain is logged and left out.
func (h *Handler) loadOrganizations(ctx context.Context, p *models.Profile, resp *profileResponse) error {
	org, err := h.Orgs.GetByID(ctx, p.OrganizationID)
	switch {
	case err == nil:
		resp.Organization = &orgSummary{ID: org.ID.Hex(), Name: org.Name}
	case errors.Is(err, organizationstore.ErrNotFound):
		h.Log.Warn("profile organization missing",
			zap.String("profile_id", p.ID.Hex()),
			zap.String("organization_id", p.OrganizationID.Hex()))
		return nil
	default:
		return err
	}

	root, err := h.Orgs.RootOf(ctx, p.OrganizationID)
	switch {
	case err == nil:
		resp.RootOrganization = &orgSummary{ID: root.ID.Hex(), Name: root.Name}
	case errors.Is(err, organizationstore.ErrNotFound), errors.Is(err, organizationstore.ErrCycle):
		h.Log.Warn("root organization unavailable",
			zap.String("organization_id", p.OrganizationID.Hex()),
			zap.Error(err))
	default:
		return err
	}
	return nil
}

// internal/app/features/directory/handler.go
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/rosterhub/internal/app/features/errors"
	"github.com/dalemusser/rosterhub/internal/app/features/register"
	loginstore "github.com/dalemusser/rosterhub/internal/app/store/logins"
	organizationstore "github.com/dalemusser/rosterhub/internal/app/store/organizations"
	profilestore "github.com/dalemusser/rosterhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/dashroute"
	"github.com/dalemusser/rosterhub/internal/app/system/normalize"
	"github.com/dalemusser/rosterhub/internal/app/system/paging"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 16 << 10
	recentLogins = 5
)

type Handler struct {
	Users    *userstore.Store
	Profiles *profilestore.Store
	Orgs     *organizationstore.Store
	Logins   *loginstore.Store
	Routes   *dashroute.Resolver
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, profiles *profilestore.Store, orgs *organizationstore.Store, logins *loginstore.Store, routes *dashroute.Resolver, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Profiles: profiles,
		Orgs:     orgs,
		Logins:   logins,
		Routes:   routes,
		ErrLog:   errLog,
		Log:      logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| View models                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

type userRow struct {
	Username string          `json:"username"`
	Email    string          `json:"email"`
	UserType models.UserType `json:"user_type"`
	IsAdmin  bool            `json:"is_admin"`
	IsActive bool            `json:"is_active"`
	Action   string          `json:"action"`
}

type listResponse struct {
	Users      []userRow `json:"users"`
	HasPrev    bool      `json:"has_prev"`
	HasNext    bool      `json:"has_next"`
	PrevCursor string    `json:"prev_cursor,omitempty"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type profileSummary struct {
	ID   string             `json:"id"`
	Slug string             `json:"slug"`
	Kind models.ProfileKind `json:"kind"`
	URL  string             `json:"url"`
}

type detailResponse struct {
	register.UserSummary
	IsAdmin     bool            `json:"is_admin"`
	IsActive    bool            `json:"is_active"`
	IsReturning bool            `json:"is_returning"`
	Profile     *profileSummary `json:"profile,omitempty"`

	LastLoginAt  *time.Time           `json:"last_login_at,omitempty"`
	RecentLogins []models.LoginRecord `json:"recent_logins,omitempty"`
}

// actionLink is the row's link target: the owning profile's page, or the
// directory's own detail page when there is no profile.
func actionLink(u models.User, p *models.Profile) string {
	if p != nil && p.Slug != "" {
		return p.URL()
	}
	return "/admin/users/" + u.Username
}

/*─────────────────────────────────────────────────────────────────────────────*
| Handlers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeIndex handles GET /admin/.
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"users":         "/admin/users",
		"organizations": "/admin/organizations",
	})
}

// ServeList handles GET /admin/users.
//
// Query parameters: user_type, is_admin, is_active, q (prefix search),
// before/after (cursors) and limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	var f userstore.ListFilter
	if raw := query.Get(r, "user_type"); raw != "" {
		t, ok := models.ParseUserType(raw)
		if !ok {
			uierrors.WriteError(w, http.StatusBadRequest, "Unknown user type.")
			return
		}
		f.UserType = t
	}
	if v, ok := normalize.Bool(query.Get(r, "is_admin")); ok {
		f.IsAdmin = &v
	}
	if v, ok := normalize.Bool(query.Get(r, "is_active")); ok {
		f.IsActive = &v
	}
	f.Search = normalize.QueryParam(query.Get(r, "q"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "directory list")
	defer cancel()

	page, err := h.Users.List(ctx, userstore.ListQuery{
		Filter: f,
		Before: query.Get(r, "before"),
		After:  query.Get(r, "after"),
		Limit:  paging.ParseLimit(r),
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "directory: list users", err, "A server error occurred.")
		return
	}

	ids := make([]primitive.ObjectID, len(page.Users))
	for i, u := range page.Users {
		ids[i] = u.ID
	}
	profiles, err := h.Profiles.ByUserIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "directory: load profiles", err, "A server error occurred.")
		return
	}

	rows := make([]userRow, 0, len(page.Users))
	for _, u := range page.Users {
		var p *models.Profile
		if pr, ok := profiles[u.ID]; ok {
			p = &pr
		}
		rows = append(rows, userRow{
			Username: u.Username,
			Email:    u.Email,
			UserType: u.UserType,
			IsAdmin:  u.IsAdmin,
			IsActive: u.IsActive,
			Action:   actionLink(u, p),
		})
	}

	resp := listResponse{Users: rows, HasPrev: page.HasPrev, HasNext: page.HasNext}
	if page.HasPrev {
		resp.PrevCursor = page.PrevCursor
	}
	if page.HasNext {
		resp.NextCursor = page.NextCursor
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}

// ServeDetail handles GET /admin/users/{username}.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, chi.URLParam(r, "username"))
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.WriteError(w, http.StatusNotFound, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "directory: load user", err, "A server error occurred.")
		return
	}
	h.writeDetail(ctx, w, r, u)
}

// editInput is the PATCH body. Absent fields are left unchanged.
type editInput struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Email         *string `json:"email"`
	IsAdmin       *bool   `json:"is_admin"`
	IsActive      *bool   `json:"is_active"`
	UserType      *string `json:"user_type"`
	RouteOverride *string `json:"route_override"`
}

// HandleEdit handles PATCH /admin/users/{username}.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var in editInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "directory: decode body", err, "Invalid request body.")
		return
	}

	upd := userstore.Update{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		IsAdmin:       in.IsAdmin,
		IsActive:      in.IsActive,
		RouteOverride: in.RouteOverride,
	}
	if in.UserType != nil {
		t, ok := models.ParseUserType(*in.UserType)
		if !ok {
			uierrors.WriteError(w, http.StatusBadRequest, "Unknown user type.")
			return
		}
		upd.UserType = &t
	}
	// An empty override clears it.
	if in.RouteOverride != nil {
		if o := strings.TrimSpace(*in.RouteOverride); o != "" && !h.Routes.ValidOverride(o) {
			uierrors.WriteError(w, http.StatusBadRequest, "Route override must be a known destination or a path on this site.")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.Users.GetByUsername(ctx, chi.URLParam(r, "username"))
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.WriteError(w, http.StatusNotFound, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "directory: load user", err, "A server error occurred.")
		return
	}

	u, err := h.Users.Update(ctx, cur.ID, upd)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrNotFound):
		uierrors.WriteError(w, http.StatusNotFound, "User not found.")
		return
	case errors.Is(err, userstore.ErrBadUserType), errors.Is(err, userstore.ErrRoleReassignment):
		h.ErrLog.LogBadRequest(w, r, "directory: edit rejected", err, err.Error())
		return
	case errors.Is(err, userstore.ErrDuplicateEmail):
		h.ErrLog.LogConflict(w, r, "directory: duplicate email", err, err.Error())
		return
	default:
		h.ErrLog.LogServerError(w, r, "directory: update user", err, "A server error occurred.")
		return
	}

	h.Log.Info("user edited", zap.String("user_id", u.ID.Hex()))
	h.writeDetail(ctx, w, r, u)
}

type organizationInput struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

// HandleCreateOrganization handles POST /admin/organizations.
func (h *Handler) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var in organizationInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "directory: decode organization", err, "Invalid request body.")
		return
	}

	org := models.Organization{Name: in.Name}
	if raw := strings.TrimSpace(in.ParentID); raw != "" {
		pid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.WriteError(w, http.StatusBadRequest, "Invalid parent organization id.")
			return
		}
		org.ParentID = &pid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Orgs.Create(ctx, org)
	switch {
	case err == nil:
	case errors.Is(err, organizationstore.ErrNameEmpty), errors.Is(err, organizationstore.ErrParentNotFound):
		h.ErrLog.LogBadRequest(w, r, "directory: organization rejected", err, err.Error())
		return
	default:
		h.ErrLog.LogServerError(w, r, "directory: create organization", err, "A server error occurred.")
		return
	}

	h.Log.Info("organization created", zap.String("organization_id", created.ID.Hex()))
	uierrors.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) writeDetail(ctx context.Context, w http.ResponseWriter, r *http.Request, u *models.User) {
	resp := detailResponse{
		UserSummary: register.Summarize(u),
		IsAdmin:     u.IsAdmin,
		IsActive:    u.IsActive,
		IsReturning: u.IsReturning(),
		LastLoginAt: u.LastLoginAt,
	}

	p, err := h.Profiles.GetByUserID(ctx, u.ID)
	switch {
	case err == nil:
		resp.Profile = &profileSummary{ID: p.ID.Hex(), Slug: p.Slug, Kind: p.Kind, URL: p.URL()}
	case errors.Is(err, profilestore.ErrNotFound):
	default:
		h.ErrLog.LogServerError(w, r, "directory: load profile", err, "A server error occurred.")
		return
	}

	if h.Logins != nil {
		logins, err := h.Logins.Recent(ctx, u.ID, recentLogins)
		if err != nil {
			h.Log.Warn("directory: load sign-in history", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
		resp.RecentLogins = logins
	}

	uierrors.WriteJSON(w, http.StatusOK, resp)
}

// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/rosterhub/internal/app/features/errors"
	loginstore "github.com/dalemusser/rosterhub/internal/app/store/logins"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/ratelimit"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

const msgBadCredentials = "Invalid username or password."

type Handler struct {
	Users      *userstore.Store
	Logins     *loginstore.Store
	Limit      *ratelimit.Guard
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

// NewHandler wires the login handler. logins and limit may be nil to skip
// sign-in history and throttling.
func NewHandler(users *userstore.Store, logins *loginstore.Store, limit *ratelimit.Guard, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		Logins:     logins,
		Limit:      limit,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
	}
}

// ServeLogin handles GET /login. It tells the client where to post
// credentials and echoes the return target set by RequireSignedIn.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"action": "/login",
		"return": urlutil.SafeReturn(query.Get(r, "return"), "", "/dashboard"),
	})
}

// HandleLoginPost handles POST /login with form fields username, password
// and an optional return path.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		uierrors.WriteError(w, http.StatusBadRequest, "Please enter your username and password.")
		return
	}

	if ok, msg := h.Limit.Check(r, username); !ok {
		h.Log.Warn("login throttled", zap.String("username", username), zap.String("ip", ratelimit.ClientIP(r)))
		uierrors.WriteError(w, http.StatusTooManyRequests, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.Log.Info("login failed: unknown user", zap.String("username", username))
		uierrors.WriteError(w, http.StatusUnauthorized, msgBadCredentials)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "DB find user", err, "A server error occurred.")
		return
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		h.Log.Info("login failed: bad password", zap.String("user_id", u.ID.Hex()))
		uierrors.WriteError(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}

	// Inactive accounts have not followed their activation link yet.
	if !u.IsActive {
		uierrors.WriteError(w, http.StatusForbidden, "This account is not active. Check your email for the activation link.")
		return
	}

	if err := h.Users.MarkLogin(ctx, u.ID, time.Now()); err != nil {
		h.Log.Warn("login: mark last login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	if h.Logins != nil {
		if err := h.Logins.CreateFrom(ctx, r, u.ID); err != nil {
			h.Log.Warn("login: record sign-in", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}
	h.Limit.Reset(username)

	if err := h.SessionMgr.SignIn(w, r, u); err != nil {
		h.ErrLog.LogServerError(w, r, "save session", err, "A server error occurred.")
		return
	}

	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))

	dest := urlutil.SafeReturn(strings.TrimSpace(r.FormValue("return")), "", "/dashboard")
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

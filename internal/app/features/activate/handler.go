// internal/app/features/activate/handler.go
package activate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/rosterhub/internal/app/features/errors"
	"github.com/dalemusser/rosterhub/internal/app/system/activation"
	"github.com/dalemusser/rosterhub/internal/app/system/ratelimit"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Activation *activation.Service
	Limit      *ratelimit.Guard
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(svc *activation.Service, limit *ratelimit.Guard, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Activation: svc,
		Limit:      limit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type activateResponse struct {
	Activated bool   `json:"activated"`
	Username  string `json:"username"`
	Message   string `json:"message"`
}

// ServeActivate handles GET /activate/{uid}/{token}/.
//
// Every failure the client can cause answers 400 with the same message so
// the response does not reveal whether the account exists.
func (h *Handler) ServeActivate(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	token := chi.URLParam(r, "token")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Activation.Consume(ctx, uid, token)
	switch {
	case err == nil:
	case errors.Is(err, activation.ErrActivation):
		h.Log.Info("activation rejected", zap.Error(err))
		uierrors.WriteError(w, http.StatusBadRequest, activation.ErrActivation.Error())
		return
	default:
		h.ErrLog.LogServerError(w, r, "activation failed", err, "A server error occurred.")
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, activateResponse{
		Activated: true,
		Username:  u.Username,
		Message:   "Your account is active. You can now sign in.",
	})
}

// HandleResend handles POST /activate/resend with an email form field.
// It always answers 202 so the response does not reveal which addresses
// have accounts.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.")
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		uierrors.WriteError(w, http.StatusBadRequest, "Please enter your email address.")
		return
	}
	if ok, msg := h.Limit.Check(r, email); !ok {
		h.Log.Warn("activation resend throttled", zap.String("ip", ratelimit.ClientIP(r)))
		uierrors.WriteError(w, http.StatusTooManyRequests, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Activation.Resend(ctx, email); err != nil {
		h.ErrLog.LogServerError(w, r, "resend activation", err, "A server error occurred.")
		return
	}

	uierrors.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If an inactive account uses that address, a new activation link is on its way.",
	})
}

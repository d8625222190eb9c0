// internal/app/features/register/handler.go
package register

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/rosterhub/internal/app/features/errors"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/metrics"
	"github.com/dalemusser/rosterhub/internal/app/system/profilebind"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxBodyBytes caps the registration payload.
const maxBodyBytes = 64 << 10

type Handler struct {
	Users   *userstore.Store
	Metrics *metrics.Metrics
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(users *userstore.Store, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:   users,
		Metrics: m,
		ErrLog:  errLog,
		Log:     logger,
	}
}

// registerInput is the POST /register body.
type registerInput struct {
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Password       string          `json:"password"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	UserType       string          `json:"user_type"`
	OrganizationID string          `json:"organization_id"`
	Address        *models.Address `json:"address"`
}

// UserSummary is the public projection of a user.
type UserSummary struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	UserType  models.UserType `json:"user_type"`
}

// Summarize projects u for JSON responses.
func Summarize(u *models.User) UserSummary {
	return UserSummary{
		ID:        u.ID.Hex(),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		UserType:  u.UserType,
	}
}

// HandleRegister handles POST /register.
//
// The account starts inactive; the activation listener emails a link when
// an address is given. Profile-bearing roles need an organization_id.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "register: decode body", err, "Invalid request body.")
		return
	}

	userType, ok := models.ParseUserType(in.UserType)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "register: bad user_type", userstore.ErrBadUserType, "Unknown user type.")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			h.ErrLog.LogBadRequest(w, r, "register: password", err, err.Error())
			return
		}
		h.ErrLog.LogServerError(w, r, "register: hash password", err, "A server error occurred.")
		return
	}

	var opts userstore.CreateOptions
	if in.OrganizationID != "" {
		oid, err := primitive.ObjectIDFromHex(in.OrganizationID)
		if err != nil {
			h.ErrLog.LogBadRequest(w, r, "register: organization_id", err, "Invalid organization_id.")
			return
		}
		opts.OrganizationID = &oid
	}
	opts.Address = in.Address

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserType:     userType,
	}, opts)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrUsernameRequired),
		errors.Is(err, userstore.ErrBadUserType),
		errors.Is(err, profilebind.ErrMissingOrganization):
		h.ErrLog.LogBadRequest(w, r, "register: invalid", err, err.Error())
		return
	case errors.Is(err, userstore.ErrDuplicateUsername),
		errors.Is(err, userstore.ErrDuplicateEmail),
		errors.Is(err, profilebind.ErrDuplicateProfile):
		h.ErrLog.LogConflict(w, r, "register: duplicate", err, err.Error())
		return
	default:
		h.ErrLog.LogServerError(w, r, "register: create user", err, "A server error occurred.")
		return
	}

	h.Metrics.Registered(string(u.UserType))
	h.Log.Info("user registered",
		zap.String("user_id", u.ID.Hex()),
		zap.String("user_type", string(u.UserType)))

	uierrors.WriteJSON(w, http.StatusCreated, Summarize(&u))
}

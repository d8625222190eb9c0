// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	activatefeature "github.com/dalemusser/rosterhub/internal/app/features/activate"
	dashboardfeature "github.com/dalemusser/rosterhub/internal/app/features/dashboard"
	directoryfeature "github.com/dalemusser/rosterhub/internal/app/features/directory"
	errorsfeature "github.com/dalemusser/rosterhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/rosterhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/rosterhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/rosterhub/internal/app/features/logout"
	profilesfeature "github.com/dalemusser/rosterhub/internal/app/features/profiles"
	registerfeature "github.com/dalemusser/rosterhub/internal/app/features/register"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the services in deps are ready.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	if svc == nil || svc.Users == nil {
		return nil, errors.New("build handler: services not started")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so deactivation and role
	// changes take effect immediately.
	sessionMgr.SetFetcher(userstore.NewFetcher(svc.Users))

	return newRouter(svc, deps, sessionMgr, logger), nil
}

func newRouter(svc *Services, deps DBDeps, sessionMgr *auth.SessionManager, logger *zap.Logger) chi.Router {
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	// Global auth middleware: loads the current user into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check and metrics for load balancers and scrapers
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Method(http.MethodGet, "/metrics", svc.Metrics.Handler())

	// Error endpoints targeted by the auth middleware
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Accounts
	registerHandler := registerfeature.NewHandler(svc.Users, svc.Metrics, errLog, logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	activateHandler := activatefeature.NewHandler(svc.Activation, svc.ResendGuard, errLog, logger)
	r.Mount("/activate", activatefeature.Routes(activateHandler))

	loginHandler := loginfeature.NewHandler(svc.Users, svc.Logins, svc.LoginGuard, sessionMgr, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Dashboards and profile pages
	dashboardHandler := dashboardfeature.NewHandler(svc.DashRouter, svc.Resolver, logger)
	profilesHandler := profilesfeature.NewHandler(svc.Users, svc.Profiles, svc.Organizations, errLog, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

	roleAreas := []struct {
		prefix string
		role   models.UserType
	}{
		{"/attendees", models.UserTypeAttendee},
		{"/leaders", models.UserTypeLeader},
		{"/faculty", models.UserTypeFaculty},
	}
	for _, a := range roleAreas {
		area := dashboardfeature.RoleRoutes(dashboardHandler, sessionMgr, a.role)
		kind, _ := a.role.ProfileKind()
		profilesfeature.Attach(area, profilesHandler, sessionMgr, kind)
		r.Mount(a.prefix, area)
	}
	r.Mount("/portal", dashboardfeature.RoleRoutes(dashboardHandler, sessionMgr, models.UserTypeAdmin))

	// Admin directory
	directoryHandler := directoryfeature.NewHandler(svc.Users, svc.Profiles, svc.Organizations, svc.Logins, svc.Resolver, errLog, logger)
	r.Mount("/admin", directoryfeature.Routes(directoryHandler, sessionMgr))

	return r
}

// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	loginstore "github.com/dalemusser/rosterhub/internal/app/store/logins"
	organizationstore "github.com/dalemusser/rosterhub/internal/app/store/organizations"
	profilestore "github.com/dalemusser/rosterhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/activation"
	"github.com/dalemusser/rosterhub/internal/app/system/auth"
	"github.com/dalemusser/rosterhub/internal/app/system/dashroute"
	"github.com/dalemusser/rosterhub/internal/app/system/mailer"
	"github.com/dalemusser/rosterhub/internal/app/system/metrics"
	"github.com/dalemusser/rosterhub/internal/app/system/profilebind"
	"github.com/dalemusser/rosterhub/internal/app/system/ratelimit"
	"github.com/dalemusser/rosterhub/internal/app/system/timeouts"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Services is the application object graph shared by the later hooks.
type Services struct {
	Metrics *metrics.Metrics

	Users         *userstore.Store
	Profiles      *profilestore.Store
	Organizations *organizationstore.Store
	Logins        *loginstore.Store

	Binder     *profilebind.Binder
	Activation *activation.Service
	Mail       mailer.Sender
	Notifier   *mailer.Notifier

	DashRouter *dashroute.Router
	Resolver   *dashroute.Resolver

	LoginGuard  *ratelimit.Guard
	ResendGuard *ratelimit.Guard
}

// Startup builds the stores and services once DB connections and schema
// setup are complete, and before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}
	if deps.Services == nil {
		return errors.New("startup: services not allocated")
	}

	svc, err := buildServices(deps.MongoDatabase, appCfg, logger)
	if err != nil {
		return err
	}
	*deps.Services = *svc

	if appCfg.SuperuserEmail != "" {
		if err := ensureSuperuser(ctx, svc.Users, appCfg.SuperuserEmail, appCfg.SuperuserPassword, logger); err != nil {
			return fmt.Errorf("ensure superuser: %w", err)
		}
	}
	return nil
}

func buildServices(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) (*Services, error) {
	m := metrics.New()

	sender, err := mailer.NewSender(appCfg.mailConfig(), logger.Named("mail"))
	if err != nil {
		return nil, err
	}
	notifier := mailer.NewNotifier(sender, appCfg.MailTransport, logger.Named("mail"), m)

	users := userstore.New(db, logger.Named("users"))
	profiles := profilestore.New(db)
	orgs := organizationstore.New(db)

	binder := profilebind.New(profiles, orgs, profilebind.DefaultTable(), logger.Named("profiles"))
	tokens := activation.NewTokens(appCfg.ActivationSecret, appCfg.ActivationSecretFallbacks, appCfg.ActivationTokenTTL)
	act := activation.New(users, tokens, notifier, appCfg.activationConfig, logger.Named("activation"), m)

	// The binder writes inside the user's transaction. Activation email
	// goes out only once the save has committed.
	users.Listen(binder)
	users.ListenCommitted(act)

	routePaths, err := dashroute.ParsePaths(appCfg.RoutePaths)
	if err != nil {
		return nil, err
	}

	return &Services{
		Metrics:       m,
		Users:         users,
		Profiles:      profiles,
		Organizations: orgs,
		Logins:        loginstore.New(db),
		Binder:        binder,
		Activation:    act,
		Mail:          sender,
		Notifier:      notifier,
		DashRouter:    dashroute.New(dashroute.DefaultRoles(), logger.Named("dashroute"), m),
		Resolver:      dashroute.WithPaths(routePaths, logger.Named("dashroute")),
		LoginGuard:    ratelimit.NewLoginGuard(),
		ResendGuard:   ratelimit.NewResendGuard(),
	}, nil
}

// ensureSuperuser promotes the account with the given email to superuser,
// creating an active admin account when none exists.
func ensureSuperuser(ctx context.Context, users *userstore.Store, email, password string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsSuperuser && u.IsActive {
			return nil
		}
		if _, err := users.PromoteSuperuser(ctx, u.ID); err != nil {
			return err
		}
		logger.Info("promoted user to superuser", zap.String("user_id", u.ID.Hex()))
		return nil
	case !errors.Is(err, userstore.ErrNotFound):
		return err
	}

	var hash string
	if password != "" {
		if hash, err = auth.HashPassword(password); err != nil {
			return err
		}
	} else {
		logger.Warn("creating superuser without a password; set superuser_password to sign in")
	}

	username, _, _ := strings.Cut(email, "@")
	created, err := users.Create(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		UserType:     models.UserTypeAdmin,
		IsActive:     true,
		IsSuperuser:  true,
		IsStaff:      true,
	}, userstore.CreateOptions{})
	if err != nil {
		return err
	}
	logger.Info("created superuser", zap.String("user_id", created.ID.Hex()))
	return nil
}

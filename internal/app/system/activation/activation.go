// Package activation issues and redeems account activation links.
package activation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	userstore "github.com/dalemusser/rosterhub/internal/app/store/users"
	"github.com/dalemusser/rosterhub/internal/app/system/mailer"
	"github.com/dalemusser/rosterhub/internal/app/system/metrics"
	"github.com/dalemusser/rosterhub/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultTTL is how long an activation link stays valid.
const DefaultTTL = 72 * time.Hour

const fallbackBaseURL = "http://localhost:8000"

var (
	// ErrActivation is wrapped by every activation failure.
	ErrActivation = errors.New("activation link is invalid or has expired")
	// ErrInvalidID means the uid did not decode to a known user.
	ErrInvalidID = fmt.Errorf("%w: unknown user", ErrActivation)
	// ErrInvalidOrExpiredToken means the token did not verify for the user.
	ErrInvalidOrExpiredToken = fmt.Errorf("%w: bad token", ErrActivation)
)

// Dispatcher hands an email off for background delivery.
type Dispatcher interface {
	Dispatch(e mailer.Email) string
}

// Config is read on every call so a changed site URL takes effect
// without rebuilding the service.
type Config struct {
	SiteName     string
	SiteURL      string
	AllowedHosts []string
}

type Service struct {
	users   *userstore.Store
	tokens  *Tokens
	mail    Dispatcher
	cfg     func() Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(users *userstore.Store, tokens *Tokens, mail Dispatcher, cfg func() Config, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{users: users, tokens: tokens, mail: mail, cfg: cfg, log: log, metrics: m}
}

var _ userstore.SaveListener = (*Service)(nil)

// UserSaved implements userstore.SaveListener. It never fails the save.
func (s *Service) UserSaved(ctx context.Context, ev userstore.SaveEvent) error {
	s.Issue(ctx, ev)
	return nil
}

// Issue sends an activation email for a newly created, inactive user with
// an email address. It returns the link and whether one was sent.
func (s *Service) Issue(_ context.Context, ev userstore.SaveEvent) (string, bool) {
	u := ev.User
	if !ev.Created || u == nil || u.IsActive || u.Email == "" {
		return "", false
	}
	return s.send(u), true
}

// Resend re-issues a link for an inactive account. Unknown emails and
// active accounts are ignored so the response does not reveal either.
func (s *Service) Resend(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsActive {
		return nil
	}
	s.send(u)
	return nil
}

// Link builds the absolute activation URL for u.
func (s *Service) Link(u *models.User) string {
	return s.baseURL() + "/activate/" + EncodeUID(u.ID) + "/" + s.tokens.Make(u) + "/"
}

func (s *Service) send(u *models.User) string {
	link := s.Link(u)
	cfg := s.cfg()

	e := mailer.BuildActivationEmail(mailer.ActivationEmailData{
		SiteName:  siteName(cfg),
		Username:  u.Username,
		Link:      link,
		ExpiresIn: humanDuration(s.tokens.ttl),
	})
	e.To = u.Email
	e.ToName = u.FullName()

	id := s.mail.Dispatch(e)
	s.log.Info("activation email dispatched",
		zap.String("user_id", u.ID.Hex()),
		zap.String("delivery_id", id))
	return link
}

// Consume validates uid and token and activates the account. Two
// concurrent uses of one link both succeed. Once the account is active the
// token no longer verifies, so a later reuse is rejected.
func (s *Service) Consume(ctx context.Context, uid, token string) (*models.User, error) {
	id, ok := DecodeUID(uid)
	if !ok {
		s.metrics.Activation(metrics.OutcomeInvalid)
		return nil, ErrInvalidID
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		s.metrics.Activation(metrics.OutcomeInvalid)
		return nil, ErrInvalidID
	}
	if err != nil {
		return nil, err
	}

	if !s.tokens.Check(u, token) {
		s.metrics.Activation(metrics.OutcomeInvalid)
		return nil, ErrInvalidOrExpiredToken
	}

	u, activated, err := s.users.Activate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if activated {
		s.metrics.Activation(metrics.OutcomeActivated)
	} else {
		s.metrics.Activation(metrics.OutcomeRedundant)
	}
	return u, nil
}

// baseURL resolves site_url, then the first allowed host, then the local
// development address. The result has no trailing slash.
func (s *Service) baseURL() string {
	cfg := s.cfg()
	if u := strings.TrimSpace(cfg.SiteURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	for _, h := range cfg.AllowedHosts {
		h = strings.TrimSpace(h)
		if h == "" || h == "*" {
			continue
		}
		scheme := "https://"
		if isLocalHost(h) {
			scheme = "http://"
		}
		return strings.TrimRight(scheme+h, "/")
	}
	return fallbackBaseURL
}

func isLocalHost(h string) bool {
	host := h
	if hp, _, err := net.SplitHostPort(h); err == nil {
		host = hp
	}
	return host == "localhost" || host == "127.0.0.1"
}

func siteName(cfg Config) string {
	if cfg.SiteName != "" {
		return cfg.SiteName
	}
	return "RosterHub"
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	case d >= time.Hour && d%time.Hour == 0:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	}
	return d.String()
}

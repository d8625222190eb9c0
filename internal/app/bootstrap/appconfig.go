// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// the framework-level settings (ports, TLS, logging, CORS, body limits);
// everything specific to RosterHub lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: rosterhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Site identity, used to build absolute links in email
	SiteName     string
	SiteURL      string   // e.g., "https://roster.example.org"; blank falls back to AllowedHosts
	AllowedHosts []string // host names this deployment answers to

	// Account activation
	ActivationSecret          string
	ActivationSecretFallbacks []string // retired secrets still accepted when verifying
	ActivationTokenTTL        time.Duration

	// Outbound email
	MailTransport      string // "smtp", "amqp" or "log"
	MailSMTPHost       string
	MailSMTPPort       int
	MailSMTPUser       string
	MailSMTPPass       string
	MailFrom           string
	MailFromName       string
	MailAMQPURL        string
	MailAMQPExchange   string
	MailAMQPRoutingKey string

	// Dashboard routing
	RoutePaths []string // extra "key=/path" destinations for route overrides

	// Superuser bootstrap
	SuperuserEmail    string // promotes (or creates) this account on startup
	SuperuserPassword string // password for a newly created superuser
}

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env                  string        `env:"ENV"                   envDefault:"dev"`  // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"` // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"` // json, text
	LogFile              string        `env:"LOG_FILE"`                                // optional rotated copy of the log
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	DatabaseFile   string        `env:"DATABASE_FILE"    envDefault:"invite.db"`
	PepperFile     string        `env:"PEPPER_FILE"      envDefault:"pepper"`
	SessionKeyFile string        `env:"SESSION_KEY_FILE"` // empty: ephemeral key, sessions die on restart
	SessionTTL     time.Duration `env:"SESSION_TTL"      envDefault:"336h"`
	SessionIssuer  string        `env:"SESSION_ISSUER"   envDefault:"invite"`
	BootstrapToken string        `env:"BOOTSTRAP_TOKEN"` // empty disables POST /v1/bootstrap

	InvitationDays   int    `env:"INVITATION_DAYS"    envDefault:"30"`
	InvitationForm   string `env:"INVITATION_FORM"    envDefault:"invitation.PasswordForm"`
	LoginRedirectURL string `env:"LOGIN_REDIRECT_URL" envDefault:"/invite/complete/"`
	DefaultFromEmail string `env:"DEFAULT_FROM_EMAIL" envDefault:"webmaster@localhost"`

	SiteName   string `env:"SITE_NAME"   envDefault:"Invite"`
	SiteDomain string `env:"SITE_DOMAIN" envDefault:"localhost:8080"`
	SiteScheme string `env:"SITE_SCHEME" envDefault:"https"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`

	RedisURL     string `env:"REDIS_URL"` // optional redemption fan-out
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"invite.redeemed"`
}

// SMTPConfig is read from SMTP_*. An empty host logs mail instead of
// sending it.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Attempts uint   `env:"ATTEMPTS" envDefault:"3"`
}

// LoadConfig parses the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.InvitationDays < 1 {
		errs = append(errs, fmt.Errorf("INVITATION_DAYS must be at least 1, got %d", c.InvitationDays))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SiteDomain == "" {
		errs = append(errs, errors.New("SITE_DOMAIN is required"))
	}
	return errors.Join(errs...)
}

// SecureCookies reports whether session cookies need the Secure flag.
func (c Config) SecureCookies() bool {
	return c.Env != "dev"
}

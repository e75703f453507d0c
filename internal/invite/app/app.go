package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/invite/internal/invite/http"
	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/internal/invite/store/drivers/sqlite"
	"github.com/aussiebroadwan/invite/internal/invite/templates"
	"github.com/aussiebroadwan/invite/pkg/cryptox"
	"github.com/aussiebroadwan/invite/pkg/jwtx"
	"github.com/aussiebroadwan/invite/pkg/mailx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the invitation service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	signer *jwtx.SessionSigner
	pages  *templates.Renderer
	mailer mailx.Sender
	events *service.Dispatcher
	redis  *service.RedisPublisher // nil unless REDIS_URL is set

	// Services
	accountService      *service.AccountService
	profileService      *service.ProfileService
	invitationService   *service.InvitationService
	redemptionService   *service.RedemptionService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New builds the application. Configuration problems, including an unknown
// INVITATION_FORM, are returned before anything starts serving.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "invite-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			File:    cfg.LogFile,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	pages, err := templates.New()
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.pages = pages

	app.initMailer()

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("invite service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down invite service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("invite service stopped")
	return nil
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initSigner() error {
	if app.cfg.SessionKeyFile == "" {
		app.logger.Warn("SESSION_KEY_FILE not set, using an ephemeral session key")
	}
	key, err := jwtx.LoadOrGenerateKey(app.cfg.SessionKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load session key: %w", err)
	}
	app.signer, err = jwtx.NewSessionSigner(key, app.cfg.SessionIssuer)
	if err != nil {
		return fmt.Errorf("failed to create session signer: %w", err)
	}
	return nil
}

func (app *Application) initMailer() {
	if app.cfg.SMTP.Host == "" {
		app.logger.Warn("SMTP_HOST not set, invitation emails will only be logged")
		app.mailer = mailx.LogSender{Logger: app.logger}
		return
	}
	app.mailer = mailx.NewSMTPSender(mailx.SMTPConfig{
		Host:     app.cfg.SMTP.Host,
		Port:     app.cfg.SMTP.Port,
		Username: app.cfg.SMTP.Username,
		Password: app.cfg.SMTP.Password,
		Attempts: app.cfg.SMTP.Attempts,
	}, app.logger)
}

// initServices wires the business services and the redemption listeners.
func (app *Application) initServices() error {
	forms, err := service.NewFormRegistry().Resolve(app.cfg.InvitationForm)
	if err != nil {
		return err
	}

	site := app.site()

	app.accountService = &service.AccountService{
		Store:      app.db,
		Signer:     app.signer,
		SessionTTL: app.cfg.SessionTTL,
	}
	app.profileService = &service.ProfileService{Store: app.db}
	app.invitationService = &service.InvitationService{
		Store:            app.db,
		Accounts:         app.accountService,
		Mailer:           app.mailer,
		Templates:        app.pages,
		Site:             site,
		DefaultDays:      app.cfg.InvitationDays,
		DefaultFromEmail: app.cfg.DefaultFromEmail,
	}

	app.events = service.NewDispatcher()
	app.events.Subscribe("profiles", app.profileService.ProvisionOnRedeem)
	if app.cfg.RedisURL != "" {
		pub, err := service.NewRedisPublisher(app.cfg.RedisURL, app.cfg.RedisChannel)
		if err != nil {
			return err
		}
		app.redis = pub
		app.events.Subscribe("redis", pub.Publish)
		app.logger.Info("redemption events published to redis", "channel", pub.Channel)
	}

	app.redemptionService = &service.RedemptionService{
		Store:            app.db,
		Accounts:         app.accountService,
		Profiles:         app.profileService,
		Forms:            forms,
		Events:           app.events,
		LoginRedirectURL: app.cfg.LoginRedirectURL,
	}
	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.invitationService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) site() templates.Site {
	return templates.Site{
		Name:   app.cfg.SiteName,
		Domain: app.cfg.SiteDomain,
		Scheme: app.cfg.SiteScheme,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.pages,
		app.site(),
		app.cfg.SecureCookies(),
		app.logger,
	)

	router.AccountService = app.accountService
	router.InvitationService = app.invitationService
	router.RedemptionService = app.redemptionService
	router.ProfileService = app.profileService
	router.BootstrapService = app.bootstrapService
	router.RedisPublisher = app.redis
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/directory"
	"github.com/berthd/berth/internal/berth/domain"
	httpapi "github.com/berthd/berth/internal/berth/http"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/internal/berth/store/drivers/sqlite"
	"github.com/berthd/berth/pkg/cryptox"
	"github.com/berthd/berth/pkg/idx"
	"github.com/berthd/berth/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the panel service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	cluster *cluster.Client

	sessions      *service.Sessions
	authService   *service.AuthService
	deployService *service.DeployService
	userService   *service.UserService
	domainService *service.DomainService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "berth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.ClusterAPIBaseURL == "" {
		return nil, errors.New("BERTH_CLUSTER_API_URL is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.bootstrapAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("berth starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown gracefully stops the HTTP server and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down berth...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("berth stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// bootstrapAdmin seeds the first admin account when the user table is empty.
// Without a configured password one is generated and logged exactly once;
// there is no fixed default credential.
func (app *Application) bootstrapAdmin(ctx context.Context) error {
	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap check failed: %w", err)
	}
	if !empty {
		return nil
	}

	password := app.cfg.AdminPassword
	generated := false
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			return fmt.Errorf("bootstrap password generation failed: %w", err)
		}
		generated = true
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap password hash failed: %w", err)
	}

	admin := domain.User{
		ID:           idx.New().String(),
		Username:     app.cfg.AdminUsername,
		FullName:     "Administrator",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Quota:        domain.DefaultQuota(),
	}
	if err := app.db.Users().CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("bootstrap admin creation failed: %w", err)
	}

	if generated {
		app.logger.Warn("bootstrap admin created with generated password",
			"username", admin.Username, "password", password)
	} else {
		app.logger.Info("bootstrap admin created", "username", admin.Username)
	}
	return nil
}

func (app *Application) initServices() {
	app.cluster = cluster.NewClient(app.cfg.ClusterAPIBaseURL, app.logger)

	secret := app.cfg.SessionSecret
	if secret == "" {
		// Without a configured secret sessions do not survive restarts.
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		secret = hex.EncodeToString(buf)
		app.logger.Warn("BERTH_SESSION_SECRET not set; sessions reset on restart")
	}
	app.sessions = &service.Sessions{
		Secret: []byte(secret),
		TTL:    app.cfg.SessionTTL,
	}

	var binder directory.Binder
	if app.cfg.LDAPURL != "" {
		binder = &directory.LDAP{
			URL:            app.cfg.LDAPURL,
			UserDNTemplate: app.cfg.LDAPUserDNTemplate,
			Timeout:        app.cfg.LDAPTimeout,
			Logger:         app.logger,
		}
		app.logger.Info("directory authentication enabled", "url", app.cfg.LDAPURL)
	}

	app.authService = &service.AuthService{Store: app.db, Directory: binder}
	app.deployService = &service.DeployService{
		Store:     app.db,
		Cluster:   app.cluster,
		Allocator: &service.Allocator{Store: app.db},
		Logger:    app.logger,
	}
	app.userService = &service.UserService{Store: app.db, Cluster: app.cluster}
	app.domainService = &service.DomainService{Store: app.db}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.cfg.SecureCookies,
		app.db,
		app.cluster,
		app.logger,
	)

	router.Sessions = app.sessions
	router.AuthService = app.authService
	router.DeployService = app.deployService
	router.UserService = app.userService
	router.DomainService = app.domainService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

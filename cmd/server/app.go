package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/tracker-api/internal/api"
	"github.com/phrazzld/tracker-api/internal/api/middleware"
	"github.com/phrazzld/tracker-api/internal/authz"
	"github.com/phrazzld/tracker-api/internal/config"
	"github.com/phrazzld/tracker-api/internal/jobs"
	"github.com/phrazzld/tracker-api/internal/notify"
	"github.com/phrazzld/tracker-api/internal/platform/mail"
	"github.com/phrazzld/tracker-api/internal/platform/postgres"
	"github.com/phrazzld/tracker-api/internal/service"
	"github.com/phrazzld/tracker-api/internal/service/auth"
	"github.com/phrazzld/tracker-api/internal/store"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	taskStore store.TaskStore

	tokens     auth.TokenService
	authorizer *authz.Authorizer

	userService service.UserService
	taskService service.TaskService

	jobRunner *jobs.Runner
}

// newApplication wires every component. Nothing is started.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.tokens, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes,
		"algorithm", cfg.Auth.Algorithm)

	app.userStore = postgres.NewPostgresUserStore(db)
	app.taskStore = postgres.NewPostgresTaskStore(db)
	app.authorizer = authz.NewAuthorizer(app.tokens, app.userStore)

	sender, err := mail.NewSender(cfg.Mail)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail sender: %w", err)
	}

	registry := jobs.NewRegistry()
	notify.RegisterJobs(registry, sender, cfg.Mail.From)
	app.jobRunner = jobs.NewRunner(postgres.NewPostgresJobStore(db), registry, jobs.Config{
		WorkerCount: cfg.Jobs.WorkerCount,
		QueueSize:   cfg.Jobs.QueueSize,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		StuckJobAge: time.Duration(cfg.Jobs.StuckJobAgeMinutes) * time.Minute,
	}, logger)

	trigger := notify.NewTrigger(app.jobRunner, logger)

	app.userService = service.NewUserService(
		app.userStore,
		auth.NewBcryptHasher(cfg.Auth.BCryptCost),
		app.tokens,
		logger,
	)
	app.taskService = service.NewTaskService(app.taskStore, db, trigger, logger)

	logger.Info("application initialized successfully")
	return app, nil
}

// router builds the HTTP handler tree.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterDeps{
		AuthHandler: api.NewAuthHandler(app.userService, api.SessionCookie{
			Name:     app.config.Auth.CookieName,
			Secure:   app.config.Auth.CookieSecure,
			Lifetime: app.tokens.Lifetime(),
		}, app.logger),
		TaskHandler:    api.NewTaskHandler(app.taskService, app.logger),
		AuthMiddleware: middleware.NewAuthMiddleware(app.authorizer, app.config.Auth.CookieName, api.HandleAPIError),
		Logger:         app.logger,
		RequestTimeout: time.Duration(app.config.Server.WriteTimeoutSeconds) * time.Second,
	})
}

// Run starts the job runner and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.jobRunner.Start(); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.router()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.jobRunner != nil {
		app.jobRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}

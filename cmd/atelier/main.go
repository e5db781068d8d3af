package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atelier-works/atelier/internal/app"
	"github.com/atelier-works/atelier/internal/auth"
	"github.com/atelier-works/atelier/internal/authz"
	"github.com/atelier-works/atelier/internal/models"
	"github.com/atelier-works/atelier/internal/notify"
	"github.com/atelier-works/atelier/internal/observability"
	"github.com/atelier-works/atelier/internal/permissions"
	"github.com/atelier-works/atelier/internal/platform/cache"
	"github.com/atelier-works/atelier/internal/platform/db"
	"github.com/atelier-works/atelier/internal/shared"
	"github.com/atelier-works/atelier/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "atelier_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	permService := permissions.NewService(permissions.NewRepository(dbpool), redisClient, cfg.PermissionCacheTTL, logger)
	gate := authz.NewGate(permService)
	authzMiddleware := authz.Middleware{Gate: gate, Logger: logger}

	usersService := users.NewService(users.NewRepository(dbpool), permService)
	authService := auth.NewService(auth.NewRepository(dbpool))
	notifier := notify.NewEnqueuer(asynqClient, notify.NewRepository(dbpool), cfg.SMTPFrom)
	modelsService := models.NewService(models.NewRepository(dbpool), gate, auditLogger, notifier, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, csrfManager),
		UsersHandler:       users.NewHandler(logger, usersService),
		PermissionsHandler: permissions.NewHandler(logger, permService, gate),
		ModelsHandler:      models.NewHandler(logger, modelsService),
		AuthzMiddleware:    authzMiddleware,
		Metrics:            observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}

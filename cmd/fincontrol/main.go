package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fin-control/fin-control/internal/app"
	"github.com/fin-control/fin-control/internal/audit"
	"github.com/fin-control/fin-control/internal/auth"
	"github.com/fin-control/fin-control/internal/batches"
	"github.com/fin-control/fin-control/internal/companies"
	"github.com/fin-control/fin-control/internal/costcenters"
	"github.com/fin-control/fin-control/internal/entities"
	"github.com/fin-control/fin-control/internal/feedback"
	"github.com/fin-control/fin-control/internal/notifications"
	"github.com/fin-control/fin-control/internal/observability"
	"github.com/fin-control/fin-control/internal/platform/cache"
	"github.com/fin-control/fin-control/internal/platform/db"
	"github.com/fin-control/fin-control/internal/rbac"
	"github.com/fin-control/fin-control/internal/recurrences"
	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
	"github.com/fin-control/fin-control/internal/transactions"
	"github.com/fin-control/fin-control/internal/users"
	"github.com/fin-control/fin-control/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "fincontrol_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger)

	rbacMiddleware := rbac.Middleware{Source: usersService, Logger: logger}

	companiesRepo := companies.NewRepository(dbpool)
	companiesService := companies.NewService(companiesRepo, auditLogger)
	companiesHandler := companies.NewHandler(logger, companiesService, rbacMiddleware, usersService)

	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	entitiesRepo := entities.NewRepository(dbpool)
	entitiesService := entities.NewService(entitiesRepo, auditLogger)
	entitiesHandler := entities.NewHandler(logger, entitiesService, rbacMiddleware)

	transactionsRepo := transactions.NewRepository(dbpool)
	transactionsService := transactions.NewService(transactionsRepo, jobsClient, auditLogger, logger)
	payablesHandler := transactions.NewPayablesHandler(logger, transactionsService, rbacMiddleware)
	receivablesHandler := transactions.NewReceivablesHandler(logger, transactionsService, rbacMiddleware)

	costCentersRepo := costcenters.NewRepository(dbpool)
	costCentersService := costcenters.NewService(costCentersRepo, auditLogger)
	costCentersHandler := costcenters.NewHandler(logger, costCentersService, rbacMiddleware)

	recurrencesRepo := recurrences.NewRepository(dbpool)
	recurrencesService := recurrences.NewService(recurrencesRepo, auditLogger, jobsClient, logger)
	recurrencesHandler := recurrences.NewHandler(logger, recurrencesService, rbacMiddleware)

	batchesRepo := batches.NewRepository(dbpool)
	batchesService := batches.NewService(batchesRepo, approvalRecorder, auditLogger, jobsClient, jobsClient, idempotencyStore, logger, cfg.BatchTokenTTL, cfg.BaseURL)
	batchesHandler := batches.NewHandler(logger, batchesService, rbacMiddleware)
	publicBatchHandler := batches.NewPublicHandler(logger, batchesService)

	statsRepo := stats.NewRepository(dbpool)
	statsService := stats.NewService(statsRepo, logger)
	statsHandler := stats.NewHandler(logger, statsService, rbacMiddleware)

	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo)
	notificationsHandler := notifications.NewHandler(logger, notificationsService, rbacMiddleware)

	auditRepo := audit.NewRepository(dbpool)
	auditHandler := audit.NewHandler(logger, auditRepo, rbacMiddleware)

	feedbackRepo := feedback.NewRepository(dbpool)
	feedbackService := feedback.NewService(feedbackRepo)
	feedbackHandler := feedback.NewHandler(logger, feedbackService, rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		CompaniesHandler:     companiesHandler,
		UsersHandler:         usersHandler,
		EntitiesHandler:      entitiesHandler,
		PayablesHandler:      payablesHandler,
		ReceivablesHandler:   receivablesHandler,
		CostCentersHandler:   costCentersHandler,
		RecurrencesHandler:   recurrencesHandler,
		BatchesHandler:       batchesHandler,
		PublicBatchHandler:   publicBatchHandler,
		StatsHandler:         statsHandler,
		NotificationsHandler: notificationsHandler,
		AuditHandler:         auditHandler,
		FeedbackHandler:      feedbackHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

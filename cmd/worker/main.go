package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fin-control/fin-control/internal/app"
	"github.com/fin-control/fin-control/internal/notifications"
	"github.com/fin-control/fin-control/internal/observability"
	"github.com/fin-control/fin-control/internal/platform/cache"
	"github.com/fin-control/fin-control/internal/platform/db"
	"github.com/fin-control/fin-control/internal/recurrences"
	"github.com/fin-control/fin-control/internal/shared"
	"github.com/fin-control/fin-control/internal/stats"
	"github.com/fin-control/fin-control/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	mailer := notifications.NewMailer(notifications.MailerConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		Env:        cfg.MailerEnv(),
		RedirectTo: cfg.MailRedirectTo,
	}, logger)

	statsRepo := stats.NewRepository(pool)
	statsService := stats.NewService(statsRepo, logger)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	recurrencesRepo := recurrences.NewRepository(pool)
	recurrencesService := recurrences.NewService(recurrencesRepo, auditLogger, jobsClient, logger)

	metrics := observability.NewMetrics()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: &jobs.Handlers{
			Mailer:      mailer,
			Stats:       statsService,
			Recurrences: recurrencesService,
			Redis:       redisClient,
			Logger:      logger,
			ObserveJob:  metrics.ObserveJob,
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

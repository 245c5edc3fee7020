package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/stayregistry-backend/internal/credits"
	"github.com/angelmondragon/stayregistry-backend/internal/cron"
	"github.com/angelmondragon/stayregistry-backend/pkg/config"
	"github.com/angelmondragon/stayregistry-backend/pkg/db"
	"github.com/angelmondragon/stayregistry-backend/pkg/instance"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
	"github.com/angelmondragon/stayregistry-backend/pkg/migrate"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	once := flag.Bool("once", false, "run every audit once and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg, *once); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger, once bool) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var lock cron.Lock = &cron.LocalLock{}
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		var redisLock *cron.RedisLock
		redisLock, err = cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 2*cfg.Audit.Interval)
		if err != nil {
			return err
		}
		lock = redisLock
	} else {
		logg.Warn(ctx, "redis not configured, cron lock is process local")
	}

	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewCronJobMetrics(reg)

	ledgerJob, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: credits.NewRepository(dbClient.DB()),
		Metrics:    jobMetrics,
	})
	if err != nil {
		return err
	}
	backlogJob, err := cron.NewOutboxBacklogJob(cron.OutboxBacklogJobParams{
		Logger:      logg,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Metrics:     jobMetrics,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(ledgerJob, backlogJob)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Audit.Interval,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.ID("cron-worker-0"),
		"serviceKind": cfg.Service.Kind,
	})

	if once {
		report, err := service.RunCycle(ctx)
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("audit jobs failed: %s", strings.Join(report.Failed, ", "))
		}
		return nil
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Audit.MetricsPort,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}()

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return redis.Key("cron-worker", "lock", env)
}

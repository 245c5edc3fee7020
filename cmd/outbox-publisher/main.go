package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/stayregistry-backend/pkg/config"
	"github.com/angelmondragon/stayregistry-backend/pkg/db"
	"github.com/angelmondragon/stayregistry-backend/pkg/instance"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
	"github.com/angelmondragon/stayregistry-backend/pkg/migrate"
	"github.com/angelmondragon/stayregistry-backend/pkg/mq"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox/registry"
	"github.com/angelmondragon/stayregistry-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	}

	snk, closeSink, err := buildSink(cfg, logg, redisClient)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeSink()) }()

	var guard deliveryGuard
	if redisClient != nil {
		manager, err := idempotency.NewManager(redisClient, cfg.Outbox.DeliveredTTL)
		if err != nil {
			return err
		}
		guard = manager
	} else {
		logg.Warn(ctx, "redis not configured, delivery dedupe disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Sink:       snk,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   registry.NewEventRegistry(),
		Guard:      guard,
		Metrics:    metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("create outbox publisher: %w", err)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Outbox.MetricsPort,
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

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.ID("outbox-publisher-0"),
		"serviceKind": "outbox-publisher",
		"sink":        snk.Name(),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}

func buildSink(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client) (sink, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Events.NormalizedSink() {
	case config.EventSinkRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("%s=redis requires %s", config.EnvEventsSink, config.EnvRedisURL)
		}
		snk, err := newRedisSink(redisClient, cfg.Events.ChannelPrefix)
		return snk, noop, err
	case config.EventSinkAMQP:
		pub, err := mq.NewPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		snk, err := newAMQPSink(pub)
		if err != nil {
			_ = pub.Close()
			return nil, nil, err
		}
		return snk, pub.Close, nil
	default:
		return &logSink{logg: logg}, noop, nil
	}
}

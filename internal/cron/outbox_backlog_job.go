package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
)

const defaultMaxAttempts = 10

type OutboxBacklogJobParams struct {
	Logger      *logger.Logger
	Repository  outboxBacklogRepo
	Metrics     *metrics.CronJobMetrics
	MaxAttempts int
}

type outboxBacklogRepo interface {
	Backlog(ctx context.Context, maxAttempts int) (pending, parked int64, err error)
}

// NewOutboxBacklogJob reports rows the publisher has not delivered yet.
// Parked rows stay in the event feed but never reach a sink.
func NewOutboxBacklogJob(params OutboxBacklogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &outboxBacklogJob{
		logg:        params.Logger,
		repo:        params.Repository,
		metrics:     params.Metrics,
		maxAttempts: maxAttempts,
	}, nil
}

type outboxBacklogJob struct {
	logg        *logger.Logger
	repo        outboxBacklogRepo
	metrics     *metrics.CronJobMetrics
	maxAttempts int
}

func (j *outboxBacklogJob) Name() string { return "outbox-backlog" }

func (j *outboxBacklogJob) Run(ctx context.Context) error {
	pending, parked, err := j.repo.Backlog(ctx, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("outbox backlog: %w", err)
	}
	j.metrics.SetOutboxBacklog(pending, parked)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"pending":      pending,
		"parked":       parked,
		"max_attempts": j.maxAttempts,
	})
	if parked > 0 {
		j.logg.Warn(logCtx, "outbox has parked events")
		return nil
	}
	j.logg.Info(logCtx, "outbox backlog checked")
	return nil
}

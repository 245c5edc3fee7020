package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/internal/credits"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
)

// atomicRunner serializes the audit reads against registry mutations so both
// sums come from the same committed state.
type atomicRunner interface {
	Atomic(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type LedgerAuditJobParams struct {
	Logger     *logger.Logger
	DB         atomicRunner
	Repository credits.Repository
	Metrics    *metrics.CronJobMetrics
}

// NewLedgerAuditJob checks that total supply equals the sum of all balances.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("credit repository required")
	}
	return &ledgerAuditJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repository,
		metrics: params.Metrics,
	}, nil
}

type ledgerAuditJob struct {
	logg    *logger.Logger
	db      atomicRunner
	repo    credits.Repository
	metrics *metrics.CronJobMetrics
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	var supply, balances int64
	err := j.db.Atomic(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		var err error
		if supply, err = repo.TotalSupply(ctx); err != nil {
			return err
		}
		balances, err = repo.SumBalances(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("ledger audit: %w", err)
	}

	drift := supply - balances
	j.metrics.SetSupplyDrift(drift)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"total_supply": supply,
		"balance_sum":  balances,
		"drift":        drift,
	})
	if drift != 0 {
		return fmt.Errorf("ledger audit: supply %d does not match balances %d", supply, balances)
	}
	j.logg.Info(logCtx, "ledger audit balanced")
	return nil
}

package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/application"
)

// OutboxFlushWorker drains pending outbox records on an interval.
// This separates transactional writes from broker delivery for reliability.
type OutboxFlushWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewOutboxFlushWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *OutboxFlushWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxFlushWorker{logger: logger, service: service, interval: interval}
}

// Run executes the periodic flush loop until context cancellation.
func (w *OutboxFlushWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.service.FlushOutbox(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox flush iteration failed",
				"module", "events.outbox_flush_worker",
				"layer", "adapter",
				"operation", "flush_outbox",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepWorker runs the escrow auto-release and bid-expiry sweeps. Both sweeps
// are idempotent, so overlapping runs across replicas are harmless.
type SweepWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewSweepWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *SweepWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepWorker{logger: logger, service: service, interval: interval}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	if result, err := w.service.ExpireBidsSweep(ctx); err != nil {
		w.logger.ErrorContext(ctx, "bid expiry sweep failed",
			"module", "events.sweep_worker",
			"layer", "adapter",
			"operation", "expire_bids_sweep",
			"outcome", "failure",
			"error", err,
		)
	} else if result.Expired > 0 {
		w.logger.InfoContext(ctx, "bid expiry sweep completed",
			"module", "events.sweep_worker",
			"layer", "adapter",
			"operation", "expire_bids_sweep",
			"outcome", "success",
			"expired", result.Expired,
		)
	}

	if result, err := w.service.AutoReleaseSweep(ctx); err != nil {
		w.logger.ErrorContext(ctx, "auto release sweep failed",
			"module", "events.sweep_worker",
			"layer", "adapter",
			"operation", "auto_release_sweep",
			"outcome", "failure",
			"error", err,
		)
	} else if result.Processed > 0 {
		w.logger.InfoContext(ctx, "auto release sweep completed",
			"module", "events.sweep_worker",
			"layer", "adapter",
			"operation", "auto_release_sweep",
			"outcome", "success",
			"processed", result.Processed,
			"released", result.Released,
			"failed", result.Failed,
		)
	}
}

// Package worker runs the deferred realm rollups triggered by accepted
// snapshots.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lotkeeper/internal/config"
	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/logging"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/retry"
)

// RealmAggregator computes and persists one realm's hourly rollup
type RealmAggregator interface {
	RollupRealm(ctx context.Context, realmID int64) (*models.RealmActivityRollup, error)
}

// RollupWorker executes deferred rollups. Each schedule call is
// fire-and-forget relative to the ingestion response: the triggering
// request returns immediately and the rollup runs after the configured
// delay, retrying transient storage failures with backoff.
type RollupWorker struct {
	aggregator RealmAggregator
	cfg        config.RollupConfig
	logger     *logging.Logger

	// retryInitialDelay seeds the backoff between rollup attempts
	retryInitialDelay time.Duration

	// stopCh aborts pending delays only. A rollup that already started
	// keeps its retry budget through Stop.
	stopCh chan struct{}

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRollupWorker creates a new rollup worker
func NewRollupWorker(aggregator RealmAggregator, cfg config.RollupConfig, logger *logging.Logger) *RollupWorker {
	return &RollupWorker{
		aggregator:        aggregator,
		cfg:               cfg,
		logger:            logger.WithComponent("rollup_worker"),
		retryInitialDelay: time.Second,
		stopCh:            make(chan struct{}),
	}
}

// Schedule queues a deferred rollup for a realm. Returns immediately; the
// rollup runs after the delay unless the worker stops first. Concurrent
// schedules for the same realm are safe, the rollup upsert is idempotent.
func (w *RollupWorker) Schedule(realmID int64, delay time.Duration) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.logger.WithField("realmId", realmID).Warn("Rollup worker stopped, dropping scheduled rollup")
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-w.stopCh:
				return
			}
		}

		w.run(realmID)
	}()
}

// run executes one rollup with retries on transient failure
func (w *RollupWorker) run(realmID int64) {
	logger := w.logger.WithField("realmId", realmID)
	ctx := logging.WithLogger(context.Background(), logger)

	retryCfg := &retry.RetryConfig{
		MaxAttempts:  w.cfg.MaxRetries,
		InitialDelay: w.retryInitialDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		ShouldRetry:  apperrors.IsRetryable,
	}

	result := retry.WithExponentialBackoff(ctx, retryCfg, func(ctx context.Context, attempt int) error {
		_, err := w.aggregator.RollupRealm(ctx, realmID)
		return err
	})

	if result.Success {
		return
	}

	if errors.Is(result.LastError, apperrors.ErrAggregationSkipped) {
		logger.Info("Rollup skipped, no qualifying listings")
		return
	}

	// Left for the next accepted ingestion to trigger again.
	logger.WithError(result.LastError).Error("Deferred rollup failed")
}

// Stop prevents new schedules, cancels pending delays, and waits for
// in-flight rollups to finish their retries.
func (w *RollupWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.logger.Info("Rollup worker stopped")
}

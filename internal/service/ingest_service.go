// Package service implements the core ingestion, aggregation, and query
// operations on top of the storage repositories.
package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lotkeeper/internal/config"
	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/logging"
	"github.com/lotkeeper/internal/models"
)

// SnapshotStore replaces a realm's active listing set
type SnapshotStore interface {
	ReplaceForRealm(ctx context.Context, realmID int64, listings []models.SnapshotListing) error
}

// DatapointAppender appends historical datapoints
type DatapointAppender interface {
	AppendBatch(ctx context.Context, datapoints []models.AuctionDatapoint) error
}

// RollupReader reads the rollup baseline used by the anomaly guard
type RollupReader interface {
	GetLatest(ctx context.Context, realmID int64, since time.Time) (*models.RealmActivityRollup, error)
}

// SummaryInvalidator drops cached summaries after a snapshot lands
type SummaryInvalidator interface {
	InvalidateRealm(ctx context.Context, realmID int64) error
}

// RollupScheduler triggers a deferred realm rollup
type RollupScheduler interface {
	Schedule(realmID int64, delay time.Duration)
}

// GuardDecision is the anomaly guard's verdict plus its diagnostics. The
// diagnostics are always populated, accepted or not.
type GuardDecision struct {
	Accepted           bool    `json:"accepted"`
	NewCount           int     `json:"newCount"`
	PreviousCount      int64   `json:"previousCount"`
	Threshold          int64   `json:"threshold"`
	DecreasePercentage float64 `json:"decreasePercentage"`
}

// SnapshotResult reports the outcome of one snapshot submission
type SnapshotResult struct {
	SnapshotID string        `json:"snapshotId"`
	Accepted   bool          `json:"accepted"`
	Guard      GuardDecision `json:"guard"`
}

// IngestService accepts full snapshots of a realm's auction house. Each
// submission is validated against the previous known activity level before
// any state is touched.
type IngestService struct {
	listings   SnapshotStore
	datapoints DatapointAppender
	rollups    RollupReader
	cache      SummaryInvalidator
	scheduler  RollupScheduler

	guardCfg  config.GuardConfig
	rollupCfg config.RollupConfig

	// now is swappable for tests
	now func() time.Time
}

// NewIngestService creates a new ingest service. cache and scheduler may be
// nil; both are optional side effects of an accepted snapshot.
func NewIngestService(
	listings SnapshotStore,
	datapoints DatapointAppender,
	rollups RollupReader,
	cache SummaryInvalidator,
	scheduler RollupScheduler,
	guardCfg config.GuardConfig,
	rollupCfg config.RollupConfig,
) *IngestService {
	return &IngestService{
		listings:   listings,
		datapoints: datapoints,
		rollups:    rollups,
		cache:      cache,
		scheduler:  scheduler,
		guardCfg:   guardCfg,
		rollupCfg:  rollupCfg,
		now:        time.Now,
	}
}

// Validate runs the anomaly guard for a proposed snapshot size without
// mutating anything. The baseline is the most recent rollup inside the
// lookback window; no baseline means unconditional accept (cold start).
func (s *IngestService) Validate(ctx context.Context, realmID int64, newCount int) (*GuardDecision, error) {
	decision := &GuardDecision{
		Accepted: true,
		NewCount: newCount,
	}

	since := s.now().UTC().Add(-s.guardCfg.Lookback)
	previous, err := s.rollups.GetLatest(ctx, realmID, since)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("guard baseline lookup", err)
	}
	if previous == nil {
		return decision, nil
	}

	decision.PreviousCount = previous.TotalAuctions
	decision.Threshold = int64(math.Floor(float64(previous.TotalAuctions) * s.guardCfg.ThresholdRatio))
	decision.Accepted = int64(newCount) >= decision.Threshold

	if previous.TotalAuctions > 0 {
		// Negative when the count grew.
		decision.DecreasePercentage = float64(previous.TotalAuctions-int64(newCount)) / float64(previous.TotalAuctions) * 100
	}

	return decision, nil
}

// SubmitSnapshot validates and ingests a full listing snapshot. A rejected
// snapshot mutates no state and is reported through the result, not as an
// error. On acceptance the listing set is replaced atomically, datapoints
// are appended, cached summaries are dropped, and a deferred rollup is
// scheduled.
func (s *IngestService) SubmitSnapshot(ctx context.Context, realmID int64, listings []models.SnapshotListing) (*SnapshotResult, error) {
	snapshotID := uuid.New().String()
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"snapshotId": snapshotID,
		"realmId":    realmID,
		"listings":   len(listings),
	})

	if err := validateListings(listings); err != nil {
		return nil, err
	}

	decision, err := s.Validate(ctx, realmID, len(listings))
	if err != nil {
		return nil, err
	}

	result := &SnapshotResult{
		SnapshotID: snapshotID,
		Accepted:   decision.Accepted,
		Guard:      *decision,
	}

	if !decision.Accepted {
		logger.WithFields(map[string]interface{}{
			"previousCount":      decision.PreviousCount,
			"threshold":          decision.Threshold,
			"decreasePercentage": decision.DecreasePercentage,
		}).Warn("Snapshot rejected by anomaly guard")
		return result, nil
	}

	if err := s.listings.ReplaceForRealm(ctx, realmID, listings); err != nil {
		return nil, apperrors.NewStorageTransactionError("listing replace", err)
	}

	observedAt := s.now().UTC()
	datapoints := models.DatapointsFromListings(realmID, listings, observedAt)
	if err := s.datapoints.AppendBatch(ctx, datapoints); err != nil {
		// The listing replace has already committed; the caller retries the
		// whole snapshot, which replays both stores.
		return nil, apperrors.NewStorageTransactionError("datapoint append", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateRealm(ctx, realmID); err != nil {
			logger.WithError(err).Warn("Failed to invalidate summary cache")
		}
	}

	if s.scheduler != nil {
		s.scheduler.Schedule(realmID, s.rollupCfg.Delay)
	}

	logger.WithField("observedAt", observedAt).Info("Snapshot accepted")

	return result, nil
}

// validateListings rejects structurally invalid listings before the guard
// runs
func validateListings(listings []models.SnapshotListing) error {
	for _, l := range listings {
		if l.Item.ID <= 0 {
			return apperrors.NewInvalidParameterError("listings", "item id must be positive")
		}
		if l.Quantity <= 0 {
			return apperrors.NewInvalidParameterError("listings", "quantity must be positive")
		}
		if l.UnitBuyoutPrice < 0 || l.UnitStartingBidPrice < 0 {
			return apperrors.NewInvalidParameterError("listings", "prices must not be negative")
		}
	}
	return nil
}

package service

import (
	"context"
	"time"

	"github.com/lotkeeper/internal/config"
	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/logging"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/stats"
)

// ListingReader reads a realm's current listing set
type ListingReader interface {
	ListForRealm(ctx context.Context, realmID int64) ([]*models.Listing, error)
}

// RollupWriter persists hourly rollup rows
type RollupWriter interface {
	Upsert(ctx context.Context, rollup *models.RealmActivityRollup) error
}

// RollupService aggregates a realm's current listings into one hourly
// activity row. The outlier filter runs per item and the filtered
// contributions are summed, so a single expensive item cannot mark a whole
// realm's cheap listings as outliers.
type RollupService struct {
	listings ListingReader
	rollups  RollupWriter
	params   stats.Params

	// now determines the target hour bucket; swappable for tests
	now func() time.Time
}

// NewRollupService creates a new rollup service
func NewRollupService(listings ListingReader, rollups RollupWriter, statsCfg config.StatsConfig) *RollupService {
	return &RollupService{
		listings: listings,
		rollups:  rollups,
		params: stats.Params{
			MinSamples: statsCfg.MinSamples,
			MADFactor:  statsCfg.MADFactor,
			IQRFactor:  statsCfg.IQRFactor,
		},
		now: time.Now,
	}
}

// RollupRealm computes and upserts the rollup for the current UTC hour.
// The bucket is derived at aggregation time, so repeated triggers within
// the same hour converge on one row. Zero qualifying listings return
// ErrAggregationSkipped and write nothing.
func (s *RollupService) RollupRealm(ctx context.Context, realmID int64) (*models.RealmActivityRollup, error) {
	logger := logging.FromContext(ctx).WithField("realmId", realmID)

	listings, err := s.listings.ListForRealm(ctx, realmID)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("rollup listing scan", err)
	}

	// Only listings with a buyout price participate; bid-only listings
	// carry no price signal.
	byItem := make(map[int64][]stats.Observation)
	for _, l := range listings {
		if l.UnitBuyoutPrice <= 0 {
			continue
		}
		byItem[l.ItemID] = append(byItem[l.ItemID], stats.Observation{
			Price:    float64(l.UnitBuyoutPrice),
			Quantity: l.Quantity,
		})
	}

	if len(byItem) == 0 {
		return nil, apperrors.ErrAggregationSkipped
	}

	rollup := &models.RealmActivityRollup{
		ServerRealmID: realmID,
		HourBucket:    s.now().UTC().Truncate(time.Hour),
	}

	for _, observations := range byItem {
		result := stats.Analyze(observations, s.params)

		rollup.TotalAuctions += int64(result.N)
		rollup.TotalQuantity += result.TotalQuantity
		rollup.TotalMarketValue += int64(result.TotalMarketValue)
		rollup.EstimatedMarketValue += int64(result.InlierMarketValue)
		rollup.DatapointCount += int64(result.N)
		rollup.OutlierCount += int64(result.OutlierCount)
	}

	if err := s.rollups.Upsert(ctx, rollup); err != nil {
		return nil, apperrors.NewStorageTransactionError("rollup upsert", err)
	}

	logger.WithFields(map[string]interface{}{
		"hourBucket":    rollup.HourBucket,
		"totalAuctions": rollup.TotalAuctions,
		"outlierCount":  rollup.OutlierCount,
	}).Info("Realm rollup written")

	return rollup, nil
}

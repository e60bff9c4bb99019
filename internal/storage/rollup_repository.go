package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotkeeper/internal/models"
)

// RollupRepository handles hourly realm activity rollup storage operations
type RollupRepository struct {
	pool *pgxpool.Pool
}

// NewRollupRepository creates a new rollup repository
func NewRollupRepository(pool *pgxpool.Pool) *RollupRepository {
	return &RollupRepository{
		pool: pool,
	}
}

// Upsert writes a rollup row, replacing any existing row for the same realm
// and hour. Re-running the aggregator converges on the latest values.
func (r *RollupRepository) Upsert(ctx context.Context, rollup *models.RealmActivityRollup) error {
	query := `
		INSERT INTO auction_realm_activity (
			server_realm_id,
			hour_bucket,
			total_auctions,
			total_quantity,
			total_market_value,
			estimated_market_value,
			datapoint_count,
			outlier_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (server_realm_id, hour_bucket)
		DO UPDATE SET
			total_auctions = EXCLUDED.total_auctions,
			total_quantity = EXCLUDED.total_quantity,
			total_market_value = EXCLUDED.total_market_value,
			estimated_market_value = EXCLUDED.estimated_market_value,
			datapoint_count = EXCLUDED.datapoint_count,
			outlier_count = EXCLUDED.outlier_count
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		rollup.ServerRealmID,
		rollup.HourBucket,
		rollup.TotalAuctions,
		rollup.TotalQuantity,
		rollup.TotalMarketValue,
		rollup.EstimatedMarketValue,
		rollup.DatapointCount,
		rollup.OutlierCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rollup: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent rollup for a realm at or after the
// given cutoff. Returns nil when none exists.
func (r *RollupRepository) GetLatest(ctx context.Context, realmID int64, since time.Time) (*models.RealmActivityRollup, error) {
	query := `
		SELECT
			server_realm_id,
			hour_bucket,
			total_auctions,
			total_quantity,
			total_market_value,
			estimated_market_value,
			datapoint_count,
			outlier_count
		FROM auction_realm_activity
		WHERE server_realm_id = $1 AND hour_bucket >= $2
		ORDER BY hour_bucket DESC
		LIMIT 1
	`

	var rollup models.RealmActivityRollup
	err := r.pool.QueryRow(ctx, query, realmID, since).Scan(
		&rollup.ServerRealmID,
		&rollup.HourBucket,
		&rollup.TotalAuctions,
		&rollup.TotalQuantity,
		&rollup.TotalMarketValue,
		&rollup.EstimatedMarketValue,
		&rollup.DatapointCount,
		&rollup.OutlierCount,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest rollup: %w", err)
	}

	return &rollup, nil
}

// GetRange retrieves a realm's rollups with hour_bucket in [from, to),
// chronological order
func (r *RollupRepository) GetRange(ctx context.Context, realmID int64, from, to time.Time) ([]*models.RealmActivityRollup, error) {
	query := `
		SELECT
			server_realm_id,
			hour_bucket,
			total_auctions,
			total_quantity,
			total_market_value,
			estimated_market_value,
			datapoint_count,
			outlier_count
		FROM auction_realm_activity
		WHERE server_realm_id = $1
			AND hour_bucket >= $2
			AND hour_bucket < $3
		ORDER BY hour_bucket ASC
	`

	rows, err := r.pool.Query(ctx, query, realmID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query rollup range: %w", err)
	}
	defer rows.Close()

	var rollups []*models.RealmActivityRollup

	for rows.Next() {
		var rollup models.RealmActivityRollup
		err := rows.Scan(
			&rollup.ServerRealmID,
			&rollup.HourBucket,
			&rollup.TotalAuctions,
			&rollup.TotalQuantity,
			&rollup.TotalMarketValue,
			&rollup.EstimatedMarketValue,
			&rollup.DatapointCount,
			&rollup.OutlierCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollup row: %w", err)
		}
		rollups = append(rollups, &rollup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rollup rows: %w", err)
	}

	return rollups, nil
}

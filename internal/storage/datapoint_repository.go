package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lotkeeper/internal/models"
)

// DatapointRepository handles historical auction datapoints in ClickHouse
type DatapointRepository struct {
	db *ClickHouseDB
}

// NewDatapointRepository creates a new datapoint repository
func NewDatapointRepository(db *ClickHouseDB) *DatapointRepository {
	return &DatapointRepository{
		db: db,
	}
}

// AppendBatch appends datapoints from an accepted snapshot. Rows are
// immutable once written; retention is handled by the table TTL.
func (r *DatapointRepository) AppendBatch(ctx context.Context, datapoints []models.AuctionDatapoint) error {
	if len(datapoints) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO auction_datapoints (
			server_realm_id, item_id, timestamp,
			buyout_price, starting_bid_price, quantity, count
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, d := range datapoints {
		err := batch.Append(
			d.ServerRealmID,
			d.ItemID,
			d.Timestamp.UTC(),
			d.BuyoutPrice,
			d.StartingBidPrice,
			d.Quantity,
			d.Count,
		)
		if err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send datapoint batch: %w", err)
	}

	return nil
}

// GetRangeForItem retrieves an item's datapoints with timestamp in
// [from, to), chronological order
func (r *DatapointRepository) GetRangeForItem(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.AuctionDatapoint, error) {
	query := `
		SELECT server_realm_id, item_id, timestamp, buyout_price, starting_bid_price, quantity, count
		FROM auction_datapoints
		WHERE server_realm_id = ? AND item_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`

	rows, err := r.db.Conn().Query(ctx, query, realmID, itemID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query datapoints: %w", err)
	}
	defer rows.Close()

	var datapoints []*models.AuctionDatapoint

	for rows.Next() {
		var d models.AuctionDatapoint
		err := rows.Scan(
			&d.ServerRealmID,
			&d.ItemID,
			&d.Timestamp,
			&d.BuyoutPrice,
			&d.StartingBidPrice,
			&d.Quantity,
			&d.Count,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan datapoint row: %w", err)
		}
		datapoints = append(datapoints, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datapoint rows: %w", err)
	}

	return datapoints, nil
}

// CountForRealm counts the stored datapoints of a realm. Used by health
// and admin endpoints.
func (r *DatapointRepository) CountForRealm(ctx context.Context, realmID int64) (uint64, error) {
	var count uint64
	err := r.db.Conn().QueryRow(ctx,
		`SELECT COUNT(*) FROM auction_datapoints WHERE server_realm_id = ?`, realmID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count datapoints: %w", err)
	}
	return count, nil
}

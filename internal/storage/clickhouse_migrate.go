package storage

import (
	"context"
	"fmt"
)

// EnsureDatapointSchema creates the auction_datapoints table if it does not
// exist. Daily partitions keep TTL-expired data cheap to drop, and the sort
// key matches the per-item range scans the summary queries issue.
func EnsureDatapointSchema(ctx context.Context, db *ClickHouseDB, ttlDays int) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS auction_datapoints (
			server_realm_id    Int64 CODEC(Delta, ZSTD),
			item_id            Int64 CODEC(Delta, ZSTD),
			timestamp          DateTime('UTC') CODEC(Delta, ZSTD),
			buyout_price       Int64 CODEC(ZSTD),
			starting_bid_price Int64 CODEC(ZSTD),
			quantity           Int64 CODEC(ZSTD),
			count              Int32 CODEC(ZSTD)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMMDD(timestamp)
		ORDER BY (server_realm_id, item_id, timestamp)
		TTL timestamp + INTERVAL %d DAY
		SETTINGS index_granularity = 8192
	`, ttlDays)

	if err := db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create auction_datapoints table: %w", err)
	}

	return nil
}

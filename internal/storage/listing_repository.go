package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/types"
)

// ListingRepository handles active auction listing storage operations
type ListingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository creates a new listing repository
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{
		pool: pool,
	}
}

// ReplaceForRealm atomically swaps a realm's listing set for the submitted
// snapshot inside one transaction: old listings are deleted, item metadata
// is merged, and the new listings are bulk inserted. Readers never observe
// a partially applied snapshot.
func (r *ListingRepository) ReplaceForRealm(ctx context.Context, realmID int64, listings []models.SnapshotListing) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // nolint:errcheck // no-op after commit
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM auctions WHERE server_realm_id = $1`, realmID); err != nil {
		return fmt.Errorf("failed to delete previous listings: %w", err)
	}

	if err := upsertItems(ctx, tx, realmID, listings); err != nil {
		return err
	}

	rows := make([][]interface{}, len(listings))
	for i, l := range listings {
		rows[i] = []interface{}{
			realmID,
			l.Item.ID,
			l.UnitBuyoutPrice,
			l.UnitStartingBidPrice,
			l.Quantity,
		}
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"auctions"},
		[]string{"server_realm_id", "item_id", "unit_buyout_price", "unit_starting_bid_price", "quantity"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy listings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// upsertItems merges the item metadata seen in a snapshot. A snapshot can
// list the same item many times; only one upsert per item is issued.
func upsertItems(ctx context.Context, tx pgx.Tx, realmID int64, listings []models.SnapshotListing) error {
	query := `
		INSERT INTO items (id, server_realm_id, name, quality, level, vendor_price, class_index, class_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id, server_realm_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			quality = EXCLUDED.quality,
			level = EXCLUDED.level,
			vendor_price = EXCLUDED.vendor_price,
			class_index = EXCLUDED.class_index,
			class_name = EXCLUDED.class_name
	`

	seen := make(map[int64]bool, len(listings))
	batch := &pgx.Batch{}

	for _, l := range listings {
		if seen[l.Item.ID] {
			continue
		}
		seen[l.Item.ID] = true

		batch.Queue(query,
			l.Item.ID,
			realmID,
			l.Item.Name,
			l.Item.Quality,
			l.Item.Level,
			l.Item.VendorPrice,
			l.Item.ClassIndex,
			l.Item.ClassName,
		)
	}

	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close() // nolint:errcheck // cleanup in defer
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert item metadata: %w", err)
		}
	}

	return nil
}

// listingFilterClause builds the WHERE fragment for a listing filter.
// Positional parameters start after the fixed realm parameter.
func listingFilterClause(filter *models.ListingFilter, args []interface{}) (string, []interface{}) {
	clause := ""
	if filter == nil {
		return clause, args
	}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		clause += fmt.Sprintf(" AND %s $%d", cond, len(args))
	}

	if filter.ItemID != nil {
		add("a.item_id =", *filter.ItemID)
	}
	if filter.ItemName != nil {
		add("i.name ILIKE", "%"+*filter.ItemName+"%")
	}
	if filter.ItemQuality != nil {
		add("i.quality =", *filter.ItemQuality)
	}
	if filter.ItemLevel != nil {
		add("i.level =", *filter.ItemLevel)
	}
	if filter.ItemClass != nil {
		add("i.class_index =", *filter.ItemClass)
	}
	if filter.ItemClassName != nil {
		add("i.class_name ILIKE", *filter.ItemClassName)
	}

	return clause, args
}

const listingSelectColumns = `
	a.id, a.server_realm_id, a.item_id, a.unit_buyout_price, a.unit_starting_bid_price, a.quantity,
	i.id, i.server_realm_id, i.name, i.quality, i.level, i.vendor_price, i.class_index, i.class_name
`

func scanListingWithItem(rows pgx.Rows) (*models.ListingWithItem, error) {
	var lw models.ListingWithItem
	err := rows.Scan(
		&lw.Listing.ID,
		&lw.Listing.ServerRealmID,
		&lw.Listing.ItemID,
		&lw.Listing.UnitBuyoutPrice,
		&lw.Listing.UnitStartingBidPrice,
		&lw.Listing.Quantity,
		&lw.Item.ID,
		&lw.Item.ServerRealmID,
		&lw.Item.Name,
		&lw.Item.Quality,
		&lw.Item.Level,
		&lw.Item.VendorPrice,
		&lw.Item.ClassIndex,
		&lw.Item.ClassName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan listing row: %w", err)
	}
	return &lw, nil
}

// GetByRealm retrieves a realm's active listings joined with item metadata,
// filtered and paginated. Name searches rank exact matches before prefix
// matches before substring matches; cheapest unit buyout breaks ties.
func (r *ListingRepository) GetByRealm(ctx context.Context, realmID int64, filter *models.ListingFilter, p types.Pagination) ([]*models.ListingWithItem, error) {
	args := []interface{}{realmID}
	clause, args := listingFilterClause(filter, args)

	orderBy := `a.unit_buyout_price ASC, a.id ASC`
	if filter != nil && filter.ItemName != nil {
		args = append(args, *filter.ItemName, *filter.ItemName+"%")
		orderBy = fmt.Sprintf(`
			CASE
				WHEN i.name ILIKE $%d THEN 0
				WHEN i.name ILIKE $%d THEN 1
				ELSE 2
			END, a.unit_buyout_price ASC, a.id ASC`, len(args)-1, len(args))
	}

	args = append(args, p.Limit, p.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM auctions a
		JOIN items i ON i.id = a.item_id AND i.server_realm_id = a.server_realm_id
		WHERE a.server_realm_id = $1%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, listingSelectColumns, clause, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.ListingWithItem
	for rows.Next() {
		lw, err := scanListingWithItem(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, lw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return listings, nil
}

// CountByRealm counts a realm's active listings matching the filter
func (r *ListingRepository) CountByRealm(ctx context.Context, realmID int64, filter *models.ListingFilter) (int64, error) {
	args := []interface{}{realmID}
	clause, args := listingFilterClause(filter, args)

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM auctions a
		JOIN items i ON i.id = a.item_id AND i.server_realm_id = a.server_realm_id
		WHERE a.server_realm_id = $1%s
	`, clause)

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}

	return count, nil
}

// CountForRealm counts all active listings of a realm
func (r *ListingRepository) CountForRealm(ctx context.Context, realmID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auctions WHERE server_realm_id = $1`, realmID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

// ListForRealm retrieves all active listings of a realm without metadata.
// Used by the hourly aggregator.
func (r *ListingRepository) ListForRealm(ctx context.Context, realmID int64) ([]*models.Listing, error) {
	query := `
		SELECT id, server_realm_id, item_id, unit_buyout_price, unit_starting_bid_price, quantity
		FROM auctions
		WHERE server_realm_id = $1
		ORDER BY item_id, unit_buyout_price
	`

	rows, err := r.pool.Query(ctx, query, realmID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		var l models.Listing
		err := rows.Scan(
			&l.ID,
			&l.ServerRealmID,
			&l.ItemID,
			&l.UnitBuyoutPrice,
			&l.UnitStartingBidPrice,
			&l.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return listings, nil
}

// TotalMarketValue sums unit_buyout_price * quantity over a realm's priced
// listings. Bid-only listings contribute nothing.
func (r *ListingRepository) TotalMarketValue(ctx context.Context, realmID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(unit_buyout_price * quantity), 0)
		FROM auctions
		WHERE server_realm_id = $1 AND unit_buyout_price > 0
	`

	var total int64
	if err := r.pool.QueryRow(ctx, query, realmID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum market value: %w", err)
	}

	return total, nil
}

// GetBelowVendorPrice retrieves listings whose unit buyout undercuts the
// item's vendor price, best discount first
func (r *ListingRepository) GetBelowVendorPrice(ctx context.Context, realmID int64, p types.Pagination) ([]*models.ListingWithItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM auctions a
		JOIN items i ON i.id = a.item_id AND i.server_realm_id = a.server_realm_id
		WHERE a.server_realm_id = $1
			AND a.unit_buyout_price > 0
			AND i.vendor_price > 0
			AND a.unit_buyout_price < i.vendor_price
		ORDER BY (i.vendor_price - a.unit_buyout_price) * a.quantity DESC
		LIMIT $2 OFFSET $3
	`, listingSelectColumns)

	rows, err := r.pool.Query(ctx, query, realmID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query below vendor listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.ListingWithItem
	for rows.Next() {
		lw, err := scanListingWithItem(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, lw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return listings, nil
}

// CountBelowVendorPrice counts the below vendor price listings of a realm
func (r *ListingRepository) CountBelowVendorPrice(ctx context.Context, realmID int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM auctions a
		JOIN items i ON i.id = a.item_id AND i.server_realm_id = a.server_realm_id
		WHERE a.server_realm_id = $1
			AND a.unit_buyout_price > 0
			AND i.vendor_price > 0
			AND a.unit_buyout_price < i.vendor_price
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, realmID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count below vendor listings: %w", err)
	}

	return count, nil
}

// TopItem is one row of the most-listed items ranking
type TopItem struct {
	Item          models.Item `json:"item"`
	AuctionCount  int64       `json:"auctionCount"`
	TotalQuantity int64       `json:"totalQuantity"`
	MinBuyout     int64       `json:"minBuyout"`
}

// GetTopItems ranks a realm's items by active listing count
func (r *ListingRepository) GetTopItems(ctx context.Context, realmID int64, limit int) ([]*TopItem, error) {
	query := `
		SELECT
			i.id, i.server_realm_id, i.name, i.quality, i.level, i.vendor_price, i.class_index, i.class_name,
			COUNT(*) AS auction_count,
			SUM(a.quantity) AS total_quantity,
			MIN(a.unit_buyout_price) AS min_buyout
		FROM auctions a
		JOIN items i ON i.id = a.item_id AND i.server_realm_id = a.server_realm_id
		WHERE a.server_realm_id = $1
		GROUP BY i.id, i.server_realm_id, i.name, i.quality, i.level, i.vendor_price, i.class_index, i.class_name
		ORDER BY auction_count DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, realmID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}
	defer rows.Close()

	var items []*TopItem
	for rows.Next() {
		var t TopItem
		err := rows.Scan(
			&t.Item.ID,
			&t.Item.ServerRealmID,
			&t.Item.Name,
			&t.Item.Quality,
			&t.Item.Level,
			&t.Item.VendorPrice,
			&t.Item.ClassIndex,
			&t.Item.ClassName,
			&t.AuctionCount,
			&t.TotalQuantity,
			&t.MinBuyout,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan top item row: %w", err)
		}
		items = append(items, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top item rows: %w", err)
	}

	return items, nil
}

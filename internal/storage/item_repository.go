package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/types"
)

// ItemRepository handles per-realm item metadata queries. Writes happen
// through the snapshot replace path; this repository only reads.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository creates a new item repository
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{
		pool: pool,
	}
}

// itemFilterClause builds the WHERE fragment for an item filter.
func itemFilterClause(filter *models.ItemFilter, args []interface{}) (string, []interface{}) {
	clause := ""
	if filter == nil {
		return clause, args
	}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		clause += fmt.Sprintf(" AND %s $%d", cond, len(args))
	}

	if filter.ID != nil {
		add("id =", *filter.ID)
	}
	if filter.Name != nil {
		add("name ILIKE", "%"+*filter.Name+"%")
	}
	if filter.Quality != nil {
		add("quality =", *filter.Quality)
	}
	if filter.Level != nil {
		add("level =", *filter.Level)
	}
	if filter.ClassIndex != nil {
		add("class_index =", *filter.ClassIndex)
	}
	if filter.ClassName != nil {
		add("class_name ILIKE", *filter.ClassName)
	}

	return clause, args
}

// GetByRealm retrieves a realm's known items, filtered and paginated,
// ordered by name
func (r *ItemRepository) GetByRealm(ctx context.Context, realmID int64, filter *models.ItemFilter, p types.Pagination) ([]*models.Item, error) {
	args := []interface{}{realmID}
	clause, args := itemFilterClause(filter, args)

	args = append(args, p.Limit, p.Offset)
	query := fmt.Sprintf(`
		SELECT id, server_realm_id, name, quality, level, vendor_price, class_index, class_name
		FROM items
		WHERE server_realm_id = $1%s
		ORDER BY name ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		var item models.Item
		err := rows.Scan(
			&item.ID,
			&item.ServerRealmID,
			&item.Name,
			&item.Quality,
			&item.Level,
			&item.VendorPrice,
			&item.ClassIndex,
			&item.ClassName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// CountByRealm counts a realm's known items matching the filter
func (r *ItemRepository) CountByRealm(ctx context.Context, realmID int64, filter *models.ItemFilter) (int64, error) {
	args := []interface{}{realmID}
	clause, args := itemFilterClause(filter, args)

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM items
		WHERE server_realm_id = $1%s
	`, clause)

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}

	return count, nil
}

// GetByID retrieves one item of a realm. Returns nil when not found.
func (r *ItemRepository) GetByID(ctx context.Context, realmID, itemID int64) (*models.Item, error) {
	query := `
		SELECT id, server_realm_id, name, quality, level, vendor_price, class_index, class_name
		FROM items
		WHERE server_realm_id = $1 AND id = $2
	`

	var item models.Item
	err := r.pool.QueryRow(ctx, query, realmID, itemID).Scan(
		&item.ID,
		&item.ServerRealmID,
		&item.Name,
		&item.Quality,
		&item.Level,
		&item.VendorPrice,
		&item.ClassIndex,
		&item.ClassName,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotkeeper/internal/models"
)

// RealmRepository handles server realm storage operations
type RealmRepository struct {
	pool *pgxpool.Pool
}

// NewRealmRepository creates a new realm repository
func NewRealmRepository(pool *pgxpool.Pool) *RealmRepository {
	return &RealmRepository{
		pool: pool,
	}
}

// Create inserts a new server realm pair and returns it with its id
func (r *RealmRepository) Create(ctx context.Context, server, realm string) (*models.ServerRealm, error) {
	query := `
		INSERT INTO server_realms (server, realm)
		VALUES ($1, $2)
		RETURNING id, server, realm, created_at
	`

	var sr models.ServerRealm
	err := r.pool.QueryRow(ctx, query, server, realm).Scan(
		&sr.ID,
		&sr.Server,
		&sr.Realm,
		&sr.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert server realm: %w", err)
	}

	return &sr, nil
}

// GetByID retrieves a server realm by id. Returns nil when not found.
func (r *RealmRepository) GetByID(ctx context.Context, id int64) (*models.ServerRealm, error) {
	query := `
		SELECT id, server, realm, created_at
		FROM server_realms
		WHERE id = $1
	`

	var sr models.ServerRealm
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&sr.ID,
		&sr.Server,
		&sr.Realm,
		&sr.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query server realm: %w", err)
	}

	return &sr, nil
}

// GetByServerAndRealm retrieves a server realm by names, case-insensitively.
// Returns nil when not found.
func (r *RealmRepository) GetByServerAndRealm(ctx context.Context, server, realm string) (*models.ServerRealm, error) {
	query := `
		SELECT id, server, realm, created_at
		FROM server_realms
		WHERE lower(server) = lower($1) AND lower(realm) = lower($2)
	`

	var sr models.ServerRealm
	err := r.pool.QueryRow(ctx, query, server, realm).Scan(
		&sr.ID,
		&sr.Server,
		&sr.Realm,
		&sr.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query server realm: %w", err)
	}

	return &sr, nil
}

// GetOrCreate looks a realm up by names and creates it when missing. A
// concurrent insert of the same pair loses on the unique index and falls
// back to the lookup.
func (r *RealmRepository) GetOrCreate(ctx context.Context, server, realm string) (*models.ServerRealm, error) {
	existing, err := r.GetByServerAndRealm(ctx, server, realm)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := r.Create(ctx, server, realm)
	if err != nil {
		// Lost the race with another insert; re-read.
		if existing, lookupErr := r.GetByServerAndRealm(ctx, server, realm); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	return created, nil
}

// List retrieves all server realms ordered by server then realm
func (r *RealmRepository) List(ctx context.Context) ([]*models.ServerRealm, error) {
	query := `
		SELECT id, server, realm, created_at
		FROM server_realms
		ORDER BY server, realm
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query server realms: %w", err)
	}
	defer rows.Close()

	var realms []*models.ServerRealm

	for rows.Next() {
		var sr models.ServerRealm
		if err := rows.Scan(&sr.ID, &sr.Server, &sr.Realm, &sr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan server realm row: %w", err)
		}
		realms = append(realms, &sr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating server realm rows: %w", err)
	}

	return realms, nil
}

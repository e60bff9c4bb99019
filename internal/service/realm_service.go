package service

import (
	"context"
	"strings"

	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/models"
)

// RealmStore handles server realm persistence
type RealmStore interface {
	GetByID(ctx context.Context, id int64) (*models.ServerRealm, error)
	GetByServerAndRealm(ctx context.Context, server, realm string) (*models.ServerRealm, error)
	GetOrCreate(ctx context.Context, server, realm string) (*models.ServerRealm, error)
	List(ctx context.Context) ([]*models.ServerRealm, error)
}

// RealmService resolves and registers server realm pairs. Realm creation is
// a distinct step owned by the agent surface; queries against an
// unregistered realm fail with RealmNotFound.
type RealmService struct {
	realms RealmStore
}

// NewRealmService creates a new realm service
func NewRealmService(realms RealmStore) *RealmService {
	return &RealmService{
		realms: realms,
	}
}

// Resolve looks a realm up from URL path segments. Dashes in the realm slug
// stand for spaces and the match ignores case.
func (s *RealmService) Resolve(ctx context.Context, server, realmSlug string) (*models.ServerRealm, error) {
	server = strings.TrimSpace(server)
	realm := models.NormalizeRealmSlug(strings.TrimSpace(realmSlug))

	if server == "" || realm == "" {
		return nil, apperrors.NewInvalidParameterError("realm", "server and realm must not be empty")
	}

	sr, err := s.realms.GetByServerAndRealm(ctx, server, realm)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("realm lookup", err)
	}
	if sr == nil {
		return nil, apperrors.NewRealmNotFoundError(server, realm)
	}

	return sr, nil
}

// RequireByID loads a realm by id, failing with RealmNotFound when missing
func (s *RealmService) RequireByID(ctx context.Context, id int64) (*models.ServerRealm, error) {
	sr, err := s.realms.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("realm lookup", err)
	}
	if sr == nil {
		return nil, apperrors.NewRealmIDNotFoundError(id)
	}
	return sr, nil
}

// Register creates a realm when it does not exist yet. Registration is
// idempotent; re-registering returns the existing realm.
func (s *RealmService) Register(ctx context.Context, server, realm string) (*models.ServerRealm, error) {
	server = strings.TrimSpace(server)
	realm = strings.TrimSpace(realm)

	if server == "" || realm == "" {
		return nil, apperrors.NewInvalidParameterError("realm", "server and realm must not be empty")
	}

	sr, err := s.realms.GetOrCreate(ctx, server, realm)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("realm registration", err)
	}

	return sr, nil
}

// List returns all registered realms
func (s *RealmService) List(ctx context.Context) ([]*models.ServerRealm, error) {
	realms, err := s.realms.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("realm list", err)
	}
	return realms, nil
}

package service

import (
	"context"

	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/storage"
	"github.com/lotkeeper/internal/types"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	// topItemsLimit caps the most-listed items ranking
	topItemsLimit = 50
)

// ListingBrowser handles listing read paths
type ListingBrowser interface {
	GetByRealm(ctx context.Context, realmID int64, filter *models.ListingFilter, p types.Pagination) ([]*models.ListingWithItem, error)
	CountByRealm(ctx context.Context, realmID int64, filter *models.ListingFilter) (int64, error)
	GetBelowVendorPrice(ctx context.Context, realmID int64, p types.Pagination) ([]*models.ListingWithItem, error)
	CountBelowVendorPrice(ctx context.Context, realmID int64) (int64, error)
	GetTopItems(ctx context.Context, realmID int64, limit int) ([]*storage.TopItem, error)
	CountForRealm(ctx context.Context, realmID int64) (int64, error)
	TotalMarketValue(ctx context.Context, realmID int64) (int64, error)
}

// ItemBrowser handles item metadata read paths
type ItemBrowser interface {
	GetByRealm(ctx context.Context, realmID int64, filter *models.ItemFilter, p types.Pagination) ([]*models.Item, error)
	CountByRealm(ctx context.Context, realmID int64, filter *models.ItemFilter) (int64, error)
}

// RealmStats summarizes the current size of a realm's auction house
type RealmStats struct {
	TotalAuctions    int64 `json:"totalAuctions"`
	TotalMarketValue int64 `json:"totalMarketValue"`
}

// AuctionService serves the read-side browsing of a realm's active
// listings and item catalog
type AuctionService struct {
	listings ListingBrowser
	items    ItemBrowser
}

// NewAuctionService creates a new auction service
func NewAuctionService(listings ListingBrowser, items ItemBrowser) *AuctionService {
	return &AuctionService{
		listings: listings,
		items:    items,
	}
}

// clampPagination applies the default and maximum page size
func clampPagination(p types.Pagination) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Browse returns one page of a realm's active listings, cheapest unit
// buyout first
func (s *AuctionService) Browse(ctx context.Context, realmID int64, filter *models.ListingFilter, p types.Pagination) (*types.Paginated[*models.ListingWithItem], error) {
	p = clampPagination(p)

	total, err := s.listings.CountByRealm(ctx, realmID, filter)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("listing count", err)
	}

	listings, err := s.listings.GetByRealm(ctx, realmID, filter, p)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("listing scan", err)
	}

	return &types.Paginated[*models.ListingWithItem]{
		Data: listings,
		Pagination: types.PaginationInfo{
			Limit:  p.Limit,
			Offset: p.Offset,
			Total:  total,
		},
	}, nil
}

// Deals returns listings priced below their item's vendor price, best
// discount first
func (s *AuctionService) Deals(ctx context.Context, realmID int64, p types.Pagination) (*types.Paginated[*models.ListingWithItem], error) {
	p = clampPagination(p)

	total, err := s.listings.CountBelowVendorPrice(ctx, realmID)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("deal count", err)
	}

	listings, err := s.listings.GetBelowVendorPrice(ctx, realmID, p)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("deal scan", err)
	}

	return &types.Paginated[*models.ListingWithItem]{
		Data: listings,
		Pagination: types.PaginationInfo{
			Limit:  p.Limit,
			Offset: p.Offset,
			Total:  total,
		},
	}, nil
}

// TopItems ranks a realm's items by active listing count, capped at 50
func (s *AuctionService) TopItems(ctx context.Context, realmID int64, limit int) ([]*storage.TopItem, error) {
	if limit <= 0 || limit > topItemsLimit {
		limit = topItemsLimit
	}

	items, err := s.listings.GetTopItems(ctx, realmID, limit)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("top items scan", err)
	}

	return items, nil
}

// Items returns one page of a realm's item catalog ordered by name
func (s *AuctionService) Items(ctx context.Context, realmID int64, filter *models.ItemFilter, p types.Pagination) (*types.Paginated[*models.Item], error) {
	p = clampPagination(p)

	total, err := s.items.CountByRealm(ctx, realmID, filter)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("item count", err)
	}

	items, err := s.items.GetByRealm(ctx, realmID, filter, p)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("item scan", err)
	}

	return &types.Paginated[*models.Item]{
		Data: items,
		Pagination: types.PaginationInfo{
			Limit:  p.Limit,
			Offset: p.Offset,
			Total:  total,
		},
	}, nil
}

// Stats reports the current auction count and summed buyout market value of
// a realm
func (s *AuctionService) Stats(ctx context.Context, realmID int64) (*RealmStats, error) {
	count, err := s.listings.CountForRealm(ctx, realmID)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("listing count", err)
	}

	value, err := s.listings.TotalMarketValue(ctx, realmID)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("market value sum", err)
	}

	return &RealmStats{
		TotalAuctions:    count,
		TotalMarketValue: value,
	}, nil
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/storage"
	"github.com/lotkeeper/internal/types"
)

type mockListingBrowser struct {
	listings  []*models.ListingWithItem
	deals     []*models.ListingWithItem
	top       []*storage.TopItem
	count     int64
	dealCount int64
	value     int64

	lastPagination types.Pagination
	lastTopLimit   int
}

func (m *mockListingBrowser) GetByRealm(ctx context.Context, realmID int64, filter *models.ListingFilter, p types.Pagination) ([]*models.ListingWithItem, error) {
	m.lastPagination = p
	return m.listings, nil
}

func (m *mockListingBrowser) CountByRealm(ctx context.Context, realmID int64, filter *models.ListingFilter) (int64, error) {
	return m.count, nil
}

func (m *mockListingBrowser) GetBelowVendorPrice(ctx context.Context, realmID int64, p types.Pagination) ([]*models.ListingWithItem, error) {
	m.lastPagination = p
	return m.deals, nil
}

func (m *mockListingBrowser) CountBelowVendorPrice(ctx context.Context, realmID int64) (int64, error) {
	return m.dealCount, nil
}

func (m *mockListingBrowser) GetTopItems(ctx context.Context, realmID int64, limit int) ([]*storage.TopItem, error) {
	m.lastTopLimit = limit
	return m.top, nil
}

func (m *mockListingBrowser) CountForRealm(ctx context.Context, realmID int64) (int64, error) {
	return m.count, nil
}

func (m *mockListingBrowser) TotalMarketValue(ctx context.Context, realmID int64) (int64, error) {
	return m.value, nil
}

type mockItemBrowser struct {
	items []*models.Item
	count int64
}

func (m *mockItemBrowser) GetByRealm(ctx context.Context, realmID int64, filter *models.ItemFilter, p types.Pagination) ([]*models.Item, error) {
	return m.items, nil
}

func (m *mockItemBrowser) CountByRealm(ctx context.Context, realmID int64, filter *models.ItemFilter) (int64, error) {
	return m.count, nil
}

func TestBrowseAppliesDefaultPageSize(t *testing.T) {
	listings := &mockListingBrowser{count: 3}
	svc := NewAuctionService(listings, &mockItemBrowser{})

	page, err := svc.Browse(context.Background(), 1, nil, types.Pagination{})
	require.NoError(t, err)

	assert.Equal(t, defaultPageSize, listings.lastPagination.Limit)
	assert.Equal(t, defaultPageSize, page.Pagination.Limit)
	assert.Equal(t, int64(3), page.Pagination.Total)
}

func TestBrowseClampsOversizedPage(t *testing.T) {
	listings := &mockListingBrowser{}
	svc := NewAuctionService(listings, &mockItemBrowser{})

	_, err := svc.Browse(context.Background(), 1, nil, types.Pagination{Limit: 10000, Offset: -5})
	require.NoError(t, err)

	assert.Equal(t, maxPageSize, listings.lastPagination.Limit)
	assert.Equal(t, 0, listings.lastPagination.Offset)
}

func TestDealsReturnsTotal(t *testing.T) {
	listings := &mockListingBrowser{
		deals: []*models.ListingWithItem{
			{Listing: models.Listing{ID: 1, UnitBuyoutPrice: 5}, Item: models.Item{ID: 9, VendorPrice: 10}},
		},
		dealCount: 1,
	}
	svc := NewAuctionService(listings, &mockItemBrowser{})

	page, err := svc.Deals(context.Background(), 1, types.Pagination{Limit: 10})
	require.NoError(t, err)

	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestTopItemsClampsLimit(t *testing.T) {
	listings := &mockListingBrowser{}
	svc := NewAuctionService(listings, &mockItemBrowser{})

	_, err := svc.TopItems(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, topItemsLimit, listings.lastTopLimit)

	_, err = svc.TopItems(context.Background(), 1, 500)
	require.NoError(t, err)
	assert.Equal(t, topItemsLimit, listings.lastTopLimit)

	_, err = svc.TopItems(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, listings.lastTopLimit)
}

func TestItemsCatalogPage(t *testing.T) {
	items := &mockItemBrowser{
		items: []*models.Item{{ID: 5, Name: "Copper Ore"}},
		count: 1,
	}
	svc := NewAuctionService(&mockListingBrowser{}, items)

	page, err := svc.Items(context.Background(), 1, nil, types.Pagination{Limit: 20})
	require.NoError(t, err)

	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestRealmStats(t *testing.T) {
	listings := &mockListingBrowser{count: 120, value: 456789}
	svc := NewAuctionService(listings, &mockItemBrowser{})

	stats, err := svc.Stats(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(120), stats.TotalAuctions)
	assert.Equal(t, int64(456789), stats.TotalMarketValue)
}

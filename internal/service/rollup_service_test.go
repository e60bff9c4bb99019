package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotkeeper/internal/config"
	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/models"
)

type mockListingReader struct {
	listings []*models.Listing
	listErr  error
}

func (m *mockListingReader) ListForRealm(ctx context.Context, realmID int64) ([]*models.Listing, error) {
	return m.listings, m.listErr
}

type mockRollupWriter struct {
	upserts   []*models.RealmActivityRollup
	upsertErr error
}

func (m *mockRollupWriter) Upsert(ctx context.Context, rollup *models.RealmActivityRollup) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, rollup)
	return nil
}

func testStatsConfig() config.StatsConfig {
	return config.StatsConfig{
		MinSamples: 10,
		MADFactor:  3.0,
		IQRFactor:  1.5,
	}
}

func newTestRollupService(listings []*models.Listing) (*RollupService, *mockRollupWriter) {
	writer := &mockRollupWriter{}
	svc := NewRollupService(&mockListingReader{listings: listings}, writer, testStatsConfig())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 42, 7, 0, time.UTC)
	}
	return svc, writer
}

func listing(itemID, buyout, quantity int64) *models.Listing {
	return &models.Listing{
		ServerRealmID:   1,
		ItemID:          itemID,
		UnitBuyoutPrice: buyout,
		Quantity:        quantity,
	}
}

func TestRollupRealmNoListings(t *testing.T) {
	svc, writer := newTestRollupService(nil)

	_, err := svc.RollupRealm(context.Background(), 1)
	require.ErrorIs(t, err, apperrors.ErrAggregationSkipped)
	assert.Empty(t, writer.upserts)
}

func TestRollupRealmOnlyBidOnlyListings(t *testing.T) {
	svc, writer := newTestRollupService([]*models.Listing{
		listing(1, 0, 5),
		listing(2, 0, 3),
	})

	_, err := svc.RollupRealm(context.Background(), 1)
	require.ErrorIs(t, err, apperrors.ErrAggregationSkipped)
	assert.Empty(t, writer.upserts)
}

func TestRollupRealmHourBucket(t *testing.T) {
	svc, _ := newTestRollupService([]*models.Listing{listing(1, 100, 1)})

	rollup, err := svc.RollupRealm(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC), rollup.HourBucket)
}

func TestRollupRealmAggregates(t *testing.T) {
	// Item 5: five listings at 10 and one at 1000. Small sample, so the
	// IQR fallback applies and the 1000 is filtered.
	listings := []*models.Listing{
		listing(5, 10, 2),
		listing(5, 10, 2),
		listing(5, 10, 2),
		listing(5, 10, 2),
		listing(5, 10, 2),
		listing(5, 1000, 1),
		// Item 9: identical prices, nothing to filter.
		listing(9, 50, 1),
		listing(9, 50, 1),
		listing(9, 50, 1),
		// Bid-only listing does not participate at all.
		listing(9, 0, 100),
	}

	svc, writer := newTestRollupService(listings)

	rollup, err := svc.RollupRealm(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, writer.upserts, 1)

	assert.Equal(t, int64(3), rollup.ServerRealmID)
	assert.Equal(t, int64(9), rollup.TotalAuctions)
	assert.Equal(t, int64(9), rollup.DatapointCount)
	assert.Equal(t, int64(14), rollup.TotalQuantity)
	assert.Equal(t, int64(5*10*2+1000*1+3*50), rollup.TotalMarketValue)
	assert.Equal(t, int64(5*10*2+3*50), rollup.EstimatedMarketValue)
	assert.Equal(t, int64(1), rollup.OutlierCount)
}

func TestRollupRealmIdempotent(t *testing.T) {
	listings := []*models.Listing{
		listing(1, 100, 3),
		listing(1, 110, 2),
		listing(2, 9000, 1),
	}

	svc, writer := newTestRollupService(listings)

	first, err := svc.RollupRealm(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.RollupRealm(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, writer.upserts, 2)
}

func TestRollupRealmUpsertFailure(t *testing.T) {
	svc, writer := newTestRollupService([]*models.Listing{listing(1, 100, 1)})
	writer.upsertErr = errors.New("serialization conflict")

	_, err := svc.RollupRealm(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

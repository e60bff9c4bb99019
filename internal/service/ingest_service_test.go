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

type mockSnapshotStore struct {
	replaced   [][]models.SnapshotListing
	replaceErr error
}

func (m *mockSnapshotStore) ReplaceForRealm(ctx context.Context, realmID int64, listings []models.SnapshotListing) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = append(m.replaced, listings)
	return nil
}

type mockDatapointAppender struct {
	batches   [][]models.AuctionDatapoint
	appendErr error
}

func (m *mockDatapointAppender) AppendBatch(ctx context.Context, datapoints []models.AuctionDatapoint) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.batches = append(m.batches, datapoints)
	return nil
}

type mockRollupReader struct {
	latest    *models.RealmActivityRollup
	latestErr error
}

func (m *mockRollupReader) GetLatest(ctx context.Context, realmID int64, since time.Time) (*models.RealmActivityRollup, error) {
	return m.latest, m.latestErr
}

type mockInvalidator struct {
	realms []int64
}

func (m *mockInvalidator) InvalidateRealm(ctx context.Context, realmID int64) error {
	m.realms = append(m.realms, realmID)
	return nil
}

type scheduledRollup struct {
	realmID int64
	delay   time.Duration
}

type mockScheduler struct {
	scheduled []scheduledRollup
}

func (m *mockScheduler) Schedule(realmID int64, delay time.Duration) {
	m.scheduled = append(m.scheduled, scheduledRollup{realmID: realmID, delay: delay})
}

func testGuardConfig() config.GuardConfig {
	return config.GuardConfig{
		ThresholdRatio: 0.8,
		Lookback:       time.Hour,
	}
}

func testRollupConfig() config.RollupConfig {
	return config.RollupConfig{
		Delay:      30 * time.Second,
		MaxRetries: 3,
	}
}

func makeSnapshotListings(n int) []models.SnapshotListing {
	listings := make([]models.SnapshotListing, n)
	for i := range listings {
		listings[i] = models.SnapshotListing{
			Item: models.Item{
				ID:   int64(i%10 + 1),
				Name: "copper ore",
			},
			UnitBuyoutPrice:      int64(100 + i),
			UnitStartingBidPrice: int64(50 + i),
			Quantity:             20,
		}
	}
	return listings
}

func newTestIngestService(rollups *mockRollupReader) (*IngestService, *mockSnapshotStore, *mockDatapointAppender, *mockInvalidator, *mockScheduler) {
	store := &mockSnapshotStore{}
	datapoints := &mockDatapointAppender{}
	cache := &mockInvalidator{}
	scheduler := &mockScheduler{}

	svc := NewIngestService(store, datapoints, rollups, cache, scheduler, testGuardConfig(), testRollupConfig())
	return svc, store, datapoints, cache, scheduler
}

func TestValidateColdStart(t *testing.T) {
	svc, _, _, _, _ := newTestIngestService(&mockRollupReader{latest: nil})

	decision, err := svc.Validate(context.Background(), 1, 5)
	require.NoError(t, err)

	assert.True(t, decision.Accepted)
	assert.Equal(t, int64(0), decision.PreviousCount)
	assert.Equal(t, int64(0), decision.Threshold)
	assert.Equal(t, 0.0, decision.DecreasePercentage)
}

func TestValidateThreshold(t *testing.T) {
	previous := &models.RealmActivityRollup{ServerRealmID: 1, TotalAuctions: 1000}

	tests := []struct {
		name         string
		newCount     int
		wantAccepted bool
		wantDecrease float64
	}{
		{name: "exactly at threshold", newCount: 800, wantAccepted: true, wantDecrease: 20},
		{name: "one below threshold", newCount: 799, wantAccepted: false, wantDecrease: 20.1},
		{name: "growth reports negative decrease", newCount: 1200, wantAccepted: true, wantDecrease: -20},
		{name: "unchanged", newCount: 1000, wantAccepted: true, wantDecrease: 0},
		{name: "empty snapshot", newCount: 0, wantAccepted: false, wantDecrease: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _, _ := newTestIngestService(&mockRollupReader{latest: previous})

			decision, err := svc.Validate(context.Background(), 1, tt.newCount)
			require.NoError(t, err)

			assert.Equal(t, tt.wantAccepted, decision.Accepted)
			assert.Equal(t, int64(800), decision.Threshold)
			assert.Equal(t, int64(1000), decision.PreviousCount)
			assert.InDelta(t, tt.wantDecrease, decision.DecreasePercentage, 0.001)
		})
	}
}

func TestValidateZeroBaseline(t *testing.T) {
	svc, _, _, _, _ := newTestIngestService(&mockRollupReader{
		latest: &models.RealmActivityRollup{ServerRealmID: 1, TotalAuctions: 0},
	})

	decision, err := svc.Validate(context.Background(), 0, 0)
	require.NoError(t, err)

	assert.True(t, decision.Accepted)
	assert.Equal(t, 0.0, decision.DecreasePercentage)
}

func TestSubmitSnapshotAccepted(t *testing.T) {
	svc, store, datapoints, cache, scheduler := newTestIngestService(&mockRollupReader{latest: nil})

	listings := makeSnapshotListings(12)
	result, err := svc.SubmitSnapshot(context.Background(), 7, listings)
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.NotEmpty(t, result.SnapshotID)
	assert.Equal(t, 12, result.Guard.NewCount)

	require.Len(t, store.replaced, 1)
	assert.Len(t, store.replaced[0], 12)

	require.Len(t, datapoints.batches, 1)
	assert.Len(t, datapoints.batches[0], 12)
	assert.Equal(t, int64(7), datapoints.batches[0][0].ServerRealmID)

	assert.Equal(t, []int64{7}, cache.realms)

	require.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, int64(7), scheduler.scheduled[0].realmID)
	assert.Equal(t, 30*time.Second, scheduler.scheduled[0].delay)
}

func TestSubmitSnapshotRejected(t *testing.T) {
	svc, store, datapoints, cache, scheduler := newTestIngestService(&mockRollupReader{
		latest: &models.RealmActivityRollup{ServerRealmID: 1, TotalAuctions: 1000},
	})

	result, err := svc.SubmitSnapshot(context.Background(), 1, makeSnapshotListings(5))
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Equal(t, int64(800), result.Guard.Threshold)
	assert.InDelta(t, 99.5, result.Guard.DecreasePercentage, 0.001)

	// A rejected snapshot must not touch any state.
	assert.Empty(t, store.replaced)
	assert.Empty(t, datapoints.batches)
	assert.Empty(t, cache.realms)
	assert.Empty(t, scheduler.scheduled)
}

func TestSubmitSnapshotInvalidListing(t *testing.T) {
	svc, store, _, _, _ := newTestIngestService(&mockRollupReader{latest: nil})

	listings := makeSnapshotListings(3)
	listings[1].Quantity = 0

	_, err := svc.SubmitSnapshot(context.Background(), 1, listings)
	require.Error(t, err)

	catErr := apperrors.Categorize(err)
	assert.Equal(t, "INVALID_PARAMETER", catErr.Code)
	assert.Empty(t, store.replaced)
}

func TestSubmitSnapshotReplaceFailure(t *testing.T) {
	svc, store, datapoints, _, scheduler := newTestIngestService(&mockRollupReader{latest: nil})
	store.replaceErr = errors.New("connection lost")

	_, err := svc.SubmitSnapshot(context.Background(), 1, makeSnapshotListings(4))
	require.Error(t, err)

	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, "STORAGE_TRANSACTION_FAILED", apperrors.Categorize(err).Code)
	assert.Empty(t, datapoints.batches)
	assert.Empty(t, scheduler.scheduled)
}

func TestSubmitSnapshotDatapointFailure(t *testing.T) {
	svc, store, datapoints, _, scheduler := newTestIngestService(&mockRollupReader{latest: nil})
	datapoints.appendErr = errors.New("clickhouse unavailable")

	_, err := svc.SubmitSnapshot(context.Background(), 1, makeSnapshotListings(4))
	require.Error(t, err)

	assert.True(t, apperrors.IsRetryable(err))
	// The listing replace committed before the datapoint append failed.
	assert.Len(t, store.replaced, 1)
	assert.Empty(t, scheduler.scheduled)
}

func TestSubmitSnapshotEmptyColdStart(t *testing.T) {
	svc, store, datapoints, _, _ := newTestIngestService(&mockRollupReader{latest: nil})

	result, err := svc.SubmitSnapshot(context.Background(), 1, nil)
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	require.Len(t, store.replaced, 1)
	assert.Empty(t, store.replaced[0])
	require.Len(t, datapoints.batches, 1)
	assert.Empty(t, datapoints.batches[0])
}

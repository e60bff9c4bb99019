package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotkeeper/internal/config"
	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/service"
	"github.com/lotkeeper/internal/storage"
	"github.com/lotkeeper/internal/types"
)

const testAgentToken = "test-agent-token"

type stubIngestService struct {
	result      *service.SnapshotResult
	err         error
	lastRealm   int64
	lastCount   int
	submissions int
}

func (s *stubIngestService) SubmitSnapshot(ctx context.Context, realmID int64, listings []models.SnapshotListing) (*service.SnapshotResult, error) {
	s.submissions++
	s.lastRealm = realmID
	s.lastCount = len(listings)
	return s.result, s.err
}

type stubRealmService struct {
	realm *models.ServerRealm
	err   error
}

func (s *stubRealmService) Resolve(ctx context.Context, server, realmSlug string) (*models.ServerRealm, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.realm, nil
}

func (s *stubRealmService) Register(ctx context.Context, server, realm string) (*models.ServerRealm, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.realm, nil
}

func (s *stubRealmService) List(ctx context.Context) ([]*models.ServerRealm, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.realm == nil {
		return nil, nil
	}
	return []*models.ServerRealm{s.realm}, nil
}

type stubAuctionService struct {
	page  *types.Paginated[*models.ListingWithItem]
	items []*storage.TopItem
	err   error
}

func (s *stubAuctionService) Browse(ctx context.Context, realmID int64, filter *models.ListingFilter, p types.Pagination) (*types.Paginated[*models.ListingWithItem], error) {
	return s.page, s.err
}

func (s *stubAuctionService) Deals(ctx context.Context, realmID int64, p types.Pagination) (*types.Paginated[*models.ListingWithItem], error) {
	return s.page, s.err
}

func (s *stubAuctionService) TopItems(ctx context.Context, realmID int64, limit int) ([]*storage.TopItem, error) {
	return s.items, s.err
}

func (s *stubAuctionService) Items(ctx context.Context, realmID int64, filter *models.ItemFilter, p types.Pagination) (*types.Paginated[*models.Item], error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.Paginated[*models.Item]{}, nil
}

func (s *stubAuctionService) Stats(ctx context.Context, realmID int64) (*service.RealmStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.RealmStats{TotalAuctions: 42, TotalMarketValue: 9000}, nil
}

type stubSummaryService struct {
	prices     []*models.ItemPriceHourlySummary
	activity   []*models.ItemActivityHourlySummary
	rollups    []*models.RealmActivityRollup
	lastBucket time.Duration
	err        error
}

func (s *stubSummaryService) PriceHourlySummary(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.ItemPriceHourlySummary, error) {
	return s.prices, s.err
}

func (s *stubSummaryService) ActivityHourlySummary(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.ItemActivityHourlySummary, error) {
	return s.activity, s.err
}

func (s *stubSummaryService) RealmActivityRange(ctx context.Context, realmID int64, from, to time.Time, bucket time.Duration) ([]*models.RealmActivityRollup, error) {
	s.lastBucket = bucket
	return s.rollups, s.err
}

type testServerStubs struct {
	ingest  *stubIngestService
	realms  *stubRealmService
	auction *stubAuctionService
	summary *stubSummaryService
}

func newTestServer(t *testing.T) (*Server, *testServerStubs) {
	t.Helper()

	stubs := &testServerStubs{
		ingest: &stubIngestService{result: &service.SnapshotResult{
			SnapshotID: "snap-1",
			Accepted:   true,
			Guard:      service.GuardDecision{Accepted: true, NewCount: 2},
		}},
		realms:  &stubRealmService{realm: &models.ServerRealm{ID: 7, Server: "everlook", Realm: "alliance"}},
		auction: &stubAuctionService{page: &types.Paginated[*models.ListingWithItem]{}},
		summary: &stubSummaryService{},
	}

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Agent.Token = testAgentToken
	cfg.RateLimit.AgentRPS = 100
	cfg.RateLimit.AgentBurst = 100

	srv := NewServer(cfg, stubs.ingest, stubs.realms, stubs.auction, stubs.summary, nil, nil)
	return srv, stubs
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lotkeeper")
}

func TestSubmitSnapshotRequiresToken(t *testing.T) {
	srv, stubs := newTestServer(t)

	body := snapshotRequest{Listings: []models.SnapshotListing{}}

	rec := doRequest(t, srv, "POST", "/api/v1/agent/everlook/alliance/auctions", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, "POST", "/api/v1/agent/everlook/alliance/auctions", body, "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, 0, stubs.ingest.submissions)
}

func TestSubmitSnapshotAccepted(t *testing.T) {
	srv, stubs := newTestServer(t)

	body := snapshotRequest{Listings: []models.SnapshotListing{
		{Item: models.Item{ID: 1}, UnitBuyoutPrice: 100, Quantity: 5},
		{Item: models.Item{ID: 2}, UnitBuyoutPrice: 200, Quantity: 1},
	}}

	rec := doRequest(t, srv, "POST", "/api/v1/agent/everlook/alliance/auctions", body, testAgentToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), stubs.ingest.lastRealm)
	assert.Equal(t, 2, stubs.ingest.lastCount)

	var result service.SnapshotResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Accepted)
	assert.Equal(t, "snap-1", result.SnapshotID)
}

func TestSubmitSnapshotRejected(t *testing.T) {
	srv, stubs := newTestServer(t)
	stubs.ingest.result = &service.SnapshotResult{
		SnapshotID: "snap-2",
		Accepted:   false,
		Guard: service.GuardDecision{
			NewCount:           5,
			PreviousCount:      1000,
			Threshold:          800,
			DecreasePercentage: 99.5,
		},
	}

	body := snapshotRequest{Listings: []models.SnapshotListing{{Item: models.Item{ID: 1}, Quantity: 1}}}

	rec := doRequest(t, srv, "POST", "/api/v1/agent/everlook/alliance/auctions", body, testAgentToken)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	var result service.SnapshotResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Accepted)
	assert.Equal(t, int64(800), result.Guard.Threshold)
}

func TestSubmitSnapshotBadBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/agent/everlook/alliance/auctions", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+testAgentToken)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBrowseAuctionsRealmNotFound(t *testing.T) {
	srv, stubs := newTestServer(t)
	stubs.realms.err = apperrors.NewRealmNotFoundError("everlook", "horde")

	rec := doRequest(t, srv, "GET", "/api/v1/realms/everlook/horde/auctions", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "REALM_NOT_FOUND")
}

func TestBrowseAuctions(t *testing.T) {
	srv, stubs := newTestServer(t)
	stubs.auction.page = &types.Paginated[*models.ListingWithItem]{
		Data: []*models.ListingWithItem{
			{Listing: models.Listing{ID: 1, ItemID: 5, UnitBuyoutPrice: 100, Quantity: 3}, Item: models.Item{ID: 5, Name: "Copper Ore"}},
		},
		Pagination: types.PaginationInfo{Limit: 50, Offset: 0, Total: 1},
	}

	rec := doRequest(t, srv, "GET", "/api/v1/realms/everlook/alliance/auctions?name=copper", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Copper Ore")
}

func TestListRealms(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/realms", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "everlook")
}

func TestPriceHourlyInvalidItem(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/realms/everlook/alliance/items/abc/prices/hourly", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceHourlyInvalidTimestamp(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/realms/everlook/alliance/items/5/prices/hourly?from=yesterday", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceHourly(t *testing.T) {
	srv, stubs := newTestServer(t)
	stubs.summary.prices = []*models.ItemPriceHourlySummary{
		{Timestamp: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), MedianBuyoutPrice: 42, DatapointCount: 9},
	}

	rec := doRequest(t, srv, "GET", "/api/v1/realms/everlook/alliance/items/5/prices/hourly?from=2026-03-14&to=2026-03-15", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"medianBuyoutPrice":42`)
}

func TestCreateRealm(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/realms", createRealmRequest{Server: "everlook", Realm: "alliance"}, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "everlook")
}

func TestRealmStats(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/realms/everlook/alliance/stats", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalAuctions":42`)
}

func TestRealmActivityBucketHours(t *testing.T) {
	srv, stubs := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/realms/everlook/alliance/activity?bucketHours=6", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6*time.Hour, stubs.summary.lastBucket)
}

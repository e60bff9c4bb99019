package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/lotkeeper/internal/config"
	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/logging"
	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/stats"
	"github.com/lotkeeper/internal/storage"
)

// DatapointReader reads historical datapoints for one item
type DatapointReader interface {
	GetRangeForItem(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.AuctionDatapoint, error)
}

// RollupRanger reads stored hourly rollups
type RollupRanger interface {
	GetRange(ctx context.Context, realmID int64, from, to time.Time) ([]*models.RealmActivityRollup, error)
}

// SummaryService answers time-bucketed price and activity queries. Item
// summaries re-run the outlier filter per hour bucket over raw datapoints;
// realm summaries re-bucket the stored rollups. Results are cached with a
// short TTL, and cache failures degrade to direct reads.
type SummaryService struct {
	datapoints DatapointReader
	rollups    RollupRanger
	cache      *storage.CacheService
	params     stats.Params
}

// NewSummaryService creates a new summary service. cache may be nil.
func NewSummaryService(datapoints DatapointReader, rollups RollupRanger, cache *storage.CacheService, statsCfg config.StatsConfig) *SummaryService {
	return &SummaryService{
		datapoints: datapoints,
		rollups:    rollups,
		cache:      cache,
		params: stats.Params{
			MinSamples: statsCfg.MinSamples,
			MADFactor:  statsCfg.MADFactor,
			IQRFactor:  statsCfg.IQRFactor,
		},
	}
}

// normalizeRange converts a half-open [from, to) request to UTC and
// validates it
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from = from.UTC()
	to = to.UTC()
	if !from.Before(to) {
		return from, to, apperrors.NewInvalidParameterError("from", "must be before to")
	}
	return from, to, nil
}

// bucketDatapoints groups datapoints into UTC hour buckets, chronological
// bucket order preserved
func bucketDatapoints(datapoints []*models.AuctionDatapoint) ([]time.Time, map[time.Time][]*models.AuctionDatapoint) {
	buckets := make(map[time.Time][]*models.AuctionDatapoint)
	var order []time.Time

	for _, d := range datapoints {
		bucket := d.Timestamp.UTC().Truncate(time.Hour)
		if _, ok := buckets[bucket]; !ok {
			order = append(order, bucket)
		}
		buckets[bucket] = append(buckets[bucket], d)
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	return order, buckets
}

// PriceHourlySummary returns the per-hour filtered buyout price
// distribution of one item. Buckets without datapoints are omitted.
func (s *SummaryService) PriceHourlySummary(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.ItemPriceHourlySummary, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	cacheKey := storage.PriceSummaryKey(realmID, itemID, from, to)
	var cached []*models.ItemPriceHourlySummary
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	datapoints, err := s.datapoints.GetRangeForItem(ctx, realmID, itemID, from, to)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("datapoint range scan", err)
	}

	order, buckets := bucketDatapoints(datapoints)
	summaries := make([]*models.ItemPriceHourlySummary, 0, len(order))

	for _, bucket := range order {
		observations := pricedObservations(buckets[bucket])
		if len(observations) == 0 {
			continue
		}

		summary := stats.Summarize(observations, s.params)
		summaries = append(summaries, &models.ItemPriceHourlySummary{
			Timestamp:         bucket,
			MinBuyoutPrice:    int64(math.Round(summary.Min)),
			MaxBuyoutPrice:    int64(math.Round(summary.Max)),
			MedianBuyoutPrice: int64(math.Round(summary.Median)),
			AvgBuyoutPrice:    int64(math.Round(summary.Avg)),
			P10BuyoutPrice:    int64(math.Round(summary.P10)),
			P25BuyoutPrice:    int64(math.Round(summary.P25)),
			P75BuyoutPrice:    int64(math.Round(summary.P75)),
			P90BuyoutPrice:    int64(math.Round(summary.P90)),
			DatapointCount:    int64(summary.DatapointCount),
			OutlierCount:      int64(summary.OutlierCount),
		})
	}

	s.cacheSet(ctx, cacheKey, summaries)

	return summaries, nil
}

// ActivityHourlySummary returns per-hour market activity of one item over
// its priced datapoints. Totals are unfiltered sums; the outlier filter
// only derives the robust price behind the estimated market value, and the
// datapoint count reports the inliers it kept. Buckets with only bid-only
// datapoints are omitted.
func (s *SummaryService) ActivityHourlySummary(ctx context.Context, realmID, itemID int64, from, to time.Time) ([]*models.ItemActivityHourlySummary, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	cacheKey := storage.ActivitySummaryKey(realmID, itemID, from, to)
	var cached []*models.ItemActivityHourlySummary
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	datapoints, err := s.datapoints.GetRangeForItem(ctx, realmID, itemID, from, to)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("datapoint range scan", err)
	}

	order, buckets := bucketDatapoints(datapoints)
	summaries := make([]*models.ItemActivityHourlySummary, 0, len(order))

	for _, bucket := range order {
		priced := make([]*models.AuctionDatapoint, 0, len(buckets[bucket]))
		for _, d := range buckets[bucket] {
			if d.BuyoutPrice > 0 {
				priced = append(priced, d)
			}
		}
		if len(priced) == 0 {
			continue
		}

		summary := &models.ItemActivityHourlySummary{
			Timestamp: bucket,
		}
		for _, d := range priced {
			summary.TotalAuctions += int64(d.Count)
			summary.TotalQuantity += d.Quantity
			summary.TotalMarketValue += d.BuyoutPrice * d.Quantity
		}

		// The outlier filter only derives the robust price; the totals
		// above stay unfiltered.
		result := stats.Analyze(pricedObservations(priced), s.params)
		summary.DatapointCount = int64(result.InlierCount)
		summary.OutlierCount = int64(result.OutlierCount)
		summary.EstimatedMarketValue = int64(math.Round(result.RobustPrice * float64(summary.TotalQuantity)))

		summaries = append(summaries, summary)
	}

	s.cacheSet(ctx, cacheKey, summaries)

	return summaries, nil
}

// RealmActivityRange re-buckets stored hourly rollups into the requested
// bucket width by summing overlapping hours. Respects the half-open
// [from, to) interval; hours without a stored rollup contribute nothing.
func (s *SummaryService) RealmActivityRange(ctx context.Context, realmID int64, from, to time.Time, bucket time.Duration) ([]*models.RealmActivityRollup, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	if bucket < time.Hour {
		bucket = time.Hour
	}

	cacheKey := storage.RealmActivityKey(realmID, from, to, bucket)
	var cached []*models.RealmActivityRollup
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	rollups, err := s.rollups.GetRange(ctx, realmID, from, to)
	if err != nil {
		return nil, apperrors.NewStorageTransactionError("rollup range scan", err)
	}

	merged := make(map[time.Time]*models.RealmActivityRollup)
	var order []time.Time

	for _, r := range rollups {
		key := r.HourBucket.UTC().Truncate(bucket)
		target, ok := merged[key]
		if !ok {
			target = &models.RealmActivityRollup{
				ServerRealmID: realmID,
				HourBucket:    key,
			}
			merged[key] = target
			order = append(order, key)
		}

		target.TotalAuctions += r.TotalAuctions
		target.TotalQuantity += r.TotalQuantity
		target.TotalMarketValue += r.TotalMarketValue
		target.EstimatedMarketValue += r.EstimatedMarketValue
		target.DatapointCount += r.DatapointCount
		target.OutlierCount += r.OutlierCount
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	result := make([]*models.RealmActivityRollup, 0, len(order))
	for _, key := range order {
		result = append(result, merged[key])
	}

	s.cacheSet(ctx, cacheKey, result)

	return result, nil
}

// pricedObservations converts datapoints with a buyout price into stats
// observations
func pricedObservations(datapoints []*models.AuctionDatapoint) []stats.Observation {
	observations := make([]stats.Observation, 0, len(datapoints))
	for _, d := range datapoints {
		if d.BuyoutPrice <= 0 {
			continue
		}
		observations = append(observations, stats.Observation{
			Price:    float64(d.BuyoutPrice),
			Quantity: d.Quantity,
		})
	}
	return observations
}

func (s *SummaryService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Summary cache read failed")
		return false
	}
	return hit
}

func (s *SummaryService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Summary cache write failed")
	}
}

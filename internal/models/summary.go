package models

import "time"

// ItemPriceHourlySummary describes the filtered buyout price distribution
// of one item over one hour. Percentiles are computed over inliers only.
type ItemPriceHourlySummary struct {
	Timestamp         time.Time `json:"timestamp"`
	MinBuyoutPrice    int64     `json:"minBuyoutPrice"`
	MaxBuyoutPrice    int64     `json:"maxBuyoutPrice"`
	MedianBuyoutPrice int64     `json:"medianBuyoutPrice"`
	AvgBuyoutPrice    int64     `json:"avgBuyoutPrice"`
	P10BuyoutPrice    int64     `json:"p10BuyoutPrice"`
	P25BuyoutPrice    int64     `json:"p25BuyoutPrice"`
	P75BuyoutPrice    int64     `json:"p75BuyoutPrice"`
	P90BuyoutPrice    int64     `json:"p90BuyoutPrice"`
	DatapointCount    int64     `json:"datapointCount"`
	OutlierCount      int64     `json:"outlierCount"`
}

// ItemActivityHourlySummary describes market activity of one item over one
// hour, computed from priced datapoints only. Totals are never
// outlier-filtered; the robust price feeds the estimated market value and
// the datapoint count is the inliers kept by that filter.
type ItemActivityHourlySummary struct {
	Timestamp            time.Time `json:"timestamp"`
	TotalAuctions        int64     `json:"totalAuctions"`
	TotalQuantity        int64     `json:"totalQuantity"`
	TotalMarketValue     int64     `json:"totalMarketValue"`
	EstimatedMarketValue int64     `json:"estimatedMarketValue"`
	DatapointCount       int64     `json:"datapointCount"`
	OutlierCount         int64     `json:"outlierCount"`
}

package models

import "time"

// RealmActivityRollup is the pre-aggregated realm-wide activity for one UTC
// hour. At most one row exists per (server_realm_id, hour_bucket); writes
// are upserts, so re-running the aggregator for the same hour converges.
type RealmActivityRollup struct {
	ServerRealmID        int64     `json:"serverRealmId" db:"server_realm_id"`
	HourBucket           time.Time `json:"hourBucket" db:"hour_bucket"`
	TotalAuctions        int64     `json:"totalAuctions" db:"total_auctions"`
	TotalQuantity        int64     `json:"totalQuantity" db:"total_quantity"`
	TotalMarketValue     int64     `json:"totalMarketValue" db:"total_market_value"`
	EstimatedMarketValue int64     `json:"estimatedMarketValue" db:"estimated_market_value"`
	DatapointCount       int64     `json:"datapointCount" db:"datapoint_count"`
	OutlierCount         int64     `json:"outlierCount" db:"outlier_count"`
}

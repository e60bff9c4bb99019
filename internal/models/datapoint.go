package models

import "time"

// AuctionDatapoint is one historical observation of a listing, appended on
// every accepted snapshot and immutable afterwards. Retention and
// compaction happen at the storage layer.
type AuctionDatapoint struct {
	ServerRealmID    int64     `json:"serverRealmId" db:"server_realm_id"`
	ItemID           int64     `json:"itemId" db:"item_id"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	BuyoutPrice      int64     `json:"buyoutPrice" db:"buyout_price"`
	StartingBidPrice int64     `json:"startingBidPrice" db:"starting_bid_price"`
	Quantity         int64     `json:"quantity" db:"quantity"`
	Count            int32     `json:"count" db:"count"`
}

// DatapointsFromListings derives one datapoint per listing at the given
// snapshot time.
func DatapointsFromListings(realmID int64, listings []SnapshotListing, at time.Time) []AuctionDatapoint {
	datapoints := make([]AuctionDatapoint, len(listings))
	for i, l := range listings {
		datapoints[i] = AuctionDatapoint{
			ServerRealmID:    realmID,
			ItemID:           l.Item.ID,
			Timestamp:        at,
			BuyoutPrice:      l.UnitBuyoutPrice,
			StartingBidPrice: l.UnitStartingBidPrice,
			Quantity:         l.Quantity,
			Count:            1,
		}
	}
	return datapoints
}

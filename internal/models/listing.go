package models

// Listing is one currently active auction. The full listing set of a realm
// is replaced atomically on every accepted snapshot; rows are never patched
// in place.
type Listing struct {
	ID                   int64 `json:"id" db:"id"`
	ServerRealmID        int64 `json:"serverRealmId" db:"server_realm_id"`
	ItemID               int64 `json:"itemId" db:"item_id"`
	UnitBuyoutPrice      int64 `json:"unitBuyoutPrice" db:"unit_buyout_price"`
	UnitStartingBidPrice int64 `json:"unitStartingBidPrice" db:"unit_starting_bid_price"`
	Quantity             int64 `json:"quantity" db:"quantity"`
}

// ListingWithItem joins a listing with its item metadata for read paths.
type ListingWithItem struct {
	Listing Listing `json:"listing"`
	Item    Item    `json:"item"`
}

// SnapshotListing is one listing as submitted by a scraper agent: prices
// plus the full item metadata observed at scrape time.
type SnapshotListing struct {
	Item                 Item  `json:"item"`
	UnitBuyoutPrice      int64 `json:"unitBuyoutPrice"`
	UnitStartingBidPrice int64 `json:"unitStartingBidPrice"`
	Quantity             int64 `json:"quantity"`
}

// ListingFilter narrows listing queries. Nil fields are ignored; item
// fields apply to the joined metadata.
type ListingFilter struct {
	ItemID        *int64
	ItemName      *string
	ItemQuality   *int32
	ItemLevel     *int32
	ItemClass     *int32
	ItemClassName *string
}

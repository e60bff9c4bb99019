package models

// Item is denormalized item metadata, scoped per realm. Metadata can change
// between snapshots and is merged on every ingestion.
type Item struct {
	ID            int64  `json:"id" db:"id"`
	ServerRealmID int64  `json:"serverRealmId" db:"server_realm_id"`
	Name          string `json:"name" db:"name"`
	Quality       int32  `json:"quality" db:"quality"`
	Level         int32  `json:"level" db:"level"`
	VendorPrice   int64  `json:"vendorPrice" db:"vendor_price"`
	ClassIndex    int32  `json:"classIndex" db:"class_index"`
	ClassName     string `json:"className" db:"class_name"`
}

// ItemFilter narrows item queries. Nil fields are ignored.
type ItemFilter struct {
	ID         *int64
	Name       *string
	Quality    *int32
	Level      *int32
	ClassIndex *int32
	ClassName  *string
}

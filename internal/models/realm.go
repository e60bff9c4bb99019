// Package models defines the domain entities shared across services,
// storage, and the API layer.
package models

import (
	"strings"
	"time"
)

// ServerRealm identifies one game server + realm pair. It is the partition
// key for every other entity.
type ServerRealm struct {
	ID        int64     `json:"id" db:"id"`
	Server    string    `json:"server" db:"server"`
	Realm     string    `json:"realm" db:"realm"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NormalizeRealmSlug converts a URL slug to the stored spelling: dashes
// become spaces. Lookup itself is case-insensitive.
func NormalizeRealmSlug(slug string) string {
	return strings.ReplaceAll(slug, "-", " ")
}

package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxQuantity bounds any stored quantity and any single delta. It matches
// the INTEGER column in Postgres.
const MaxQuantity = math.MaxInt32

// StockEntry is the quantity of one item held at one location.
// A zero-quantity entry reads the same as a missing one.
type StockEntry struct {
	ItemID     uuid.UUID `json:"item_id" db:"item_id"`
	LocationID uuid.UUID `json:"location_id" db:"location_id"`
	Quantity   int       `json:"quantity" db:"quantity"`
	Version    int64     `json:"version" db:"version"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// LocationQuantity is one row of an item's per-location breakdown.
type LocationQuantity struct {
	LocationID uuid.UUID `json:"location_id"`
	Quantity   int       `json:"quantity"`
}

// ItemStock is the breakdown of an item across all locations it is held at.
type ItemStock struct {
	ItemID    uuid.UUID          `json:"item_id"`
	Locations []LocationQuantity `json:"locations"`
	Total     int                `json:"total"`
}

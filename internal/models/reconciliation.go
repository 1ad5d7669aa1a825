package models

import (
	"time"

	"github.com/google/uuid"
)

type ReconciliationState string

const (
	ReconciliationConsistent      ReconciliationState = "consistent"
	ReconciliationBulkExceedsUnit ReconciliationState = "bulk_exceeds_units"
	ReconciliationUnitExceedsBulk ReconciliationState = "units_exceed_bulk"
)

// ReconciliationLine compares the bulk quantity of an item at a location
// with the individually tracked units found there.
type ReconciliationLine struct {
	LocationID     uuid.UUID           `json:"location_id"`
	BulkQuantity   int                 `json:"bulk_quantity"`
	AvailableUnits int                 `json:"available_units"`
	TrackedUnits   int                 `json:"tracked_units"`
	Difference     int                 `json:"difference"` // bulk - tracked units
	State          ReconciliationState `json:"state"`
}

// ReconciliationReport is the drift summary for one item.
type ReconciliationReport struct {
	ItemID         uuid.UUID            `json:"item_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Lines          []ReconciliationLine `json:"lines"`
	BulkTotal      int                  `json:"bulk_total"`
	AvailableUnits int                  `json:"available_units"`
	Discrepancies  int                  `json:"discrepancies"`
	ArchiveKey     string               `json:"archive_key,omitempty"`
}

// Consistent reports whether no line has drifted.
func (r *ReconciliationReport) Consistent() bool {
	return r.Discrepancies == 0
}

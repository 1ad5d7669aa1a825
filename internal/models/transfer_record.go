package models

import (
	"time"

	"github.com/google/uuid"
)

// TransferRecord is the append-only audit entry for a stock movement.
// FromLocationID is nil for initial stocking.
type TransferRecord struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ItemID         uuid.UUID  `json:"item_id" db:"item_id"`
	FromLocationID *uuid.UUID `json:"from_location_id,omitempty" db:"from_location_id"`
	ToLocationID   uuid.UUID  `json:"to_location_id" db:"to_location_id"`
	Quantity       int        `json:"quantity" db:"quantity"`
	OccurredAt     time.Time  `json:"occurred_at" db:"occurred_at"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
	Actor          *string    `json:"actor,omitempty" db:"actor"`
}

// TransferRequest asks for quantity of an item to move between locations.
type TransferRequest struct {
	ItemID         uuid.UUID  `json:"item_id"`
	FromLocationID *uuid.UUID `json:"from_location_id,omitempty"`
	ToLocationID   uuid.UUID  `json:"to_location_id"`
	Quantity       int        `json:"quantity"`
	Notes          *string    `json:"notes,omitempty"`
	Actor          *string    `json:"actor,omitempty"`
}

// TransferResult is a completed transfer. When Degraded is set the stock
// moved but the audit record was not stored; Record.ID is uuid.Nil and
// AuditErr carries the cause.
type TransferResult struct {
	Record   *TransferRecord `json:"record"`
	Degraded bool            `json:"degraded"`
	AuditErr error           `json:"-"`
}

// Warning returns the degraded-success message, or "" for a clean transfer.
func (r *TransferResult) Warning() string {
	if r == nil || !r.Degraded || r.AuditErr == nil {
		return ""
	}
	return r.AuditErr.Error()
}

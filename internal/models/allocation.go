package models

import "github.com/google/uuid"

// AllocationMode selects how an allocation is validated on commit.
type AllocationMode string

const (
	// AllocationConsumption takes stock out of existing locations; the rows
	// must sum to the requested total and stay within availability.
	AllocationConsumption AllocationMode = "consumption"
	// AllocationStocking places new stock; the rows only need a positive sum.
	AllocationStocking AllocationMode = "stocking"
)

// Allocation is one (location, quantity) slice of an allocation request.
type Allocation struct {
	LocationID uuid.UUID `json:"location_id"`
	Quantity   int       `json:"quantity"`
}

// Candidate is a location that can be drawn from, with its current availability.
type Candidate struct {
	LocationID uuid.UUID `json:"location_id"`
	Available  int       `json:"available"`
}

// AllocationRequest is a transient plan for placing or drawing a total across locations.
type AllocationRequest struct {
	ItemID              uuid.UUID      `json:"item_id"`
	TotalQuantityNeeded int            `json:"total_quantity_needed"`
	Mode                AllocationMode `json:"mode"`
	Allocations         []Allocation   `json:"allocations"`
	Notes               *string        `json:"notes,omitempty"`
	Actor               *string        `json:"actor,omitempty"`
}

// AllocationPlan is a proposal returned to the caller for review.
type AllocationPlan struct {
	ItemID              uuid.UUID    `json:"item_id"`
	TotalQuantityNeeded int          `json:"total_quantity_needed"`
	Allocations         []Allocation `json:"allocations"`
	Candidates          []Candidate  `json:"candidates"`
	Remaining           int          `json:"remaining"`
}

// AllocationCommitResult lists the stock movements applied for a committed allocation.
type AllocationCommitResult struct {
	ItemID      uuid.UUID         `json:"item_id"`
	Mode        AllocationMode    `json:"mode"`
	Allocations []Allocation      `json:"allocations"`
	Records     []*TransferRecord `json:"records,omitempty"`
	Degraded    bool              `json:"degraded"`
}

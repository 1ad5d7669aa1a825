package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ValidationModeStrict      = "strict"
	ValidationModeSkipInvalid = "skip_invalid"
)

// BulkOperationResult represents the result of a bulk operation
type BulkOperationResult struct {
	OperationID    string               `json:"operation_id"`
	Status         string               `json:"status"` // "completed", "failed", "partial"
	TotalItems     int                  `json:"total_items"`
	ProcessedItems int                  `json:"processed_items"`
	FailedItems    int                  `json:"failed_items"`
	Progress       float64              `json:"progress"` // 0-100
	StartTime      time.Time            `json:"start_time"`
	CompletionTime *time.Time           `json:"completion_time,omitempty"`
	Errors         []BulkOperationError `json:"errors,omitempty"`
	Items          []BulkOperationItem  `json:"items,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// BulkOperationError represents an error for a specific item in bulk operation
type BulkOperationError struct {
	ItemIndex int    `json:"item_index"`
	ItemID    string `json:"item_id"`
	Error     string `json:"error"`
}

// BulkOperationItem represents the result for a specific item
type BulkOperationItem struct {
	ItemIndex int     `json:"item_index"`
	ItemID    string  `json:"item_id"`
	Status    string  `json:"status"` // "success", "failed", "skipped"
	Error     *string `json:"error,omitempty"`
}

// NewBulkOperationResult starts a result for total items.
func NewBulkOperationResult(total int) *BulkOperationResult {
	return &BulkOperationResult{
		OperationID: uuid.NewString(),
		Status:      "processing",
		TotalItems:  total,
		StartTime:   time.Now().UTC(),
	}
}

// Succeed records item index as processed.
func (r *BulkOperationResult) Succeed(index int, itemID string) {
	r.ProcessedItems++
	r.Items = append(r.Items, BulkOperationItem{ItemIndex: index, ItemID: itemID, Status: "success"})
}

// Fail records item index as failed with err.
func (r *BulkOperationResult) Fail(index int, itemID string, err error) {
	msg := err.Error()
	r.FailedItems++
	r.Errors = append(r.Errors, BulkOperationError{ItemIndex: index, ItemID: itemID, Error: msg})
	r.Items = append(r.Items, BulkOperationItem{ItemIndex: index, ItemID: itemID, Status: "failed", Error: &msg})
}

// Skip records item index as not attempted.
func (r *BulkOperationResult) Skip(index int, itemID string) {
	r.Items = append(r.Items, BulkOperationItem{ItemIndex: index, ItemID: itemID, Status: "skipped"})
}

// Finish computes the final status and progress.
func (r *BulkOperationResult) Finish() {
	now := time.Now().UTC()
	r.CompletionTime = &now
	if r.TotalItems > 0 {
		r.Progress = float64(r.ProcessedItems+r.FailedItems) / float64(r.TotalItems) * 100
	}
	switch {
	case r.FailedItems == 0 && r.ProcessedItems == r.TotalItems:
		r.Status = "completed"
	case r.ProcessedItems == 0:
		r.Status = "failed"
	default:
		r.Status = "partial"
	}
}

// StockBulkAdjust represents bulk stock adjustments
type StockBulkAdjust struct {
	Adjustments    []StockAdjustment `json:"adjustments"`
	ValidationMode string            `json:"validation_mode"` // "strict" (default) or "skip_invalid"
}

// StockAdjustment represents a single stock adjustment
type StockAdjustment struct {
	ItemID     uuid.UUID `json:"item_id"`
	LocationID uuid.UUID `json:"location_id"`
	Delta      int       `json:"delta"` // positive adds, negative deducts
	Reason     string    `json:"reason"`
}

// UnitBulkTransfer moves a set of tracked units to one destination.
type UnitBulkTransfer struct {
	UnitIDs        []uuid.UUID `json:"unit_ids"`
	ToLocationID   uuid.UUID   `json:"to_location_id"`
	SyncBulk       bool        `json:"sync_bulk"` // also move the aggregate StockEntry
	ValidationMode string      `json:"validation_mode"`
	Notes          *string     `json:"notes,omitempty"`
	Actor          *string     `json:"actor,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// UnitStatus is a descriptive tag on an individually tracked unit.
// It never gates any other operation.
type UnitStatus string

const (
	UnitStatusAvailable    UnitStatus = "available"
	UnitStatusAssigned     UnitStatus = "assigned"
	UnitStatusMaintenance  UnitStatus = "maintenance"
	UnitStatusOutOfService UnitStatus = "out_of_service"
)

// Valid reports whether s is one of the four known statuses.
func (s UnitStatus) Valid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusAssigned, UnitStatusMaintenance, UnitStatusOutOfService:
		return true
	}
	return false
}

// IndividualUnit is one physical unit of an item, tracked by a code that is
// unique inside its CodeCategory.
type IndividualUnit struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	ItemID            uuid.UUID  `json:"item_id" db:"item_id"`
	CodeCategory      string     `json:"code_category" db:"code_category"`
	Code              string     `json:"code" db:"code"`
	Status            UnitStatus `json:"status" db:"status"`
	CurrentLocationID uuid.UUID  `json:"current_location_id" db:"current_location_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// UnitFilter narrows ListUnits. Zero values match everything.
type UnitFilter struct {
	LocationID *uuid.UUID  `query:"location_id"`
	Status     *UnitStatus `query:"status"`
	Limit      int         `query:"limit"`
	Offset     int         `query:"offset"`
}

// UnitLocationCount is the number of units of an item with a status at a location.
type UnitLocationCount struct {
	LocationID uuid.UUID
	Status     UnitStatus
	Count      int
}

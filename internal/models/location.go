package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is a storage place stock can be held at (warehouse, vehicle,
// fuel station, job site).
type Location struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

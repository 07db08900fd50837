package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry. Products share the soft-delete convention
// used by users: archived rows keep their data but are excluded from
// listings unless explicitly requested.
type Product struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

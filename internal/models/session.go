package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the single server-side record backing an account's refresh
// token. There is at most one row per account; RefreshToken is overwritten
// on every successful rotation, which is what invalidates older tokens.
// Mutations happen only inside a database transaction.
type Session struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

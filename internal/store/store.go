package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockroomhq/stockroom/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// UserStore defines the interface for user storage operations.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, params ListParams) (*UserPage, error)
	Search(ctx context.Context, query string, params ListParams) (*UserPage, error)
	Update(ctx context.Context, id uuid.UUID, update models.UserUpdate) (*models.User, error)
	Archive(ctx context.Context, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductStore defines the interface for product storage operations.
type ProductStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params ListParams) (*ProductPage, error)
	Search(ctx context.Context, query string, params ListParams) (*ProductPage, error)
}

// SessionStore covers session writes that happen outside the refresh
// transaction: login and registration establish the account's single
// session row (and its initial refresh token) here.
type SessionStore interface {
	// Upsert creates the session row for the account, or replaces its
	// refresh token if one already exists. Returns the resulting row.
	Upsert(ctx context.Context, accountID uuid.UUID, refreshToken string) (*models.Session, error)
}

// AuthStore is the unit of work used by the session refresh flow. All
// reads and writes inside fn observe a single database transaction; fn
// returning an error rolls the transaction back.
type AuthStore interface {
	InTx(ctx context.Context, fn func(tx AuthTx) error) error
}

// AuthTx is the transaction-scoped data view handed to AuthStore.InTx.
// GetSessionByAccount locks the session row for the duration of the
// transaction so concurrent refresh attempts for the same account
// serialize; the first committer wins and later attempts observe the
// rotated token.
type AuthTx interface {
	GetSessionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Session, error)
	UpdateSessionRefreshToken(ctx context.Context, sessionID uuid.UUID, refreshToken string) (*models.Session, error)
	RevokeSession(ctx context.Context, sessionID uuid.UUID) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

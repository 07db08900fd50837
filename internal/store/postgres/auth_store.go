package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockroomhq/stockroom/internal/models"
	"github.com/stockroomhq/stockroom/internal/store"
)

// AuthStore implements store.AuthStore using PostgreSQL transactions.
type AuthStore struct {
	pool *pgxpool.Pool
}

// NewAuthStore creates a new PostgreSQL-backed auth store.
func NewAuthStore(pool *pgxpool.Pool) *AuthStore {
	return &AuthStore{
		pool: pool,
	}
}

// InTx runs fn inside a single database transaction, committing if fn
// returns nil and rolling back otherwise.
func (s *AuthStore) InTx(ctx context.Context, fn func(tx store.AuthTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	if err := fn(&authTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// authTx implements store.AuthTx on top of a pgx transaction.
type authTx struct {
	tx pgx.Tx
}

// GetSessionByAccount reads the account's session row and locks it for
// the rest of the transaction. Concurrent refreshes for the same account
// queue on this lock, so the stored refresh token each one observes
// already includes every earlier rotation.
func (t *authTx) GetSessionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Session, error) {
	query := `
		SELECT session_id, account_id, refresh_token, created_at, updated_at
		FROM sessions
		WHERE account_id = $1
		FOR UPDATE
	`

	var session models.Session
	err := t.tx.QueryRow(ctx, query, accountID).Scan(
		&session.ID,
		&session.AccountID,
		&session.RefreshToken,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// UpdateSessionRefreshToken overwrites the session's stored refresh
// token, invalidating the previous one.
func (t *authTx) UpdateSessionRefreshToken(ctx context.Context, sessionID uuid.UUID, refreshToken string) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET refresh_token = $2, updated_at = now()
		WHERE session_id = $1
		RETURNING session_id, account_id, refresh_token, created_at, updated_at
	`

	var session models.Session
	err := t.tx.QueryRow(ctx, query, sessionID, refreshToken).Scan(
		&session.ID,
		&session.AccountID,
		&session.RefreshToken,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to update session refresh token: %w", err)
	}

	return &session, nil
}

// RevokeSession deletes the session row.
func (t *authTx) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	result, err := t.tx.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}

	return nil
}

// GetUser reads a user inside the transaction.
func (t *authTx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

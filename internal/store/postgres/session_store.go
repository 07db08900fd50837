package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stockroomhq/stockroom/internal/models"
)

// SessionStore implements store.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{
		pool: pool,
	}
}

// Upsert creates the session row for the account, or replaces its
// refresh token if one already exists. The account_id unique constraint
// keeps this to one row per account.
func (s *SessionStore) Upsert(ctx context.Context, accountID uuid.UUID, refreshToken string) (*models.Session, error) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	query := `
		INSERT INTO sessions (session_id, account_id, refresh_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE
			SET refresh_token = EXCLUDED.refresh_token,
			    updated_at = now()
		RETURNING session_id, account_id, refresh_token, created_at, updated_at
	`

	var session models.Session
	err = s.pool.QueryRow(ctx, query, sessionID, accountID, refreshToken).Scan(
		&session.ID,
		&session.AccountID,
		&session.RefreshToken,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}

	log.Debug().
		Str("session_id", session.ID.String()).
		Str("account_id", accountID.String()).
		Msg("Upserted session")

	return &session, nil
}

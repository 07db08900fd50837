package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stockroomhq/stockroom/internal/models"
)

// MemorySessionStore is an in-memory implementation of SessionStore for
// development and testing. Sessions are keyed by account, matching the
// one-row-per-account shape of the database.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session // keyed by account ID
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

// Upsert creates the session for the account, or replaces its refresh
// token if one already exists.
func (s *MemorySessionStore) Upsert(ctx context.Context, accountID uuid.UUID, refreshToken string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if session, exists := s.sessions[accountID]; exists {
		session.RefreshToken = refreshToken
		session.UpdatedAt = now
		return cloneSession(session), nil
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	session := &models.Session{
		ID:           sessionID,
		AccountID:    accountID,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.sessions[accountID] = session

	return cloneSession(session), nil
}

func cloneSession(session *models.Session) *models.Session {
	copy := *session
	return &copy
}

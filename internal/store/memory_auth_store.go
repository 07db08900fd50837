package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stockroomhq/stockroom/internal/models"
)

// MemoryAuthStore is an in-memory implementation of AuthStore for
// development and testing. Transactions are serialized by a single
// mutex, which gives the same first-committer-wins behavior the
// database provides with row locks.
type MemoryAuthStore struct {
	mu       sync.Mutex
	users    *MemoryUserStore
	sessions *MemorySessionStore
}

// NewMemoryAuthStore creates a new in-memory auth store sharing state
// with the given user and session stores.
func NewMemoryAuthStore(users *MemoryUserStore, sessions *MemorySessionStore) *MemoryAuthStore {
	return &MemoryAuthStore{
		users:    users,
		sessions: sessions,
	}
}

// InTx runs fn while holding the transaction mutex. Session mutations
// are undone if fn returns an error, so a failed refresh leaves the
// stored token untouched.
func (s *MemoryAuthStore) InTx(ctx context.Context, fn func(tx AuthTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryAuthTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}

	return nil
}

// memoryAuthTx implements AuthTx against the shared memory stores,
// recording an undo log so mutations can be rolled back.
type memoryAuthTx struct {
	store *MemoryAuthStore
	undo  []func()
}

func (t *memoryAuthTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// GetSessionByAccount reads the account's session.
func (t *memoryAuthTx) GetSessionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Session, error) {
	sessions := t.store.sessions
	sessions.mu.RLock()
	defer sessions.mu.RUnlock()

	session, exists := sessions.sessions[accountID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return cloneSession(session), nil
}

// UpdateSessionRefreshToken overwrites the session's stored refresh
// token.
func (t *memoryAuthTx) UpdateSessionRefreshToken(ctx context.Context, sessionID uuid.UUID, refreshToken string) (*models.Session, error) {
	sessions := t.store.sessions
	sessions.mu.Lock()
	defer sessions.mu.Unlock()

	for _, session := range sessions.sessions {
		if session.ID != sessionID {
			continue
		}

		prev := *session
		t.undo = append(t.undo, func() {
			sessions.mu.Lock()
			defer sessions.mu.Unlock()
			if current, exists := sessions.sessions[prev.AccountID]; exists && current.ID == prev.ID {
				*current = prev
			}
		})

		session.RefreshToken = refreshToken
		session.UpdatedAt = time.Now()
		return cloneSession(session), nil
	}

	return nil, ErrSessionNotFound
}

// RevokeSession deletes the session.
func (t *memoryAuthTx) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	sessions := t.store.sessions
	sessions.mu.Lock()
	defer sessions.mu.Unlock()

	for accountID, session := range sessions.sessions {
		if session.ID != sessionID {
			continue
		}

		prev := session
		t.undo = append(t.undo, func() {
			sessions.mu.Lock()
			defer sessions.mu.Unlock()
			sessions.sessions[accountID] = prev
		})

		delete(sessions.sessions, accountID)
		return nil
	}

	return ErrSessionNotFound
}

// GetUser reads a user.
func (t *memoryAuthTx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return t.store.users.Get(ctx, id)
}

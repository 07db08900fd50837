package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Session is the authenticated-session view published into the request
// context by the authentication middleware. AccessToken and RefreshToken
// are the current values, which may have just been rotated.
type Session struct {
	Email        string
	AccountID    uuid.UUID
	SessionID    uuid.UUID
	AccessToken  string
	RefreshToken string
}

// WithSession returns a context carrying the authenticated session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the authenticated session from the request
// context. The second return is false for requests that did not pass
// through the authentication middleware.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	return session, ok
}

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stockroomhq/stockroom/internal/models"
	"github.com/stockroomhq/stockroom/internal/store"
	"github.com/stockroomhq/stockroom/internal/telemetry"
	"github.com/stockroomhq/stockroom/internal/token"
)

// Service implements the session lifecycle: establishing the token pair at
// login/registration, rotating it on refresh, and revoking it at logout.
type Service struct {
	authStore store.AuthStore
	sessions  store.SessionStore
	users     store.UserStore
	codec     *token.Codec
	hasher    *Hasher
}

// NewService returns a Service with the given collaborators.
func NewService(authStore store.AuthStore, sessions store.SessionStore, users store.UserStore, codec *token.Codec, hasher *Hasher) *Service {
	return &Service{
		authStore: authStore,
		sessions:  sessions,
		users:     users,
		codec:     codec,
		hasher:    hasher,
	}
}

// Result is the outcome of any operation that issues a token pair.
type Result struct {
	User         *models.User
	SessionID    uuid.UUID
	AccessToken  string
	RefreshToken string
}

// Refresh exchanges a valid refresh token for a new token pair, rotating
// the session's stored refresh token in the same transaction as the read.
//
// The presented token must match the session's stored value byte for
// byte. Because rotation overwrites the stored value, a previously valid
// token fails this check after any later refresh, which is what detects
// replay of a captured token. The session row is locked for the duration
// of the transaction, so two concurrent refreshes with the same token
// serialize: the first commits, the second observes the rotated value and
// fails. A losing refresh is an authentication failure, never a retry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	claims := s.codec.VerifyRefreshToken(refreshToken)
	if claims == nil {
		telemetry.GetMetrics().RefreshFailuresTotal.Add(ctx, 1)
		return nil, &UnauthorizedError{Message: "Refresh token is expired."}
	}

	var result Result

	err := s.authStore.InTx(ctx, func(tx store.AuthTx) error {
		session, err := tx.GetSessionByAccount(ctx, claims.AccountID)
		if err != nil {
			return err
		}

		if subtle.ConstantTimeCompare([]byte(session.RefreshToken), []byte(refreshToken)) != 1 {
			log.Debug().
				Str("account_id", claims.AccountID.String()).
				Msg("Presented refresh token does not match stored value")
			telemetry.GetMetrics().RefreshReuseDetected.Add(ctx, 1)
			return &UnauthorizedError{Message: "Refresh token is invalid."}
		}

		newRefreshToken, err := s.codec.GenerateRefreshToken(session.AccountID)
		if err != nil {
			return fmt.Errorf("failed to generate refresh token: %w", err)
		}

		updated, err := tx.UpdateSessionRefreshToken(ctx, session.ID, newRefreshToken)
		if err != nil {
			return err
		}

		user, err := tx.GetUser(ctx, claims.AccountID)
		if err != nil {
			return err
		}

		accessToken, err := s.codec.GenerateAccessToken(updated.ID, user.ID, user.Email)
		if err != nil {
			return fmt.Errorf("failed to generate access token: %w", err)
		}

		result = Result{
			User:         user,
			SessionID:    updated.ID,
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
		}
		return nil
	})
	if err != nil {
		telemetry.GetMetrics().RefreshFailuresTotal.Add(ctx, 1)
		return nil, err
	}

	telemetry.GetMetrics().RefreshTotal.Add(ctx, 1)

	log.Debug().
		Str("session_id", result.SessionID.String()).
		Str("account_id", result.User.ID.String()).
		Msg("Rotated session refresh token")

	return &result, nil
}

// Login verifies the account's credentials and establishes its session
// row with a fresh token pair. Any existing refresh token for the account
// is replaced, which invalidates sessions on other devices.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			telemetry.GetMetrics().LoginFailuresTotal.Add(ctx, 1)
			return nil, &UnauthorizedError{Message: "Invalid email or password."}
		}
		return nil, err
	}

	if user.IsArchived() {
		telemetry.GetMetrics().LoginFailuresTotal.Add(ctx, 1)
		return nil, &UnauthorizedError{Message: "Invalid email or password."}
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		telemetry.GetMetrics().LoginFailuresTotal.Add(ctx, 1)
		return nil, &UnauthorizedError{Message: "Invalid email or password."}
	}

	result, err := s.establishSession(ctx, user)
	if err != nil {
		return nil, err
	}

	telemetry.GetMetrics().LoginsTotal.Add(ctx, 1)
	return result, nil
}

// RegisterParams holds the fields required to create an account.
type RegisterParams struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Register creates the account and logs it in, returning the initial
// token pair. A duplicate email surfaces as store.ErrEmailTaken.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Result, error) {
	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}

	user := &models.User{
		ID:           id,
		Email:        strings.TrimSpace(strings.ToLower(params.Email)),
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Role:         models.UserRoleUser,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	telemetry.GetMetrics().RegistrationsTotal.Add(ctx, 1)

	return s.establishSession(ctx, user)
}

// Logout revokes the session row, invalidating its refresh token. The
// access token remains valid until it expires; its short lifetime bounds
// the exposure.
func (s *Service) Logout(ctx context.Context, sessionID uuid.UUID) error {
	err := s.authStore.InTx(ctx, func(tx store.AuthTx) error {
		return tx.RevokeSession(ctx, sessionID)
	})
	if err != nil {
		return err
	}

	telemetry.GetMetrics().LogoutsTotal.Add(ctx, 1)
	return nil
}

func (s *Service) establishSession(ctx context.Context, user *models.User) (*Result, error) {
	refreshToken, err := s.codec.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session, err := s.sessions.Upsert(ctx, user.ID, refreshToken)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.codec.GenerateAccessToken(session.ID, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	log.Debug().
		Str("session_id", session.ID.String()).
		Str("account_id", user.ID.String()).
		Msg("Established session")

	return &Result{
		User:         user,
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

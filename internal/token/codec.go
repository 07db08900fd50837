// Package token signs and verifies the access and refresh tokens backing
// API sessions. The codec is pure: every operation is a function of its
// input and the signing secret, with no I/O and no shared mutable state.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is set on access tokens and validated on verification.
	Issuer = "refresh"
	// Audience is set on access tokens and validated on verification.
	Audience = "frontend"
)

var (
	// ErrInvalid is returned when a token is malformed, signed with the
	// wrong key, or carries the wrong issuer or audience.
	ErrInvalid = errors.New("token is invalid")

	// ErrExpired is returned when a structurally valid, correctly signed
	// access token has passed its expiry. Callers use this to decide
	// between refreshing and rejecting outright.
	ErrExpired = errors.New("token is expired")
)

// AccessClaims are embedded in the signed access token. They carry enough
// identity to serve authenticated requests without a database lookup.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID uuid.UUID `json:"session_id"`
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
}

// RefreshClaims are embedded in the signed refresh token. The token is
// deliberately not bound to a session id; binding is established by
// comparing the presented token against the session's stored value.
type RefreshClaims struct {
	jwt.RegisteredClaims
	AccountID uuid.UUID `json:"account_id"`
}

// Config holds configuration for the token codec.
type Config struct {
	// Secret is the HMAC signing secret shared by all server instances.
	// Must be at least 32 bytes.
	Secret []byte

	// AccessTTL is the access token lifetime. Default: 5 minutes.
	AccessTTL time.Duration

	// RefreshTTL is the refresh token lifetime. Default: 30 days.
	RefreshTTL time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.AccessTTL == 0 {
		c.AccessTTL = 5 * time.Minute
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = 30 * 24 * time.Hour
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Secret) < 32 {
		return fmt.Errorf("signing secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	return nil
}

// Codec signs and verifies access and refresh tokens with HMAC-SHA256.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec creates a token codec from cfg. The signing secret is captured
// at construction; rotating it means constructing a new codec.
func NewCodec(cfg *Config) (*Codec, error) {
	if cfg == nil {
		return nil, fmt.Errorf("token config is required")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid token config: %w", err)
	}

	return &Codec{
		secret:     cfg.Secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// GenerateAccessToken issues a short-lived access token bound to the
// given session and account.
func (c *Codec) GenerateAccessToken(sessionID, accountID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
		SessionID: sessionID,
		AccountID: accountID,
		Email:     email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// GenerateRefreshToken issues a long-lived refresh token for the account.
func (c *Codec) GenerateRefreshToken(accountID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
		AccountID: accountID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// VerifyAccessToken validates the token's signature, expiry, issuer, and
// audience. Returns ErrExpired for a correctly signed but stale token and
// ErrInvalid for everything else, so callers can refresh on expiry while
// rejecting tampered tokens outright.
func (c *Codec) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}

	return claims, nil
}

// VerifyRefreshToken validates the token and returns its claims, or nil
// if the token is expired or unparseable. Refresh token expiry is a
// normal event, not a protocol violation, so there is no error to
// distinguish here; the caller treats nil as "start over at login".
func (c *Codec) VerifyRefreshToken(tokenStr string) *RefreshClaims {
	parsed, err := jwt.ParseWithClaims(tokenStr, &RefreshClaims{}, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil
	}

	claims, ok := parsed.Claims.(*RefreshClaims)
	if !ok || !parsed.Valid {
		return nil
	}

	return claims
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
	}
	return c.secret, nil
}

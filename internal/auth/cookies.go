package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Cookie names are fixed wire constants shared with the frontend.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

const (
	accessCookieMaxAge  = 24 * time.Hour
	refreshCookieMaxAge = 30 * 24 * time.Hour
)

var (
	errCookieAbsent  = errors.New("cookie not present")
	errCookieInvalid = errors.New("cookie signature invalid")
)

// CookieManager issues and reads the HMAC-signed cookies carrying the two
// session tokens. Cookie values are `value.base64url(hmac_sha256(value))`;
// a cookie whose signature does not verify is reported the same way as a
// missing one, so callers treat both as a normal unauthorized case.
type CookieManager struct {
	secret []byte
}

// NewCookieManager creates a cookie manager signing with secret.
func NewCookieManager(secret []byte) (*CookieManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("cookie secret must be at least 32 bytes")
	}
	return &CookieManager{secret: secret}, nil
}

// SetAccessToken writes the signed access-token cookie (max-age 1 day).
func (m *CookieManager) SetAccessToken(w http.ResponseWriter, token string) {
	m.set(w, AccessTokenCookie, token, accessCookieMaxAge)
}

// SetRefreshToken writes the signed refresh-token cookie (max-age 30 days).
func (m *CookieManager) SetRefreshToken(w http.ResponseWriter, token string) {
	m.set(w, RefreshTokenCookie, token, refreshCookieMaxAge)
}

// Clear expires both token cookies. Used on logout.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func (m *CookieManager) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    m.sign(value),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// getSigned reads and verifies the named cookie. Returns errCookieAbsent
// when the cookie is not present and errCookieInvalid when its signature
// or format does not verify.
func (m *CookieManager) getSigned(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", errCookieAbsent
	}

	// The token value may itself contain dots, so the signature is
	// everything after the last one.
	idx := strings.LastIndexByte(cookie.Value, '.')
	if idx < 0 {
		return "", errCookieInvalid
	}

	value := cookie.Value[:idx]
	receivedSig, err := base64.RawURLEncoding.DecodeString(cookie.Value[idx+1:])
	if err != nil {
		return "", errCookieInvalid
	}

	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(value))
	if !hmac.Equal(receivedSig, mac.Sum(nil)) {
		return "", errCookieInvalid
	}

	return value, nil
}

func (m *CookieManager) sign(value string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(value))
	return value + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

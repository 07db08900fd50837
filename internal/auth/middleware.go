package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/stockroomhq/stockroom/internal/store"
	"github.com/stockroomhq/stockroom/internal/telemetry"
	"github.com/stockroomhq/stockroom/internal/token"
)

// Authenticator is the request-time authentication gate. It verifies the
// access token on the fast path, falls back to a transactional refresh
// when the access token has expired, and publishes the authenticated
// session into the request context for downstream handlers.
type Authenticator struct {
	codec   *token.Codec
	cookies *CookieManager
	service *Service
}

// NewAuthenticator returns an Authenticator using the given collaborators.
func NewAuthenticator(codec *token.Codec, cookies *CookieManager, service *Service) *Authenticator {
	return &Authenticator{
		codec:   codec,
		cookies: cookies,
		service: service,
	}
}

// Middleware wraps next so it only runs for authenticated requests.
//
// A request with a valid access token is served without touching the
// database or re-issuing cookies. An expired access token triggers a
// refresh using the refresh-token cookie; on success both cookies are
// re-issued with the rotated values. Every other outcome short-circuits
// with a 401 and never invokes next.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, accessErr := a.cookies.getSigned(r, AccessTokenCookie)
		refreshToken, refreshErr := a.cookies.getSigned(r, RefreshTokenCookie)

		if errors.Is(accessErr, errCookieAbsent) || errors.Is(refreshErr, errCookieAbsent) {
			writeUnauthorized(w, "Session tokens are required")
			return
		}
		if accessErr != nil || refreshErr != nil {
			writeUnauthorized(w, "Session tokens are invalid")
			return
		}

		claims, err := a.codec.VerifyAccessToken(accessToken)
		switch {
		case err == nil:
			session := &Session{
				Email:        claims.Email,
				AccountID:    claims.AccountID,
				SessionID:    claims.SessionID,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))

		case errors.Is(err, token.ErrExpired):
			result, err := a.service.Refresh(r.Context(), refreshToken)
			if err != nil {
				log.Debug().Err(err).Msg("Session refresh failed")
				writeUnauthorized(w, unauthorizedMessage(err))
				return
			}

			a.cookies.SetAccessToken(w, result.AccessToken)
			a.cookies.SetRefreshToken(w, result.RefreshToken)

			session := &Session{
				Email:        result.User.Email,
				AccountID:    result.User.ID,
				SessionID:    result.SessionID,
				AccessToken:  result.AccessToken,
				RefreshToken: result.RefreshToken,
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))

		default:
			log.Debug().Msg("Access token failed verification")
			telemetry.GetMetrics().AccessTokenVerifyErrors.Add(r.Context(), 1)
			writeUnauthorized(w, "Session tokens are invalid")
		}
	})
}

// unauthorizedMessage picks the client-facing message for a refresh
// failure. Store lookups that miss surface as a generic unauthorized, not
// a not-found, so the response never confirms whether an account exists.
func unauthorizedMessage(err error) string {
	var unauthorized *UnauthorizedError
	if errors.As(err, &unauthorized) {
		return unauthorized.Message
	}
	if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, store.ErrUserNotFound) {
		return "Session tokens are invalid"
	}
	return "Unauthorized"
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      message,
		"statusCode": http.StatusUnauthorized,
	})
}

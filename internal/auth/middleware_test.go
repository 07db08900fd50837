package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stockroomhq/stockroom/internal/token"
)

type gateFixture struct {
	*serviceFixture
	cookies       *CookieManager
	authenticator *Authenticator
	expiredCodec  *token.Codec
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	f := newServiceFixture(t)

	cookies, err := NewCookieManager(testCookieSecret)
	require.NoError(t, err)

	// Signs with the same secret but an already-passed expiry, for
	// crafting access tokens the real codec reports as expired.
	expiredCodec, err := token.NewCodec(&token.Config{
		Secret:    testTokenSecret,
		AccessTTL: -time.Minute,
	})
	require.NoError(t, err)

	return &gateFixture{
		serviceFixture: f,
		cookies:        cookies,
		authenticator:  NewAuthenticator(f.codec, cookies, f.service),
		expiredCodec:   expiredCodec,
	}
}

// serve sends a request carrying the given cookie recorder's cookies
// through the middleware and returns the response plus any session the
// inner handler observed.
func (f *gateFixture) serve(t *testing.T, setCookies func(w http.ResponseWriter)) (*httptest.ResponseRecorder, *Session) {
	t.Helper()

	var seen *Session
	handler := f.authenticator.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	setup := httptest.NewRecorder()
	if setCookies != nil {
		setCookies(setup)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range setup.Result().Cookies() {
		r.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w, seen
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error      string `json:"error"`
		StatusCode int    `json:"statusCode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, http.StatusUnauthorized, body.StatusCode)
	return body.Error
}

func TestGate_missingCookies(t *testing.T) {
	f := newGateFixture(t)

	w, _ := f.serve(t, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Session tokens are required", errorMessage(t, w))
}

func TestGate_missingRefreshCookie(t *testing.T) {
	f := newGateFixture(t)
	result := f.register(t, "jane@example.com")

	w, _ := f.serve(t, func(w http.ResponseWriter) {
		f.cookies.SetAccessToken(w, result.AccessToken)
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Session tokens are required", errorMessage(t, w))
}

func TestGate_tamperedCookieSignature(t *testing.T) {
	f := newGateFixture(t)
	result := f.register(t, "jane@example.com")

	handler := f.authenticator.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	setup := httptest.NewRecorder()
	f.cookies.SetAccessToken(setup, result.AccessToken)
	f.cookies.SetRefreshToken(setup, result.RefreshToken)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range setup.Result().Cookies() {
		if cookie.Name == AccessTokenCookie {
			cookie.Value = "x" + cookie.Value
		}
		r.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Session tokens are invalid", errorMessage(t, w))
}

func TestGate_fastPath(t *testing.T) {
	f := newGateFixture(t)
	result := f.register(t, "jane@example.com")

	w, seen := f.serve(t, func(w http.ResponseWriter) {
		f.cookies.SetAccessToken(w, result.AccessToken)
		f.cookies.SetRefreshToken(w, result.RefreshToken)
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	require.Equal(t, result.User.ID, seen.AccountID)
	require.Equal(t, result.SessionID, seen.SessionID)
	require.Equal(t, "jane@example.com", seen.Email)

	// The fast path re-issues nothing.
	require.Empty(t, w.Result().Cookies())
}

func TestGate_expiredAccessTokenRefreshes(t *testing.T) {
	f := newGateFixture(t)
	result := f.register(t, "jane@example.com")

	expired, err := f.expiredCodec.GenerateAccessToken(result.SessionID, result.User.ID, result.User.Email)
	require.NoError(t, err)

	w, seen := f.serve(t, func(w http.ResponseWriter) {
		f.cookies.SetAccessToken(w, expired)
		f.cookies.SetRefreshToken(w, result.RefreshToken)
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	require.Equal(t, result.User.ID, seen.AccountID)
	require.NotEqual(t, result.RefreshToken, seen.RefreshToken)

	// Both cookies were re-issued with rotated values.
	reissued := map[string]bool{}
	for _, cookie := range w.Result().Cookies() {
		reissued[cookie.Name] = true
	}
	require.True(t, reissued[AccessTokenCookie])
	require.True(t, reissued[RefreshTokenCookie])

	// The pre-rotation refresh token is now dead.
	_, err = f.service.Refresh(t.Context(), result.RefreshToken)
	var unauthorized *UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	require.Equal(t, "Refresh token is invalid.", unauthorized.Message)
}

func TestGate_expiredAccessWithReplayedRefresh(t *testing.T) {
	f := newGateFixture(t)
	result := f.register(t, "jane@example.com")

	// Rotate once so the cookie's refresh token is stale.
	_, err := f.service.Refresh(t.Context(), result.RefreshToken)
	require.NoError(t, err)

	expired, err := f.expiredCodec.GenerateAccessToken(result.SessionID, result.User.ID, result.User.Email)
	require.NoError(t, err)

	w, _ := f.serve(t, func(w http.ResponseWriter) {
		f.cookies.SetAccessToken(w, expired)
		f.cookies.SetRefreshToken(w, result.RefreshToken)
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Refresh token is invalid.", errorMessage(t, w))
}

func TestGate_expiredAccessAfterLogout(t *testing.T) {
	f := newGateFixture(t)
	result := f.register(t, "jane@example.com")

	require.NoError(t, f.service.Logout(t.Context(), result.SessionID))

	expired, err := f.expiredCodec.GenerateAccessToken(result.SessionID, result.User.ID, result.User.Email)
	require.NoError(t, err)

	w, _ := f.serve(t, func(w http.ResponseWriter) {
		f.cookies.SetAccessToken(w, expired)
		f.cookies.SetRefreshToken(w, result.RefreshToken)
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	// The response must not reveal that the session row is gone.
	require.Equal(t, "Session tokens are invalid", errorMessage(t, w))
}

func TestGate_garbageAccessToken(t *testing.T) {
	f := newGateFixture(t)
	result := f.register(t, "jane@example.com")

	// Correctly signed cookie carrying a value that is not a JWT.
	w, _ := f.serve(t, func(w http.ResponseWriter) {
		f.cookies.SetAccessToken(w, "not.a.jwt")
		f.cookies.SetRefreshToken(w, result.RefreshToken)
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Session tokens are invalid", errorMessage(t, w))
}

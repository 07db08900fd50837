package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testCookieSecret = []byte("cookie-signing-secret-min-32-chars!!")

func newTestCookieManager(t *testing.T) *CookieManager {
	t.Helper()

	m, err := NewCookieManager(testCookieSecret)
	require.NoError(t, err)
	return m
}

// requestWithCookies copies the cookies set on w into a new request.
func requestWithCookies(t *testing.T, w *httptest.ResponseRecorder) *http.Request {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range w.Result().Cookies() {
		r.AddCookie(cookie)
	}
	return r
}

func TestNewCookieManager_shortSecret(t *testing.T) {
	_, err := NewCookieManager([]byte("short"))
	require.Error(t, err)
}

func TestCookies_roundTrip(t *testing.T) {
	m := newTestCookieManager(t)

	// JWTs contain dots, the signed format must survive them.
	value := "header.payload.signature"

	w := httptest.NewRecorder()
	m.SetAccessToken(w, value)

	r := requestWithCookies(t, w)
	got, err := m.getSigned(r, AccessTokenCookie)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestCookies_attributes(t *testing.T) {
	m := newTestCookieManager(t)

	w := httptest.NewRecorder()
	m.SetAccessToken(w, "token")
	m.SetRefreshToken(w, "token")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)

	for _, cookie := range cookies {
		require.True(t, cookie.HttpOnly)
		require.True(t, cookie.Secure)
		require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		require.Equal(t, "/", cookie.Path)
	}

	byName := map[string]*http.Cookie{}
	for _, cookie := range cookies {
		byName[cookie.Name] = cookie
	}
	require.Equal(t, int((24 * time.Hour).Seconds()), byName[AccessTokenCookie].MaxAge)
	require.Equal(t, int((30 * 24 * time.Hour).Seconds()), byName[RefreshTokenCookie].MaxAge)
}

func TestCookies_absent(t *testing.T) {
	m := newTestCookieManager(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := m.getSigned(r, AccessTokenCookie)
	require.ErrorIs(t, err, errCookieAbsent)
}

func TestCookies_tamperedValue(t *testing.T) {
	m := newTestCookieManager(t)

	w := httptest.NewRecorder()
	m.SetAccessToken(w, "original-value")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range w.Result().Cookies() {
		cookie.Value = "changed-value" + cookie.Value[len("original-value"):]
		r.AddCookie(cookie)
	}

	_, err := m.getSigned(r, AccessTokenCookie)
	require.ErrorIs(t, err, errCookieInvalid)
}

func TestCookies_unsignedValue(t *testing.T) {
	m := newTestCookieManager(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "no-signature-here"})

	_, err := m.getSigned(r, AccessTokenCookie)
	require.ErrorIs(t, err, errCookieInvalid)
}

func TestCookies_wrongSecret(t *testing.T) {
	m := newTestCookieManager(t)
	other, err := NewCookieManager([]byte("different-cookie-secret-32-chars!!!!"))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.SetAccessToken(w, "value")

	r := requestWithCookies(t, w)
	_, err = other.getSigned(r, AccessTokenCookie)
	require.ErrorIs(t, err, errCookieInvalid)
}

func TestCookies_clear(t *testing.T) {
	m := newTestCookieManager(t)

	w := httptest.NewRecorder()
	m.Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, cookie := range cookies {
		require.Empty(t, cookie.Value)
		require.Negative(t, cookie.MaxAge)
	}
}

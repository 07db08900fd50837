package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stockroomhq/stockroom/internal/auth"
	"github.com/stockroomhq/stockroom/internal/models"
	"github.com/stockroomhq/stockroom/internal/store"
	"github.com/stockroomhq/stockroom/internal/token"
)

type apiFixture struct {
	mux      *http.ServeMux
	users    *store.MemoryUserStore
	products *store.MemoryProductStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	codec, err := token.NewCodec(&token.Config{Secret: []byte("token-signing-secret-min-32-chars!!!")})
	require.NoError(t, err)

	cookies, err := auth.NewCookieManager([]byte("cookie-signing-secret-min-32-chars!!"))
	require.NoError(t, err)

	users := store.NewMemoryUserStore()
	sessions := store.NewMemorySessionStore()
	products := store.NewMemoryProductStore()
	authStore := store.NewMemoryAuthStore(users, sessions)

	hasher := auth.NewHasher(4)
	service := auth.NewService(authStore, sessions, users, codec, hasher)
	gate := auth.NewAuthenticator(codec, cookies, service)

	mux := http.NewServeMux()
	Routes(mux, Stores{Users: users, Products: products}, service, cookies, hasher, gate)

	return &apiFixture{mux: mux, users: users, products: products}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	for _, cookie := range cookies {
		r.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

// register creates an account through the API and returns its session
// cookies.
func (f *apiFixture) register(t *testing.T, email string) []*http.Cookie {
	t.Helper()

	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":      email,
		"first_name": "Jane",
		"last_name":  "Doe",
		"password":   "correct horse battery staple",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	return cookies
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (string, int) {
	t.Helper()

	var body struct {
		Error      string `json:"error"`
		StatusCode int    `json:"statusCode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error, body.StatusCode
}

func TestAPI_registerSetsCookiesAndReturnsUser(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":      "jane@example.com",
		"first_name": "Jane",
		"last_name":  "Doe",
		"password":   "correct horse battery staple",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.Equal(t, "jane@example.com", user.Email)

	// The password hash must never appear in a response.
	require.NotContains(t, w.Body.String(), "password")

	names := map[string]bool{}
	for _, cookie := range w.Result().Cookies() {
		names[cookie.Name] = true
		require.True(t, cookie.HttpOnly)
	}
	require.True(t, names[auth.AccessTokenCookie])
	require.True(t, names[auth.RefreshTokenCookie])
}

func TestAPI_registerValidation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "correct horse battery staple",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "jane@example.com",
		"password": "short",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_registerDuplicateEmail(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "jane@example.com")

	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse battery staple",
	}, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	msg, status := decodeError(t, w)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Email is already in use.", msg)
}

func TestAPI_loginAndMe(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "jane@example.com")

	w := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse battery staple",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)

	w = f.do(t, http.MethodGet, "/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.Equal(t, "jane@example.com", user.Email)
}

func TestAPI_loginBadPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "jane@example.com")

	w := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "wrong password here",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	msg, _ := decodeError(t, w)
	require.Equal(t, "Invalid email or password.", msg)
}

func TestAPI_protectedRoutesRequireCookies(t *testing.T) {
	f := newAPIFixture(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/me"},
		{http.MethodGet, "/users"},
		{http.MethodGet, "/products"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/auth/refresh-session"},
	} {
		w := f.do(t, route.method, route.path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)

		msg, _ := decodeError(t, w)
		require.Equal(t, "Session tokens are required", msg)
	}
}

func TestAPI_updateMe(t *testing.T) {
	f := newAPIFixture(t)
	cookies := f.register(t, "jane@example.com")

	w := f.do(t, http.MethodPatch, "/me", map[string]string{"first_name": "Janet"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.Equal(t, "Janet", user.FirstName)
	require.Equal(t, "Doe", user.LastName)
}

func TestAPI_logoutClearsCookiesAndRevokes(t *testing.T) {
	f := newAPIFixture(t)
	cookies := f.register(t, "jane@example.com")

	w := f.do(t, http.MethodPost, "/auth/logout", nil, cookies)
	require.Equal(t, http.StatusNoContent, w.Code)

	for _, cookie := range w.Result().Cookies() {
		require.Empty(t, cookie.Value)
	}

	// The rotated-out refresh path is gone; a forced refresh fails.
	w = f.do(t, http.MethodPost, "/auth/refresh-session", nil, cookies)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_refreshSessionRotates(t *testing.T) {
	f := newAPIFixture(t)
	cookies := f.register(t, "jane@example.com")

	w := f.do(t, http.MethodPost, "/auth/refresh-session", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, w.Result().Cookies(), 2)

	// The old refresh token no longer works.
	w = f.do(t, http.MethodPost, "/auth/refresh-session", nil, cookies)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	msg, _ := decodeError(t, w)
	require.Equal(t, "Refresh token is invalid.", msg)
}

func TestAPI_usersCRUD(t *testing.T) {
	f := newAPIFixture(t)
	cookies := f.register(t, "admin@example.com")

	w := f.do(t, http.MethodPost, "/users", map[string]string{
		"email":      "new@example.com",
		"first_name": "New",
		"last_name":  "User",
		"role":       "admin",
		"password":   "a decent password",
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, models.UserRoleAdmin, created.Role)

	w = f.do(t, http.MethodGet, "/users/"+created.ID.String(), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPatch, "/users/"+created.ID.String(), map[string]string{"last_name": "Renamed"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/users/"+created.ID.String()+"/archive", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var archived models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archived))
	require.NotNil(t, archived.DeletedAt)

	w = f.do(t, http.MethodDelete, "/users/"+created.ID.String(), nil, cookies)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/users/"+created.ID.String(), nil, cookies)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_usersListPagination(t *testing.T) {
	f := newAPIFixture(t)
	cookies := f.register(t, "admin@example.com")

	for i := range 29 {
		f.register(t, fmt.Sprintf("user%02d@example.com", i))
	}

	w := f.do(t, http.MethodGet, "/users?limit=10&page=2", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Records      []models.User `json:"records"`
		TotalRecords int64         `json:"total_records"`
		TotalPages   int           `json:"total_pages"`
		CurrentPage  int           `json:"current_page"`
		NextPage     *int          `json:"next_page"`
		PreviousPage *int          `json:"previous_page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Records, 10)
	require.EqualValues(t, 30, page.TotalRecords)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, 2, page.CurrentPage)
	require.NotNil(t, page.NextPage)
	require.NotNil(t, page.PreviousPage)
}

func TestAPI_userSearchRequiresQuery(t *testing.T) {
	f := newAPIFixture(t)
	cookies := f.register(t, "admin@example.com")

	w := f.do(t, http.MethodGet, "/users/search", nil, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/users/search?query=admin", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_products(t *testing.T) {
	f := newAPIFixture(t)
	cookies := f.register(t, "jane@example.com")

	product := &models.Product{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        "Widget",
		Description: "A fine widget",
		Price:       9.99,
	}
	f.products.Put(product)

	w := f.do(t, http.MethodGet, "/products", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/products/"+product.ID.String(), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/products/search?query=widget", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/products/"+uuid.Must(uuid.NewV7()).String(), nil, cookies)
	require.Equal(t, http.StatusNotFound, w.Code)

	msg, status := decodeError(t, w)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Product not found.", msg)
}

func TestAPI_misc(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/server/date-time", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body["date_time"])
}

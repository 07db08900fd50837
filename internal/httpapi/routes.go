package httpapi

import (
	"net/http"

	"github.com/stockroomhq/stockroom/internal/auth"
	"github.com/stockroomhq/stockroom/internal/store"
)

// Stores groups the data stores the API serves from.
type Stores struct {
	Users    store.UserStore
	Products store.ProductStore
}

// Routes registers every API endpoint on mux. Endpoints other than
// register, login and the health/date-time probes sit behind the
// authentication gate.
func Routes(mux *http.ServeMux, stores Stores, service *auth.Service, cookies *auth.CookieManager, hasher *auth.Hasher, gate *auth.Authenticator) {
	users := NewUsersHandler(stores.Users, hasher)
	products := NewProductsHandler(stores.Products)
	me := NewMeHandler(stores.Users)
	session := NewSessionHandler(service, cookies)

	protected := func(h http.HandlerFunc) http.Handler {
		return gate.Middleware(h)
	}

	// Public endpoints
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("GET /server/date-time", DateTime)
	mux.HandleFunc("POST /auth/register", session.Register)
	mux.HandleFunc("POST /auth/login", session.Login)

	// Session management behind the gate
	mux.Handle("POST /auth/logout", protected(session.Logout))
	mux.Handle("POST /auth/refresh-session", protected(session.RefreshSession))

	// Profile
	mux.Handle("GET /me", protected(me.Get))
	mux.Handle("PATCH /me", protected(me.Update))

	// Users
	mux.Handle("GET /users", protected(users.List))
	mux.Handle("GET /users/search", protected(users.Search))
	mux.Handle("POST /users", protected(users.Create))
	mux.Handle("GET /users/{user_id}", protected(users.Get))
	mux.Handle("PATCH /users/{user_id}", protected(users.Update))
	mux.Handle("DELETE /users/{user_id}", protected(users.Delete))
	mux.Handle("DELETE /users/{user_id}/archive", protected(users.Archive))

	// Products
	mux.Handle("GET /products", protected(products.List))
	mux.Handle("GET /products/search", protected(products.Search))
	mux.Handle("GET /products/{product_id}", protected(products.Get))
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/stockroomhq/stockroom/internal/auth"
	"github.com/stockroomhq/stockroom/internal/models"
	"github.com/stockroomhq/stockroom/internal/store"
)

// MeHandler serves the authenticated account's own profile.
type MeHandler struct {
	users store.UserStore
}

// NewMeHandler returns a MeHandler using the given store.
func NewMeHandler(users store.UserStore) *MeHandler {
	return &MeHandler{
		users: users,
	}
}

// Get handles GET /me.
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.users.Get(r.Context(), session.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type updateMeRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Update handles PATCH /me. Accounts can change their own name but not
// their email or role.
func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	update := models.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	user, err := h.users.Update(r.Context(), session.AccountID, update)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stockroomhq/stockroom/internal/auth"
	"github.com/stockroomhq/stockroom/internal/models"
	"github.com/stockroomhq/stockroom/internal/store"
)

// UsersHandler serves the user management endpoints.
type UsersHandler struct {
	users  store.UserStore
	hasher *auth.Hasher
}

// NewUsersHandler returns a UsersHandler using the given store and
// password hasher.
func NewUsersHandler(users store.UserStore, hasher *auth.Hasher) *UsersHandler {
	return &UsersHandler{
		users:  users,
		hasher: hasher,
	}
}

// List handles GET /users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), parseListParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Search handles GET /users/search.
func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Query parameter is required.")
		return
	}

	page, err := h.users.Search(r.Context(), query, parseListParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

type createUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

func (req *createUserRequest) validate() error {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if req.Role != "" && req.Role != string(models.UserRoleUser) && req.Role != string(models.UserRoleAdmin) {
		return fmt.Errorf("role must be user or admin")
	}
	return nil
}

// Create handles POST /users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := req.validate(); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		writeError(w, r, err)
		return
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.UserRoleUser
	}

	user := &models.User{
		ID:           id,
		Email:        strings.TrimSpace(strings.ToLower(req.Email)),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		PasswordHash: hash,
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User created")

	writeJSON(w, http.StatusCreated, user)
}

// Get handles GET /users/{user_id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
}

func (req *updateUserRequest) toUpdate() (models.UserUpdate, error) {
	var update models.UserUpdate

	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return update, fmt.Errorf("a valid email is required")
		}
		update.Email = req.Email
	}
	update.FirstName = req.FirstName
	update.LastName = req.LastName
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		if role != models.UserRoleUser && role != models.UserRoleAdmin {
			return update, fmt.Errorf("role must be user or admin")
		}
		update.Role = &role
	}

	return update, nil
}

// Update handles PATCH /users/{user_id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Update(r.Context(), id, update)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Archive handles DELETE /users/{user_id}/archive, soft-deleting the
// user.
func (h *UsersHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	user, err := h.users.Archive(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().Str("user_id", id.String()).Msg("User archived")

	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{user_id}, removing the user permanently.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().Str("user_id", id.String()).Msg("User deleted")

	w.WriteHeader(http.StatusNoContent)
}

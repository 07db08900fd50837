package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/rs/zerolog/log"
	"github.com/stockroomhq/stockroom/internal/auth"
	"github.com/stockroomhq/stockroom/internal/store"
)

// SessionHandler serves the register, login, logout and refresh
// endpoints that manage the cookie-based session.
type SessionHandler struct {
	service *auth.Service
	cookies *auth.CookieManager
}

// NewSessionHandler returns a SessionHandler using the given service
// and cookie manager.
func NewSessionHandler(service *auth.Service, cookies *auth.CookieManager) *SessionHandler {
	return &SessionHandler{
		service: service,
		cookies: cookies,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (req *registerRequest) validate() error {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// Register handles POST /auth/register. On success both session cookies
// are set and the new account is returned.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := req.validate(); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Register(r.Context(), auth.RegisterParams{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.SetAccessToken(w, result.AccessToken)
	h.cookies.SetRefreshToken(w, result.RefreshToken)

	writeJSON(w, http.StatusCreated, result.User)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies.SetAccessToken(w, result.AccessToken)
	h.cookies.SetRefreshToken(w, result.RefreshToken)

	writeJSON(w, http.StatusOK, result.User)
}

// Logout handles POST /auth/logout. It runs behind the authentication
// gate, revokes the session row and clears both cookies.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), session.SessionID); err != nil {
		log.Debug().Err(err).Msg("Logout failed to revoke session")
	}

	h.cookies.Clear(w)

	w.WriteHeader(http.StatusNoContent)
}

// RefreshSession handles POST /auth/refresh-session. It runs behind the
// authentication gate and forces a rotation of the context session's
// refresh token, re-setting both cookies.
func (h *SessionHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.service.Refresh(r.Context(), session.RefreshToken)
	if err != nil {
		// A missing session or account must not be distinguishable from
		// any other rejected refresh.
		if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, store.ErrUserNotFound) {
			writeErrorMessage(w, http.StatusUnauthorized, "Session tokens are invalid")
			return
		}
		writeError(w, r, err)
		return
	}

	h.cookies.SetAccessToken(w, result.AccessToken)
	h.cookies.SetRefreshToken(w, result.RefreshToken)

	writeJSON(w, http.StatusOK, result.User)
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stockroomhq/stockroom/internal/auth"
	"github.com/stockroomhq/stockroom/internal/store"
)

// errorResponse is the envelope every error renders as.
type errorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorMessage writes an error envelope with the given status and
// client-facing message.
func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:      message,
		StatusCode: status,
	})
}

// writeError maps err to an HTTP status and renders the error envelope.
// Unrecognized errors are logged and collapse to a generic 500 so
// internals never leak to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var unauthorized *auth.UnauthorizedError
	switch {
	case errors.As(err, &unauthorized):
		writeErrorMessage(w, http.StatusUnauthorized, unauthorized.Message)

	case errors.Is(err, store.ErrUserNotFound):
		writeErrorMessage(w, http.StatusNotFound, "User not found.")

	case errors.Is(err, store.ErrProductNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Product not found.")

	case errors.Is(err, store.ErrSessionNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Session not found.")

	case errors.Is(err, store.ErrEmailTaken):
		writeErrorMessage(w, http.StatusConflict, "Email is already in use.")

	default:
		if r != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		}
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error.")
	}
}

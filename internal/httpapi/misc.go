package httpapi

import (
	"net/http"
	"time"
)

// DateTime handles GET /server/date-time.
func DateTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"date_time": time.Now().UTC().Format(time.RFC3339),
	})
}

// Health handles GET /health, the liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

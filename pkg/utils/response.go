package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes an error payload.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondAppError maps an error through the taxonomy and writes it. Upstream
// errors carry the remote status and body verbatim in the payload.
func RespondAppError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	payload := map[string]any{"error": err.Error()}

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindUpstream {
		payload["upstream_status"] = appErr.UpstreamStatus
		payload["upstream_body"] = appErr.UpstreamBody
	}

	RespondJSON(w, status, payload)
}

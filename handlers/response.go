package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/services"
)

// Every response uses the same envelope: status is "success", "fail" (the
// caller's fault) or "error" (ours).
type envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: failed to encode response: %v", err)
	}
}

func respondData(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, envelope{Status: "success", Data: data})
}

func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func respondFail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "fail", Message: message})
}

func respondError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "error", Message: message})
}

// statusForError maps the service error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case services.IsValidation(err), errors.Is(err, services.ErrBadRequest), errors.Is(err, services.ErrSelfMessage):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError translates a service error into the envelope. Internal
// failures are logged and reported generically so nothing leaks.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, code, envelope{Status: "error", Message: "something went wrong"})
		return
	}
	respondFail(w, code, err.Error())
}

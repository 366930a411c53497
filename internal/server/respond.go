package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"cadenza/internal/distribution"
	"cadenza/internal/packager"
	"cadenza/internal/release"
)

// respondJSON writes a JSON response with the given status code.
func (cs *CatalogServer) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		cs.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondError sends a structured error response and logs it. Raw error
// detail is echoed to the caller; this is a single-user local tool.
func (cs *CatalogServer) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	logEntry := cs.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": status,
	})
	if err != nil {
		logEntry = logEntry.WithError(err)
	}
	if status >= 500 {
		logEntry.Error(message)
	} else {
		logEntry.Warn(message)
	}

	body := map[string]any{
		"success": false,
		"error":   message,
	}
	if err != nil {
		body["message"] = err.Error()
	}
	cs.respondJSON(w, status, body)
}

// respondDomainError translates store/tracker errors into the HTTP error
// taxonomy: 400 validation, 404 not found, 409 conflict, 500 everything
// else.
func (cs *CatalogServer) respondDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, release.ErrNotFound):
		cs.respondError(w, r, http.StatusNotFound, "Release not found", err)
	case errors.Is(err, distribution.ErrEntryNotFound):
		cs.respondError(w, r, http.StatusNotFound, "Distribution entry not found", err)
	case errors.Is(err, release.ErrDuplicateVersion):
		cs.respondError(w, r, http.StatusConflict, "Duplicate version detected", err)
	case errors.Is(err, distribution.ErrInvalidPath),
		errors.Is(err, distribution.ErrMissingPlatform),
		errors.Is(err, distribution.ErrMissingLabel):
		cs.respondError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, packager.ErrNoAudio):
		cs.respondError(w, r, http.StatusNotFound, err.Error(), nil)
	default:
		cs.respondError(w, r, http.StatusInternalServerError, fallback, err)
	}
}

// decodeJSONBody parses a JSON request body into dst.
func decodeJSONBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

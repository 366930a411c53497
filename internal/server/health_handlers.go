package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Storage   string         `json:"storage"`
	Releases  int            `json:"releaseCount"`
	Details   map[string]any `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (cs *CatalogServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Storage:   "ok",
		Details:   make(map[string]any),
	}

	// Check releases root accessibility
	if err := cs.checkStorageHealth(); err != nil {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_error"] = err.Error()
	}

	// Get release count
	releases, err := cs.store.List()
	if err != nil {
		health.Details["release_count_error"] = err.Error()
	} else {
		health.Releases = len(releases)
	}

	// Set appropriate HTTP status code
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}

// checkStorageHealth validates that the releases root exists and is a
// directory.
func (cs *CatalogServer) checkStorageHealth() error {
	info, err := os.Stat(cs.store.Root())
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("releases root %s is not a directory", cs.store.Root())
	}
	return nil
}

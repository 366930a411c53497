package server

import (
	"fmt"
	"net/http"

	"cadenza/internal/distribution"
	"cadenza/internal/release"
)

// handleDistribution routes the distribution endpoints:
// PATCH /releases/{id}/distribution                   append-or-update
// PATCH /releases/{id}/distribution/{path}/{key}      edit one entry
// DELETE /releases/{id}/distribution/{path}/{key}     delete one entry
func (cs *CatalogServer) handleDistribution(w http.ResponseWriter, r *http.Request, releaseID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPatch:
		cs.handleDistributionUpdate(w, r, releaseID)
	case len(rest) == 2 && r.Method == http.MethodPatch:
		cs.handleDistributionEdit(w, r, releaseID, rest[0], rest[1])
	case len(rest) == 2 && r.Method == http.MethodDelete:
		cs.handleDistributionDelete(w, r, releaseID, rest[0], rest[1])
	default:
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleDistributionUpdate appends an entry to one distribution path, or
// merges it over the existing entry with the same identity. This is the
// idempotence mechanism: logging the same platform action twice updates in
// place instead of duplicating.
func (cs *CatalogServer) handleDistributionUpdate(w http.ResponseWriter, r *http.Request, releaseID string) {
	var body struct {
		Path  string             `json:"path"`
		Entry distribution.Entry `json:"entry"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if body.Path == "" || body.Entry == nil {
		cs.respondError(w, r, http.StatusBadRequest, "Missing required fields",
			fmt.Errorf(`request body must include "path" (release/submit/promote) and "entry"`))
		return
	}
	if !distribution.ValidPath(body.Path) {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid distribution path",
			fmt.Errorf("%q is not valid, use one of: release, submit, promote", body.Path))
		return
	}

	var updated bool
	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		var err error
		updated, err = distribution.AppendOrUpdate(doc, body.Path, body.Entry)
		return err
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to update distribution tracking")
		return
	}

	platform, _ := body.Entry["platform"].(string)
	message := fmt.Sprintf("Added %s to %s", platform, body.Path)
	if updated {
		message = fmt.Sprintf("Updated %s in %s", platform, body.Path)
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      message,
		"distribution": doc["distribution"],
	})
}

// handleDistributionEdit merges patch fields over one entry, located by
// entryId or creation timestamp.
func (cs *CatalogServer) handleDistributionEdit(w http.ResponseWriter, r *http.Request, releaseID, path, key string) {
	var patch distribution.Entry
	if err := decodeJSONBody(r, &patch); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		return distribution.Edit(doc, path, key, patch)
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to update distribution entry")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"distribution": doc["distribution"],
	})
}

// handleDistributionDelete removes one entry, located by entryId or
// creation timestamp.
func (cs *CatalogServer) handleDistributionDelete(w http.ResponseWriter, r *http.Request, releaseID, path, key string) {
	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		return distribution.Delete(doc, path, key)
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to delete distribution entry")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"distribution": doc["distribution"],
		"labelInfo":    doc["labelInfo"],
	})
}

// handleSign marks a release as signed by the label it was submitted to,
// keeping the submit entry and the label info consistent.
func (cs *CatalogServer) handleSign(w http.ResponseWriter, r *http.Request, releaseID string) {
	if r.Method != http.MethodPatch {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var body struct {
		LabelName string `json:"labelName"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if body.LabelName == "" {
		cs.respondError(w, r, http.StatusBadRequest, "Missing labelName", nil)
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		return distribution.MarkSigned(doc, body.LabelName)
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to mark release as signed")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"labelInfo": doc["labelInfo"],
	})
}

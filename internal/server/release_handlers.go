package server

import (
	"net/http"

	"cadenza/internal/release"
)

// handleListReleases returns all releases, newest first. The listing is
// cached; writes through the API and the filesystem watcher invalidate it.
func (cs *CatalogServer) handleListReleases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	docs, ok := cs.cache.GetList()
	if !ok {
		var err error
		docs, err = cs.store.List()
		if err != nil {
			cs.respondError(w, r, http.StatusInternalServerError, "Failed to list releases", err)
			return
		}
		cs.cache.SetList(docs)
	}

	cs.respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(docs),
		"releases": docs,
	})
}

// handleGetRelease returns the full document for one release, with the
// per-category file counts computed on the way out.
func (cs *CatalogServer) handleGetRelease(w http.ResponseWriter, r *http.Request, releaseID string) {
	doc, err := cs.store.LoadExisting(releaseID)
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to fetch release")
		return
	}

	// Computed, never persisted.
	doc["fileCounts"] = doc.FileCounts()

	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"release": doc,
	})
}

// handleDeleteRelease removes the release's entire subtree. Irreversible.
func (cs *CatalogServer) handleDeleteRelease(w http.ResponseWriter, r *http.Request, releaseID string) {
	if err := cs.store.Delete(releaseID); err != nil {
		cs.respondDomainError(w, r, err, "Failed to delete release")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Release deleted",
	})
}

// handleSaveMetadata merge-saves metadata for a release, creating it on
// first save. Accepts the canonical flat body {releaseId, ...fields} as
// well as the legacy wrapped {releaseId, metadata:{...}} shape.
func (cs *CatalogServer) handleSaveMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var body map[string]any
	if err := decodeJSONBody(r, &body); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	releaseID, _ := body["releaseId"].(string)
	partial := release.Document(body)
	if wrapped, ok := body["metadata"].(map[string]any); ok {
		partial = release.Document(wrapped)
		if releaseID == "" {
			releaseID, _ = wrapped["releaseId"].(string)
		}
	}
	if releaseID == "" {
		cs.respondError(w, r, http.StatusBadRequest, "Missing releaseId", nil)
		return
	}

	doc, err := cs.store.Save(releaseID, partial)
	if err != nil {
		cs.respondError(w, r, http.StatusInternalServerError, "Failed to save metadata", err)
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Metadata saved successfully",
		"release": doc,
	})
}

package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"cadenza/internal/release"
)

// handleSongLinks routes the streaming-link sub-resources:
// POST /releases/{id}/song-links             add a link
// DELETE /releases/{id}/song-links/{linkId}  remove a link
func (cs *CatalogServer) handleSongLinks(w http.ResponseWriter, r *http.Request, releaseID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		cs.addSongLink(w, r, releaseID)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		cs.deleteSongLink(w, r, releaseID, rest[0])
	default:
		cs.respondError(w, r, http.StatusNotFound, "Unknown song-links resource", nil)
	}
}

func (cs *CatalogServer) addSongLink(w http.ResponseWriter, r *http.Request, releaseID string) {
	var body struct {
		Platform string `json:"platform"`
		URL      string `json:"url"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if body.Platform == "" || body.URL == "" {
		cs.respondError(w, r, http.StatusBadRequest, "Missing platform or url", nil)
		return
	}

	link := map[string]any{
		"linkId":   uuid.NewString(),
		"platform": body.Platform,
		"url":      body.URL,
		"addedAt":  time.Now().UTC().Format(time.RFC3339Nano),
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		doc.SetSongLinks(append(doc.SongLinks(), link))
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to add song link")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"link":      link,
		"songLinks": doc["songLinks"],
	})
}

func (cs *CatalogServer) deleteSongLink(w http.ResponseWriter, r *http.Request, releaseID, linkID string) {
	found := false
	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		links := doc.SongLinks()
		kept := links[:0:0]
		for _, raw := range links {
			link, ok := raw.(map[string]any)
			if ok && link["linkId"] == linkID {
				found = true
				continue
			}
			kept = append(kept, raw)
		}
		doc.SetSongLinks(kept)
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to delete song link")
		return
	}
	if !found {
		cs.respondError(w, r, http.StatusNotFound, "Song link not found", nil)
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"songLinks": doc["songLinks"],
	})
}

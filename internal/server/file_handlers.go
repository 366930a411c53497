package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// handleFileDownload serves stored files back out:
// GET /releases/{id}/files/{type}/{filename} where type is audio, artwork
// or video. Audio lives under per-version directories, so it is resolved by
// searching every version's audio folder for the filename.
func (cs *CatalogServer) handleFileDownload(w http.ResponseWriter, r *http.Request, releaseID string, rest []string) {
	if r.Method != http.MethodGet {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	if len(rest) != 2 {
		cs.respondError(w, r, http.StatusBadRequest, "Expected /releases/{id}/files/{type}/{filename}", nil)
		return
	}

	fileType := rest[0]
	filename := filepath.Base(rest[1])

	if !cs.store.Exists(releaseID) {
		cs.respondError(w, r, http.StatusNotFound, "Release not found", nil)
		return
	}

	var path string
	switch fileType {
	case "audio":
		path = cs.findVersionAudio(releaseID, filename)
	case "artwork":
		path = filepath.Join(cs.store.ArtworkDir(releaseID), filename)
	case "video":
		path = filepath.Join(cs.store.VideoDir(releaseID), filename)
	default:
		cs.respondError(w, r, http.StatusBadRequest, "Invalid file type", nil)
		return
	}

	if path == "" {
		cs.respondError(w, r, http.StatusNotFound, "File not found", nil)
		return
	}
	if _, err := os.Stat(path); err != nil {
		cs.respondError(w, r, http.StatusNotFound, "File not found", nil)
		return
	}

	http.ServeFile(w, r, path)
}

// findVersionAudio locates an audio file by name across every version of a
// release. Returns the empty string when no version holds it.
func (cs *CatalogServer) findVersionAudio(releaseID, filename string) string {
	versionsDir := filepath.Join(cs.store.ReleasePath(releaseID), "versions")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return ""
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(cs.store.VersionAudioDir(releaseID, entry.Name()), filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// handleArtwork serves the release's first artwork image without the caller
// needing to know its filename. GET /releases/{id}/artwork.
func (cs *CatalogServer) handleArtwork(w http.ResponseWriter, r *http.Request, releaseID string) {
	if r.Method != http.MethodGet {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !cs.store.Exists(releaseID) {
		cs.respondError(w, r, http.StatusNotFound, "Release not found", nil)
		return
	}

	entries, err := os.ReadDir(cs.store.ArtworkDir(releaseID))
	if err != nil {
		cs.respondError(w, r, http.StatusNotFound, "No artwork found", nil)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		http.ServeFile(w, r, filepath.Join(cs.store.ArtworkDir(releaseID), entry.Name()))
		return
	}

	cs.respondError(w, r, http.StatusNotFound, "No artwork found", nil)
}

// handlePackageDownload serves a generated bundle.
// GET /releases/{id}/packages/{filename}.
func (cs *CatalogServer) handlePackageDownload(w http.ResponseWriter, r *http.Request, releaseID string, rest []string) {
	if r.Method != http.MethodGet {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	if len(rest) != 1 {
		cs.respondError(w, r, http.StatusBadRequest, "Expected /releases/{id}/packages/{filename}", nil)
		return
	}

	path := filepath.Join(cs.store.PackagesDir(releaseID), filepath.Base(rest[0]))
	if _, err := os.Stat(path); err != nil {
		cs.respondError(w, r, http.StatusNotFound, "Package not found", nil)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
	http.ServeFile(w, r, path)
}

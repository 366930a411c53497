package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"cadenza/internal/release"
)

// handleNotes routes the release-notes sub-resources:
// PUT /releases/{id}/notes                     save the note text
// POST /releases/{id}/notes/files              attach files to the notes
// GET|DELETE /releases/{id}/notes/files/{name} fetch or remove an attachment
func (cs *CatalogServer) handleNotes(w http.ResponseWriter, r *http.Request, releaseID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPut:
		cs.saveNoteText(w, r, releaseID)
	case len(rest) == 1 && rest[0] == "files" && r.Method == http.MethodPost:
		cs.handleNoteFileUpload(w, r, releaseID)
	case len(rest) == 2 && rest[0] == "files" && r.Method == http.MethodGet:
		cs.serveNoteFile(w, r, releaseID, rest[1])
	case len(rest) == 2 && rest[0] == "files" && r.Method == http.MethodDelete:
		cs.deleteNoteFile(w, r, releaseID, rest[1])
	default:
		cs.respondError(w, r, http.StatusNotFound, "Unknown notes resource", nil)
	}
}

func (cs *CatalogServer) saveNoteText(w http.ResponseWriter, r *http.Request, releaseID string) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		notes := doc.Notes()
		notes["text"] = body.Text
		notes["updatedAt"] = time.Now().UTC().Format(time.RFC3339Nano)
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to save notes")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"notes":   doc["notes"],
	})
}

func (cs *CatalogServer) handleNoteFileUpload(w http.ResponseWriter, r *http.Request, releaseID string) {
	if !cs.store.Exists(releaseID) {
		cs.respondError(w, r, http.StatusNotFound, "Release not found", nil)
		return
	}

	if err := r.ParseMultipartForm(cs.config.MaxUploadBytes()); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var saved []map[string]any
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			filename := filepath.Base(header.Filename)
			if filename == "." || filename == "/" || filename == "" {
				filename = "attachment" + filepath.Ext(header.Filename)
			}
			dest := filepath.Join(cs.store.NotesDir(releaseID), filename)

			if err := copyMultipartFile(header, dest); err != nil {
				cs.respondError(w, r, http.StatusInternalServerError, "Failed to save note attachment", err)
				return
			}

			saved = append(saved, map[string]any{
				"filename":   filename,
				"size":       header.Size,
				"uploadedAt": time.Now().UTC().Format(time.RFC3339Nano),
			})
		}
	}

	if len(saved) == 0 {
		cs.respondError(w, r, http.StatusBadRequest, "No files uploaded", nil)
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		notes := doc.Notes()
		files, _ := notes["files"].([]any)
		for _, descriptor := range saved {
			files = append(files, descriptor)
		}
		notes["files"] = files
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to record note attachments")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Attached %d file(s)", len(saved)),
		"notes":   doc["notes"],
	})
}

func (cs *CatalogServer) serveNoteFile(w http.ResponseWriter, r *http.Request, releaseID, filename string) {
	path := filepath.Join(cs.store.NotesDir(releaseID), filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		cs.respondError(w, r, http.StatusNotFound, "Note attachment not found", nil)
		return
	}
	http.ServeFile(w, r, path)
}

func (cs *CatalogServer) deleteNoteFile(w http.ResponseWriter, r *http.Request, releaseID, filename string) {
	name := filepath.Base(filename)
	path := filepath.Join(cs.store.NotesDir(releaseID), name)
	if _, err := os.Stat(path); err != nil {
		cs.respondError(w, r, http.StatusNotFound, "Note attachment not found", nil)
		return
	}
	if err := os.Remove(path); err != nil {
		cs.respondError(w, r, http.StatusInternalServerError, "Failed to delete note attachment", err)
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		notes := doc.Notes()
		files, _ := notes["files"].([]any)
		kept := files[:0:0]
		for _, raw := range files {
			descriptor, ok := raw.(map[string]any)
			if ok && descriptor["filename"] == name {
				continue
			}
			kept = append(kept, raw)
		}
		notes["files"] = kept
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to record attachment deletion")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Note attachment deleted",
		"notes":   doc["notes"],
	})
}

package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"cadenza/internal/release"
)

// handleLabelDeal routes the label-deal sub-resources:
// POST /releases/{id}/label-deal/files                 upload contract docs
// GET|DELETE /releases/{id}/label-deal/files/{name}    fetch or remove one
// PUT|DELETE /releases/{id}/label-deal/contact         label contact details
func (cs *CatalogServer) handleLabelDeal(w http.ResponseWriter, r *http.Request, releaseID string, rest []string) {
	switch {
	case len(rest) == 1 && rest[0] == "files" && r.Method == http.MethodPost:
		cs.handleContractUpload(w, r, releaseID)
	case len(rest) == 2 && rest[0] == "files" && r.Method == http.MethodGet:
		cs.serveContractFile(w, r, releaseID, rest[1])
	case len(rest) == 2 && rest[0] == "files" && r.Method == http.MethodDelete:
		cs.deleteContractFile(w, r, releaseID, rest[1])
	case len(rest) == 1 && rest[0] == "contact" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		cs.saveLabelContact(w, r, releaseID)
	case len(rest) == 1 && rest[0] == "contact" && r.Method == http.MethodDelete:
		cs.deleteLabelContact(w, r, releaseID)
	default:
		cs.respondError(w, r, http.StatusNotFound, "Unknown label-deal resource", nil)
	}
}

// handleContractUpload stores uploaded contract documents under label-deal/
// and records descriptors in labelInfo.contractDocuments.
func (cs *CatalogServer) handleContractUpload(w http.ResponseWriter, r *http.Request, releaseID string) {
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
				filename = "contract" + filepath.Ext(header.Filename)
			}
			dest := filepath.Join(cs.store.LabelDealDir(releaseID), filename)

			if err := copyMultipartFile(header, dest); err != nil {
				cs.respondError(w, r, http.StatusInternalServerError, "Failed to save contract document", err)
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
		info := doc.LabelInfo()
		documents, _ := info["contractDocuments"].([]any)
		for _, descriptor := range saved {
			documents = append(documents, descriptor)
		}
		info["contractDocuments"] = documents
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to record contract documents")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Uploaded %d contract document(s)", len(saved)),
		"labelInfo": doc["labelInfo"],
	})
}

func (cs *CatalogServer) serveContractFile(w http.ResponseWriter, r *http.Request, releaseID, filename string) {
	path := filepath.Join(cs.store.LabelDealDir(releaseID), filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		cs.respondError(w, r, http.StatusNotFound, "Contract document not found", nil)
		return
	}
	http.ServeFile(w, r, path)
}

func (cs *CatalogServer) deleteContractFile(w http.ResponseWriter, r *http.Request, releaseID, filename string) {
	name := filepath.Base(filename)
	path := filepath.Join(cs.store.LabelDealDir(releaseID), name)
	if _, err := os.Stat(path); err != nil {
		cs.respondError(w, r, http.StatusNotFound, "Contract document not found", nil)
		return
	}
	if err := os.Remove(path); err != nil {
		cs.respondError(w, r, http.StatusInternalServerError, "Failed to delete contract document", err)
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		info := doc.LabelInfo()
		documents, _ := info["contractDocuments"].([]any)
		kept := documents[:0:0]
		for _, raw := range documents {
			descriptor, ok := raw.(map[string]any)
			if ok && descriptor["filename"] == name {
				continue
			}
			kept = append(kept, raw)
		}
		info["contractDocuments"] = kept
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to record contract deletion")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Contract document deleted",
		"labelInfo": doc["labelInfo"],
	})
}

func (cs *CatalogServer) saveLabelContact(w http.ResponseWriter, r *http.Request, releaseID string) {
	var contact map[string]any
	if err := decodeJSONBody(r, &contact); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		doc.LabelInfo()["contact"] = contact
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to save label contact")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"labelInfo": doc["labelInfo"],
	})
}

func (cs *CatalogServer) deleteLabelContact(w http.ResponseWriter, r *http.Request, releaseID string) {
	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		doc.LabelInfo()["contact"] = nil
		return nil
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to delete label contact")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"labelInfo": doc["labelInfo"],
	})
}

// copyMultipartFile writes one multipart part to dest, creating the parent
// directory.
func copyMultipartFile(header *multipart.FileHeader, dest string) error {
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

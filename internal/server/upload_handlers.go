package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"cadenza/internal/media"
	"cadenza/internal/release"
	"cadenza/pkg/models"
)

// uploadedFile echoes where one uploaded file landed.
type uploadedFile struct {
	OriginalName string `json:"originalName"`
	SavedTo      string `json:"savedTo"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
}

// audioValidation reports the validator result for one audio file.
type audioValidation struct {
	File string `json:"file"`
	models.AudioInfo
}

// handleUpload receives a multipart upload for one release version. Files
// are classified into audio/artwork/video, audio must pass validation, and
// the resulting descriptors are recorded on the release document. The
// request is all-or-nothing: the first failure deletes every file written
// for this request.
func (cs *CatalogServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	releaseID := strings.TrimSpace(r.URL.Query().Get("releaseId"))
	if releaseID == "" {
		cs.respondError(w, r, http.StatusBadRequest, "Missing releaseId parameter", nil)
		return
	}
	artist := r.URL.Query().Get("artist")
	title := r.URL.Query().Get("title")
	genre := r.URL.Query().Get("genre")
	versionName := r.URL.Query().Get("versionName")
	versionID := release.VersionID(versionName)

	// Duplicate detection runs before anything is written: a version whose
	// audio directory already holds files cannot be uploaded again.
	if cs.store.HasVersionAudio(releaseID, versionID) {
		cs.respondError(w, r, http.StatusConflict, "Duplicate version detected",
			fmt.Errorf("version %q of release %q already has stored audio; delete it or use a different version name", versionID, releaseID))
		return
	}

	if err := r.ParseMultipartForm(cs.config.MaxUploadBytes()); err != nil {
		cs.respondError(w, r, http.StatusBadRequest, "Failed to parse upload form", err)
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		cs.respondError(w, r, http.StatusBadRequest, "No files provided", nil)
		return
	}

	// Paths written during this request, removed again on any failure so no
	// half-uploaded release is left behind.
	var written []string
	cleanup := func() {
		for _, path := range written {
			os.Remove(path)
		}
	}

	var files release.VersionFiles
	var uploaded []uploadedFile
	var validations []audioValidation
	var firstAudioPath string

	// Files are accepted from any form field name.
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			mimeType := header.Header.Get("Content-Type")
			class := media.Classify(mimeType, header.Filename)

			destPath, err := cs.saveUploadedFile(releaseID, versionID, class, header)
			if err != nil {
				cleanup()
				cs.respondError(w, r, http.StatusInternalServerError, "Failed to save uploaded file", err)
				return
			}
			written = append(written, destPath)

			info := models.FileInfo{
				Filename: filepath.Base(destPath),
				Size:     header.Size,
				MimeType: mimeType,
			}

			switch class {
			case media.ClassAudio:
				audio, err := media.ValidateAudio(destPath)
				if err != nil {
					cleanup()
					cs.logger.WithFields(logrus.Fields{
						"release_id": releaseID,
						"file":       header.Filename,
					}).WithError(err).Warn("Audio validation failed")
					cs.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
						"success": false,
						"error":   "Audio file validation failed",
						"file":    header.Filename,
						"reason":  err.Error(),
					})
					return
				}
				info.Duration = audio.Duration
				info.Bitrate = audio.Bitrate
				info.SampleRate = audio.SampleRate
				info.Channels = audio.Channels
				info.Codec = audio.Codec
				files.Audio = append(files.Audio, info)
				validations = append(validations, audioValidation{File: header.Filename, AudioInfo: audio})
				if firstAudioPath == "" {
					firstAudioPath = destPath
				}

			case media.ClassArtwork:
				files.Artwork = append(files.Artwork, info)
			case media.ClassVideo:
				files.Video = append(files.Video, info)
			}

			uploaded = append(uploaded, uploadedFile{
				OriginalName: header.Filename,
				SavedTo:      destPath,
				Size:         header.Size,
				Mimetype:     mimeType,
			})
		}
	}

	// Embedded tags fill in whatever the uploader left blank.
	if firstAudioPath != "" && (artist == "" || title == "" || genre == "") {
		tags := media.ReadTags(firstAudioPath)
		if artist == "" {
			artist = tags.Artist
		}
		if title == "" {
			title = tags.Title
		}
		if genre == "" {
			genre = tags.Genre
		}
	}

	partial := release.Document{}
	if artist != "" {
		partial["artist"] = artist
	}
	if title != "" {
		partial["title"] = title
	}
	if genre != "" {
		partial["genre"] = genre
	}
	if _, err := cs.store.Save(releaseID, partial); err != nil {
		cleanup()
		cs.respondError(w, r, http.StatusInternalServerError, "Failed to save release metadata", err)
		return
	}

	if len(files.Audio)+len(files.Artwork)+len(files.Video) > 0 {
		if _, err := cs.store.RegisterVersion(releaseID, versionName, files); err != nil {
			cleanup()
			cs.respondDomainError(w, r, err, "Failed to record version")
			return
		}
	}

	cs.cache.Invalidate()
	cs.logger.WithFields(logrus.Fields{
		"release_id": releaseID,
		"version_id": versionID,
		"files":      len(uploaded),
	}).Info("Upload complete")

	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"releaseId":       releaseID,
		"artist":          artist,
		"title":           title,
		"genre":           genre,
		"versionId":       versionID,
		"filesUploaded":   uploaded,
		"audioValidation": validations,
	})
}

// saveUploadedFile streams one multipart file into the directory its class
// dictates, keeping the original filename.
func (cs *CatalogServer) saveUploadedFile(releaseID, versionID string, class media.FileClass, header *multipart.FileHeader) (string, error) {
	var destDir string
	switch class {
	case media.ClassAudio:
		destDir = cs.store.VersionAudioDir(releaseID, versionID)
	case media.ClassArtwork:
		destDir = cs.store.ArtworkDir(releaseID)
	case media.ClassVideo:
		destDir = cs.store.VideoDir(releaseID)
	default:
		destDir = filepath.Join(cs.store.ReleasePath(releaseID), "other")
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", class, err)
	}

	// Sanitize filename to prevent path traversal.
	safeFilename := filepath.Base(header.Filename)
	if safeFilename == "." || safeFilename == "/" || safeFilename == "" {
		safeFilename = "uploaded_file" + filepath.Ext(header.Filename)
	}
	destPath := filepath.Join(destDir, safeFilename)

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write uploaded file: %w", err)
	}
	return destPath, nil
}

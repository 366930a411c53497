package server

import (
	"net/http"

	"cadenza/internal/distribution"
	"cadenza/internal/release"
)

// handleSoundCloudPackage builds a ready-to-upload SoundCloud bundle for one
// version of a release and logs the action on the release distribution path.
// POST /distribute/soundcloud/package?releaseId=...&versionId=...&privacy=...
func (cs *CatalogServer) handleSoundCloudPackage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cs.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	releaseID := r.URL.Query().Get("releaseId")
	if releaseID == "" {
		cs.respondError(w, r, http.StatusBadRequest, "Missing releaseId", nil)
		return
	}
	versionID := r.URL.Query().Get("versionId")
	if versionID == "" {
		versionID = release.PrimaryVersionID
	}
	privacy := r.URL.Query().Get("privacy")

	packagePath, err := cs.packager.BuildSoundCloudPackage(releaseID, versionID, privacy)
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to build SoundCloud package")
		return
	}

	doc, err := cs.store.Update(releaseID, func(doc release.Document) error {
		_, err := distribution.AppendOrUpdate(doc, distribution.PathRelease, distribution.Entry{
			"platform":  "SoundCloud",
			"versionId": versionID,
			"status":    "Package Generated",
		})
		return err
	})
	if err != nil {
		cs.respondDomainError(w, r, err, "Failed to log package generation")
		return
	}

	cs.cache.Invalidate()
	cs.respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "SoundCloud package generated",
		"packagePath":  packagePath,
		"distribution": doc["distribution"],
	})
}

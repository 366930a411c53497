package release

import (
	"os"

	"cadenza/pkg/models"
)

// VersionFiles groups the classified, validated file descriptors being
// attached to one version of a release.
type VersionFiles struct {
	Audio   []models.FileInfo
	Artwork []models.FileInfo
	Video   []models.FileInfo
}

// HasVersionAudio reports whether the version's audio directory already
// holds files. This is the duplicate-version signal: the stored audio, not
// the metadata key, decides whether a version is taken.
func (s *Store) HasVersionAudio(releaseID, versionID string) bool {
	entries, err := os.ReadDir(s.VersionAudioDir(releaseID, versionID))
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return true
		}
	}
	return false
}

// RegisterVersion records a version's file descriptors into the release
// document under versions[versionId]. The version id is derived from the
// human name; registering audio onto a version that already has audio
// descriptors fails with ErrDuplicateVersion, leaving the existing version
// untouched. Returns the version id.
func (s *Store) RegisterVersion(releaseID, versionName string, files VersionFiles) (string, error) {
	versionID := VersionID(versionName)

	_, err := s.Update(releaseID, func(doc Document) error {
		versions := doc.Versions()

		version, ok := versions[versionID].(map[string]any)
		if !ok {
			version = map[string]any{
				"versionId":   versionID,
				"versionName": displayName(versionName),
				"createdAt":   now(),
				"files": map[string]any{
					"audio":   []any{},
					"artwork": []any{},
					"video":   []any{},
				},
			}
			versions[versionID] = version
		}

		bundle, ok := version["files"].(map[string]any)
		if !ok {
			bundle = map[string]any{"audio": []any{}, "artwork": []any{}, "video": []any{}}
			version["files"] = bundle
		}

		if len(files.Audio) > 0 {
			if existing, _ := bundle["audio"].([]any); len(existing) > 0 {
				return ErrDuplicateVersion
			}
		}

		appendDescriptors(bundle, "audio", files.Audio)
		appendDescriptors(bundle, "artwork", files.Artwork)
		appendDescriptors(bundle, "video", files.Video)
		return nil
	})
	if err != nil {
		return "", err
	}
	return versionID, nil
}

// displayName normalizes the stored human version name.
func displayName(versionName string) string {
	if VersionID(versionName) == PrimaryVersionID {
		return "Primary Version"
	}
	return versionName
}

func appendDescriptors(bundle map[string]any, category string, descriptors []models.FileInfo) {
	if len(descriptors) == 0 {
		return
	}
	list, _ := bundle[category].([]any)
	for _, desc := range descriptors {
		list = append(list, toJSONValue(desc))
	}
	bundle[category] = list
}

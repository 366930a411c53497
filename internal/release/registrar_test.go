package release

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cadenza/pkg/models"
)

func TestRegisterVersion(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("my-release", Document{"artist": "A"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	versionID, err := store.RegisterVersion("my-release", "Extended Mix", VersionFiles{
		Audio:   []models.FileInfo{{Filename: "track.mp3", Size: 1024, MimeType: "audio/mpeg", Duration: 210}},
		Artwork: []models.FileInfo{{Filename: "cover.png", Size: 2048, MimeType: "image/png"}},
	})
	if err != nil {
		t.Fatalf("RegisterVersion failed: %v", err)
	}
	if versionID != "extended-mix" {
		t.Errorf("versionID = %q, want extended-mix", versionID)
	}

	doc, err := store.LoadExisting("my-release")
	if err != nil {
		t.Fatalf("LoadExisting failed: %v", err)
	}
	version, ok := doc.Version("extended-mix")
	if !ok {
		t.Fatal("version record not stored")
	}
	if version["versionName"] != "Extended Mix" {
		t.Errorf("versionName = %v, want Extended Mix", version["versionName"])
	}
	if _, ok := version["createdAt"].(string); !ok {
		t.Error("version has no createdAt")
	}

	files := version["files"].(map[string]any)
	audio := files["audio"].([]any)
	if len(audio) != 1 {
		t.Fatalf("audio descriptors = %d, want 1", len(audio))
	}
	descriptor := audio[0].(map[string]any)
	if descriptor["filename"] != "track.mp3" {
		t.Errorf("filename = %v, want track.mp3", descriptor["filename"])
	}
	if descriptor["duration"] != float64(210) {
		t.Errorf("duration = %v, want 210", descriptor["duration"])
	}
}

func TestRegisterVersionPrimaryName(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("my-release", Document{"artist": "A"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	versionID, err := store.RegisterVersion("my-release", "", VersionFiles{
		Audio: []models.FileInfo{{Filename: "track.wav"}},
	})
	if err != nil {
		t.Fatalf("RegisterVersion failed: %v", err)
	}
	if versionID != PrimaryVersionID {
		t.Errorf("versionID = %q, want primary", versionID)
	}

	doc, _ := store.LoadExisting("my-release")
	version, _ := doc.Version(PrimaryVersionID)
	if version["versionName"] != "Primary Version" {
		t.Errorf("versionName = %v, want Primary Version", version["versionName"])
	}
}

func TestRegisterVersionDuplicateAudio(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("my-release", Document{"artist": "A"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.RegisterVersion("my-release", "Club Mix", VersionFiles{
		Audio: []models.FileInfo{{Filename: "original.mp3"}},
	}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := store.RegisterVersion("my-release", "Club Mix", VersionFiles{
		Audio: []models.FileInfo{{Filename: "replacement.mp3"}},
	})
	if !errors.Is(err, ErrDuplicateVersion) {
		t.Fatalf("got %v, want ErrDuplicateVersion", err)
	}

	// The existing version must be untouched.
	doc, _ := store.LoadExisting("my-release")
	version, _ := doc.Version("club-mix")
	audio := version["files"].(map[string]any)["audio"].([]any)
	if len(audio) != 1 {
		t.Fatalf("audio descriptors = %d, want 1", len(audio))
	}
	if audio[0].(map[string]any)["filename"] != "original.mp3" {
		t.Error("existing audio descriptor was replaced")
	}
}

func TestRegisterVersionArtworkOntoExisting(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("my-release", Document{"artist": "A"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.RegisterVersion("my-release", "", VersionFiles{
		Audio: []models.FileInfo{{Filename: "track.mp3"}},
	}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	// Artwork-only registration onto a version with audio is allowed.
	if _, err := store.RegisterVersion("my-release", "", VersionFiles{
		Artwork: []models.FileInfo{{Filename: "cover.jpg"}},
	}); err != nil {
		t.Fatalf("artwork register failed: %v", err)
	}

	doc, _ := store.LoadExisting("my-release")
	version, _ := doc.Version(PrimaryVersionID)
	files := version["files"].(map[string]any)
	if got := len(files["audio"].([]any)); got != 1 {
		t.Errorf("audio descriptors = %d, want 1", got)
	}
	if got := len(files["artwork"].([]any)); got != 1 {
		t.Errorf("artwork descriptors = %d, want 1", got)
	}
}

func TestHasVersionAudio(t *testing.T) {
	store := newTestStore(t)

	if store.HasVersionAudio("my-release", "primary") {
		t.Error("missing directory reported as having audio")
	}

	dir := store.VersionAudioDir("my-release", "primary")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if store.HasVersionAudio("my-release", "primary") {
		t.Error("empty directory reported as having audio")
	}

	if err := os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !store.HasVersionAudio("my-release", "primary") {
		t.Error("directory with a file reported as empty")
	}
}

func TestFileCounts(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("my-release", Document{"artist": "A"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.RegisterVersion("my-release", "", VersionFiles{
		Audio:   []models.FileInfo{{Filename: "track.mp3"}},
		Artwork: []models.FileInfo{{Filename: "cover.png"}},
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	// Second version shares the artwork; the shared file counts once.
	if _, err := store.RegisterVersion("my-release", "Extended Mix", VersionFiles{
		Audio:   []models.FileInfo{{Filename: "track-extended.mp3"}},
		Artwork: []models.FileInfo{{Filename: "cover.png"}},
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	doc, _ := store.LoadExisting("my-release")
	counts := doc.FileCounts()
	if counts["audio"] != 2 {
		t.Errorf("audio count = %d, want 2", counts["audio"])
	}
	if counts["artwork"] != 1 {
		t.Errorf("artwork count = %d, want 1", counts["artwork"])
	}
	if counts["video"] != 0 {
		t.Errorf("video count = %d, want 0", counts["video"])
	}
}

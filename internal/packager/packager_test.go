package packager

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"cadenza/internal/release"
)

func newTestPackager(t *testing.T) (*Packager, *release.Store) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store, err := release.NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return New(store, logger), store
}

func seedRelease(t *testing.T, store *release.Store, releaseID string) {
	t.Helper()

	if _, err := store.Save(releaseID, release.Document{
		"artist":      "Test Artist",
		"title":       "Test Title",
		"genre":       "House",
		"releaseDate": "2026-09-01",
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	audioDir := store.VersionAudioDir(releaseID, "primary")
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(audioDir, "track.wav"), []byte("audio-bytes"), 0644); err != nil {
		t.Fatalf("write audio failed: %v", err)
	}

	artworkDir := store.ArtworkDir(releaseID)
	if err := os.MkdirAll(artworkDir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(artworkDir, "cover.png"), []byte("png-bytes"), 0644); err != nil {
		t.Fatalf("write artwork failed: %v", err)
	}
}

func TestBuildSoundCloudPackage(t *testing.T) {
	p, store := newTestPackager(t)
	seedRelease(t, store, "my-release")

	relPath, err := p.BuildSoundCloudPackage("my-release", "primary", "")
	if err != nil {
		t.Fatalf("BuildSoundCloudPackage failed: %v", err)
	}
	if relPath != filepath.Join("my-release", "packages", "soundcloud-primary.zip") {
		t.Errorf("unexpected package path %q", relPath)
	}

	zr, err := zip.OpenReader(filepath.Join(store.Root(), relPath))
	if err != nil {
		t.Fatalf("opening package failed: %v", err)
	}
	defer zr.Close()

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s failed: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s failed: %v", f.Name, err)
		}
		contents[f.Name] = string(data)
	}

	if contents["audio/track.wav"] != "audio-bytes" {
		t.Error("audio file missing or corrupted in package")
	}
	if contents["artwork/cover.png"] != "png-bytes" {
		t.Error("artwork missing or corrupted in package")
	}

	notes, ok := contents["upload-notes.txt"]
	if !ok {
		t.Fatal("upload-notes.txt missing from package")
	}
	for _, want := range []string{
		"Title: Test Artist - Test Title",
		"Genre: House",
		"Privacy: public",
		"Release date: 2026-09-01",
	} {
		if !strings.Contains(notes, want) {
			t.Errorf("upload notes missing %q:\n%s", want, notes)
		}
	}
}

func TestBuildSoundCloudPackagePrivacy(t *testing.T) {
	p, store := newTestPackager(t)
	seedRelease(t, store, "my-release")

	relPath, err := p.BuildSoundCloudPackage("my-release", "primary", "private")
	if err != nil {
		t.Fatalf("BuildSoundCloudPackage failed: %v", err)
	}

	zr, err := zip.OpenReader(filepath.Join(store.Root(), relPath))
	if err != nil {
		t.Fatalf("opening package failed: %v", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "upload-notes.txt" {
			continue
		}
		rc, _ := f.Open()
		data, _ := io.ReadAll(rc)
		rc.Close()
		if !strings.Contains(string(data), "Privacy: private") {
			t.Errorf("privacy not honored:\n%s", data)
		}
		return
	}
	t.Fatal("upload-notes.txt missing from package")
}

func TestBuildSoundCloudPackageErrors(t *testing.T) {
	p, store := newTestPackager(t)

	t.Run("missing release", func(t *testing.T) {
		if _, err := p.BuildSoundCloudPackage("ghost", "primary", ""); !errors.Is(err, release.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("no audio", func(t *testing.T) {
		if _, err := store.Save("silent", release.Document{"artist": "A"}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if _, err := p.BuildSoundCloudPackage("silent", "primary", ""); !errors.Is(err, ErrNoAudio) {
			t.Errorf("got %v, want ErrNoAudio", err)
		}
	})
}

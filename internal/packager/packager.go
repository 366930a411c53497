// Package packager builds platform upload bundles: a zip holding a
// version's audio, the release artwork and a generated notes file, ready to
// drag into a platform's upload form.
package packager

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"cadenza/internal/release"
)

// ErrNoAudio indicates the requested version has no stored audio to bundle.
var ErrNoAudio = errors.New("version has no audio files")

// Packager assembles distribution bundles under a release's packages
// directory.
type Packager struct {
	store  *release.Store
	logger *logrus.Logger
}

// New creates a packager over the release store.
func New(store *release.Store, logger *logrus.Logger) *Packager {
	return &Packager{store: store, logger: logger}
}

// BuildSoundCloudPackage zips the version's audio files, the release
// artwork and a generated upload-notes file into
// packages/soundcloud-<versionId>.zip. Returns the package path relative to
// the releases root.
func (p *Packager) BuildSoundCloudPackage(releaseID, versionID, privacy string) (string, error) {
	doc, err := p.store.LoadExisting(releaseID)
	if err != nil {
		return "", err
	}

	audioDir := p.store.VersionAudioDir(releaseID, versionID)
	audioFiles, err := listFiles(audioDir)
	if err != nil || len(audioFiles) == 0 {
		return "", ErrNoAudio
	}

	packagesDir := p.store.PackagesDir(releaseID)
	if err := os.MkdirAll(packagesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create packages directory: %w", err)
	}

	name := fmt.Sprintf("soundcloud-%s.zip", versionID)
	zipPath := filepath.Join(packagesDir, name)

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to create package file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	for _, file := range audioFiles {
		if err := addFile(zw, filepath.Join(audioDir, file), "audio/"+file); err != nil {
			zw.Close()
			os.Remove(zipPath)
			return "", err
		}
	}

	// Artwork is shared between versions and optional.
	artworkDir := p.store.ArtworkDir(releaseID)
	if artworkFiles, err := listFiles(artworkDir); err == nil {
		for _, file := range artworkFiles {
			if err := addFile(zw, filepath.Join(artworkDir, file), "artwork/"+file); err != nil {
				zw.Close()
				os.Remove(zipPath)
				return "", err
			}
		}
	}

	notes, err := zw.Create("upload-notes.txt")
	if err != nil {
		zw.Close()
		os.Remove(zipPath)
		return "", fmt.Errorf("failed to add upload notes: %w", err)
	}
	if _, err := io.WriteString(notes, uploadNotes(doc, privacy)); err != nil {
		zw.Close()
		os.Remove(zipPath)
		return "", fmt.Errorf("failed to write upload notes: %w", err)
	}

	if err := zw.Close(); err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("failed to finish package: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"release_id": releaseID,
		"version_id": versionID,
		"package":    name,
	}).Info("SoundCloud package generated")

	return filepath.Join(filepath.Base(p.store.ReleasePath(releaseID)), "packages", name), nil
}

// uploadNotes renders the text file included in every bundle so the manual
// upload has title, genre and privacy at hand.
func uploadNotes(doc release.Document, privacy string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s - %s\n", doc.String("artist"), doc.String("title"))
	fmt.Fprintf(&b, "Genre: %s\n", doc.String("genre"))
	if privacy == "" {
		privacy = "public"
	}
	fmt.Fprintf(&b, "Privacy: %s\n", privacy)
	if date := doc.String("releaseDate"); date != "" {
		fmt.Fprintf(&b, "Release date: %s\n", date)
	}
	return b.String()
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to package: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy %s into package: %w", name, err)
	}
	return nil
}

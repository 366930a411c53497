package release

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// Store is the single point of truth for release documents on disk. Every
// mutation funnels through it: documents are read, modified in memory and
// written back whole, serialized per release by an in-process mutex and
// persisted via temp-file-plus-rename so a crash never leaves a truncated
// metadata.json behind.
type Store struct {
	root   string
	logger *logrus.Logger
	lock   *flock.Flock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore opens the releases root, creating it if needed, and takes an
// advisory lock so two processes cannot operate on the same tree.
func NewStore(root string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create releases root: %w", err)
	}

	lock := flock.New(filepath.Join(root, ".cadenza.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire releases lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("releases root %s is in use by another cadenza instance", root)
	}

	return &Store{
		root:   root,
		logger: logger,
		lock:   lock,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the advisory lock on the releases root.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Root returns the releases root directory.
func (s *Store) Root() string {
	return s.root
}

// ReleasePath returns the subtree directory for one release. The id is
// reduced to its base name so a crafted id cannot escape the root.
func (s *Store) ReleasePath(releaseID string) string {
	return filepath.Join(s.root, filepath.Base(releaseID))
}

// MetadataPath returns the metadata.json path for one release.
func (s *Store) MetadataPath(releaseID string) string {
	return filepath.Join(s.ReleasePath(releaseID), "metadata.json")
}

// ArtworkDir returns the shared artwork directory for one release.
func (s *Store) ArtworkDir(releaseID string) string {
	return filepath.Join(s.ReleasePath(releaseID), "artwork")
}

// VideoDir returns the shared video directory for one release.
func (s *Store) VideoDir(releaseID string) string {
	return filepath.Join(s.ReleasePath(releaseID), "video")
}

// VersionAudioDir returns the audio directory for one version of a release.
func (s *Store) VersionAudioDir(releaseID, versionID string) string {
	return filepath.Join(s.ReleasePath(releaseID), "versions", filepath.Base(versionID), "audio")
}

// PackagesDir returns the generated-bundle directory for one release.
func (s *Store) PackagesDir(releaseID string) string {
	return filepath.Join(s.ReleasePath(releaseID), "packages")
}

// LabelDealDir returns the contract-document directory for one release.
func (s *Store) LabelDealDir(releaseID string) string {
	return filepath.Join(s.ReleasePath(releaseID), "label-deal")
}

// NotesDir returns the note-attachment directory for one release.
func (s *Store) NotesDir(releaseID string) string {
	return filepath.Join(s.ReleasePath(releaseID), "notes")
}

// Exists reports whether the release subtree is present on disk.
func (s *Store) Exists(releaseID string) bool {
	_, err := os.Stat(s.ReleasePath(releaseID))
	return err == nil
}

// lockFor returns the serialization mutex for one release id.
func (s *Store) lockFor(releaseID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[releaseID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[releaseID] = lock
	}
	return lock
}

// Load parses the release document if present. A missing document yields an
// empty default rather than an error; malformed JSON aborts the operation.
func (s *Store) Load(releaseID string) (Document, error) {
	doc, err := s.readDocument(releaseID)
	if os.IsNotExist(err) {
		return NewDocument(releaseID), nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadExisting parses the release document, failing with ErrNotFound when
// the release has never been saved.
func (s *Store) LoadExisting(releaseID string) (Document, error) {
	doc, err := s.readDocument(releaseID)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Save shallow-merges the partial update over the stored document (creating
// the release on first save), stamps updatedAt and writes the whole file
// back. The returned document is the new on-disk snapshot.
func (s *Store) Save(releaseID string, partial Document) (Document, error) {
	lock := s.lockFor(releaseID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.Load(releaseID)
	if err != nil {
		return nil, err
	}

	doc.Merge(partial)
	doc["releaseId"] = releaseID
	doc.EnsureSections()
	if doc.String("createdAt") == "" {
		doc["createdAt"] = now()
	}
	doc["updatedAt"] = now()

	if err := s.writeDocument(releaseID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Update applies fn to the stored document under the release's lock and
// writes the result back. The release must already exist.
func (s *Store) Update(releaseID string, fn func(Document) error) (Document, error) {
	lock := s.lockFor(releaseID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.LoadExisting(releaseID)
	if err != nil {
		return nil, err
	}

	if err := fn(doc); err != nil {
		return nil, err
	}

	doc["updatedAt"] = now()
	if err := s.writeDocument(releaseID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the release's entire subtree. Unconditional and
// irreversible.
func (s *Store) Delete(releaseID string) error {
	if !s.Exists(releaseID) {
		return ErrNotFound
	}
	if err := os.RemoveAll(s.ReleasePath(releaseID)); err != nil {
		return fmt.Errorf("failed to delete release %s: %w", releaseID, err)
	}
	s.logger.WithField("release_id", releaseID).Info("Release deleted")
	return nil
}

// List returns every release document under the root, newest first by
// createdAt. Folders without a readable metadata.json are skipped with a
// warning, matching how the catalogue has always tolerated stray folders.
func (s *Store) List() ([]Document, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read releases root: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		doc, err := s.readDocument(entry.Name())
		if err != nil {
			s.logger.WithError(err).WithField("release_id", entry.Name()).Warn("Skipping release with unreadable metadata")
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].String("createdAt") > docs[j].String("createdAt")
	})

	return docs, nil
}

// readDocument reads and parses metadata.json for one release, unwrapping
// the legacy {metadata:{...}} document shape when it is encountered.
func (s *Store) readDocument(releaseID string) (Document, error) {
	data, err := os.ReadFile(s.MetadataPath(releaseID))
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed metadata for %s: %w", releaseID, err)
	}

	return migrate(doc, releaseID), nil
}

// migrate converts a legacy wrapped document to the canonical flat shape.
// Early revisions of the catalogue wrote {releaseId, metadata:{...}}; the
// flat shape is canonical and the wrapper is folded away on read so the next
// save persists the migrated form.
func migrate(doc Document, releaseID string) Document {
	inner, ok := doc["metadata"].(map[string]any)
	if !ok {
		return doc
	}

	flat := Document(inner)
	for key, value := range doc {
		if key == "metadata" {
			continue
		}
		if _, exists := flat[key]; !exists {
			flat[key] = value
		}
	}
	if flat.String("releaseId") == "" {
		flat["releaseId"] = releaseID
	}
	return flat
}

// writeDocument persists the document atomically: write a temp file in the
// release directory, then rename it over metadata.json.
func (s *Store) writeDocument(releaseID string, doc Document) error {
	dir := s.ReleasePath(releaseID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create release directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", releaseID, err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metadata for %s: %w", releaseID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpName, s.MetadataPath(releaseID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata for %s: %w", releaseID, err)
	}
	return nil
}

// now returns the timestamp format used throughout the documents.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

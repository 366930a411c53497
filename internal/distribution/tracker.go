// Package distribution tracks where a release has been sent: platform
// uploads (release), label submissions (submit) and marketing content
// (promote). Entries are free-form records living inside the release
// document; the tracker owns their identity and merge rules.
package distribution

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadenza/internal/release"
)

const (
	// PathRelease tracks platform upload attempts.
	PathRelease = "release"
	// PathSubmit tracks label submission attempts.
	PathSubmit = "submit"
	// PathPromote tracks marketing content.
	PathPromote = "promote"
)

var (
	ErrInvalidPath     = errors.New("invalid distribution path")
	ErrMissingPlatform = errors.New("entry must include a platform")
	ErrMissingLabel    = errors.New("submit entries must include a label")
	ErrEntryNotFound   = errors.New("distribution entry not found")
)

// Entry is a single free-form distribution record.
type Entry = map[string]any

// ValidPath reports whether path names one of the three tracked lists.
func ValidPath(path string) bool {
	return path == PathRelease || path == PathSubmit || path == PathPromote
}

// AppendOrUpdate adds the entry to the named list, or merges it over an
// existing entry with the same identity. The identity key depends on the
// path: (platform, versionId) for release, (platform, label) for submit and
// platform alone for promote. On a merge the original timestamp and entryId
// are preserved unless the new entry explicitly provides a timestamp; on an
// append the entry gets a fresh timestamp and a generated entryId. Reports
// whether an existing entry was updated in place.
func AppendOrUpdate(doc release.Document, path string, entry Entry) (bool, error) {
	if !ValidPath(path) {
		return false, ErrInvalidPath
	}
	platform, _ := entry["platform"].(string)
	if platform == "" {
		return false, ErrMissingPlatform
	}
	if path == PathSubmit {
		if label, _ := entry["label"].(string); label == "" {
			return false, ErrMissingLabel
		}
	}

	list := doc.DistributionList(path)
	for i, raw := range list {
		existing, ok := raw.(Entry)
		if !ok || !sameIdentity(path, existing, entry) {
			continue
		}

		timestamp := existing["timestamp"]
		entryID := existing["entryId"]
		for key, value := range entry {
			existing[key] = value
		}
		if _, provided := entry["timestamp"]; !provided {
			existing["timestamp"] = timestamp
		}
		existing["entryId"] = entryID
		existing["updatedAt"] = now()
		list[i] = existing
		doc.SetDistributionList(path, list)
		return true, nil
	}

	entry["entryId"] = uuid.NewString()
	entry["timestamp"] = now()
	doc.SetDistributionList(path, append(list, entry))
	return false, nil
}

// Delete removes the entry whose entryId or timestamp matches key. Removing
// a signed submit entry resets the release's label info to its unsigned
// defaults so the two representations of "signed" stay consistent.
func Delete(doc release.Document, path, key string) error {
	if !ValidPath(path) {
		return ErrInvalidPath
	}

	list := doc.DistributionList(path)
	for i, raw := range list {
		entry, ok := raw.(Entry)
		if !ok || !matchesKey(entry, key) {
			continue
		}

		doc.SetDistributionList(path, append(list[:i:i], list[i+1:]...))

		if path == PathSubmit {
			if status, _ := entry["status"].(string); strings.EqualFold(status, "signed") {
				doc.ResetLabelInfo()
			}
		}
		return nil
	}
	return ErrEntryNotFound
}

// Edit merges patch fields over the entry whose entryId or timestamp
// matches key. The original timestamp survives even if the patch tries to
// change it; the entry gets a fresh updatedAt stamp.
func Edit(doc release.Document, path, key string, patch Entry) error {
	if !ValidPath(path) {
		return ErrInvalidPath
	}

	list := doc.DistributionList(path)
	for i, raw := range list {
		entry, ok := raw.(Entry)
		if !ok || !matchesKey(entry, key) {
			continue
		}

		timestamp := entry["timestamp"]
		entryID := entry["entryId"]
		for field, value := range patch {
			entry[field] = value
		}
		entry["timestamp"] = timestamp
		entry["entryId"] = entryID
		entry["updatedAt"] = now()
		list[i] = entry
		doc.SetDistributionList(path, list)
		return nil
	}
	return ErrEntryNotFound
}

// MarkSigned locates the submit entry for the label, flips its status to
// signed and mirrors the result into the release's label info. Fails with
// ErrEntryNotFound when no submission for that label exists.
func MarkSigned(doc release.Document, label string) error {
	list := doc.DistributionList(PathSubmit)
	for i, raw := range list {
		entry, ok := raw.(Entry)
		if !ok {
			continue
		}
		entryLabel, _ := entry["label"].(string)
		if !strings.EqualFold(entryLabel, label) {
			continue
		}

		signedAt := now()
		entry["status"] = "signed"
		entry["signedAt"] = signedAt
		list[i] = entry
		doc.SetDistributionList(PathSubmit, list)

		info := doc.LabelInfo()
		info["isSigned"] = true
		info["label"] = entryLabel
		info["signedDate"] = signedAt
		return nil
	}
	return ErrEntryNotFound
}

// matchesKey checks the generated entry id first and falls back to the
// creation timestamp, which older UI revisions use as the lookup key.
func matchesKey(entry Entry, key string) bool {
	if id, _ := entry["entryId"].(string); id != "" && id == key {
		return true
	}
	ts, _ := entry["timestamp"].(string)
	return ts != "" && ts == key
}

// sameIdentity applies the per-path identity rule.
func sameIdentity(path string, a, b Entry) bool {
	if field(a, "platform") != field(b, "platform") {
		return false
	}
	switch path {
	case PathRelease:
		return field(a, "versionId") == field(b, "versionId")
	case PathSubmit:
		return field(a, "label") == field(b, "label")
	default:
		return true
	}
}

func field(entry Entry, name string) string {
	s, _ := entry[name].(string)
	return s
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

package release

import (
	"encoding/json"
)

// PrimaryVersionID is the reserved id for a release's default version.
const PrimaryVersionID = "primary"

// distributionPaths are the three tracked activity categories.
var distributionPaths = []string{"release", "submit", "promote"}

// Document is the full metadata.json content for one release. It is kept as
// a generic map so partial updates merge losslessly: fields the server does
// not know about survive a read-modify-write cycle unchanged.
type Document map[string]any

// NewDocument returns an empty release document with all sections present.
func NewDocument(releaseID string) Document {
	doc := Document{"releaseId": releaseID}
	doc.EnsureSections()
	return doc
}

// EnsureSections creates the nested containers older documents may lack.
func (d Document) EnsureSections() {
	if _, ok := d["versions"].(map[string]any); !ok {
		d["versions"] = map[string]any{}
	}

	dist, ok := d["distribution"].(map[string]any)
	if !ok {
		dist = map[string]any{}
		d["distribution"] = dist
	}
	for _, path := range distributionPaths {
		if _, ok := dist[path].([]any); !ok {
			dist[path] = []any{}
		}
	}

	if _, ok := d["labelInfo"].(map[string]any); !ok {
		d["labelInfo"] = map[string]any{
			"isSigned":          false,
			"label":             "",
			"signedDate":        nil,
			"contractDocuments": []any{},
		}
	}
}

// ReleaseID returns the document's release identifier.
func (d Document) ReleaseID() string {
	return d.String("releaseId")
}

// String returns the named top-level field as a string, or "" when absent or
// of another type.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Merge shallow-merges the top-level keys of partial over the document.
// Later keys win; nested objects are replaced wholesale, not deep-merged.
func (d Document) Merge(partial Document) {
	for key, value := range partial {
		d[key] = value
	}
}

// Versions returns the versions map, creating it if needed.
func (d Document) Versions() map[string]any {
	d.EnsureSections()
	return d["versions"].(map[string]any)
}

// Version returns one version record by id.
func (d Document) Version(versionID string) (map[string]any, bool) {
	v, ok := d.Versions()[versionID].(map[string]any)
	return v, ok
}

// DistributionList returns the entry list for one distribution path.
func (d Document) DistributionList(path string) []any {
	d.EnsureSections()
	list, _ := d["distribution"].(map[string]any)[path].([]any)
	return list
}

// SetDistributionList replaces the entry list for one distribution path.
func (d Document) SetDistributionList(path string, entries []any) {
	d.EnsureSections()
	d["distribution"].(map[string]any)[path] = entries
}

// LabelInfo returns the denormalized label-deal record, creating it if
// needed.
func (d Document) LabelInfo() map[string]any {
	d.EnsureSections()
	return d["labelInfo"].(map[string]any)
}

// ResetLabelInfo puts the label record back to its unsigned defaults while
// keeping any uploaded contract documents and contact details.
func (d Document) ResetLabelInfo() {
	info := d.LabelInfo()
	info["isSigned"] = false
	info["label"] = ""
	info["signedDate"] = nil
}

// Notes returns the release notes record, creating it if needed.
func (d Document) Notes() map[string]any {
	notes, ok := d["notes"].(map[string]any)
	if !ok {
		notes = map[string]any{"text": "", "files": []any{}}
		d["notes"] = notes
	}
	if _, ok := notes["files"].([]any); !ok {
		notes["files"] = []any{}
	}
	return notes
}

// SongLinks returns the stored streaming links.
func (d Document) SongLinks() []any {
	links, _ := d["songLinks"].([]any)
	return links
}

// SetSongLinks replaces the stored streaming links.
func (d Document) SetSongLinks(links []any) {
	d["songLinks"] = links
}

// FileCounts tallies distinct filenames per category across all versions.
// Artwork and video are shared between versions, so duplicates are folded.
func (d Document) FileCounts() map[string]int {
	counts := map[string]int{"audio": 0, "artwork": 0, "video": 0}
	seen := map[string]map[string]bool{
		"audio":   {},
		"artwork": {},
		"video":   {},
	}

	for _, raw := range d.Versions() {
		version, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		files, ok := version["files"].(map[string]any)
		if !ok {
			continue
		}
		for category, names := range seen {
			list, _ := files[category].([]any)
			for _, item := range list {
				desc, ok := item.(map[string]any)
				if !ok {
					continue
				}
				name, _ := desc["filename"].(string)
				if name != "" && !names[name] {
					names[name] = true
					counts[category]++
				}
			}
		}
	}

	return counts
}

// toJSONValue converts a typed value to its generic JSON representation so
// it can be stored inside a Document.
func toJSONValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

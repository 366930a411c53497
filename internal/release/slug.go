package release

import (
	"regexp"
	"strings"
)

var (
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugInvalid    = regexp.MustCompile(`[^a-z0-9-]+`)
	slugHyphens    = regexp.MustCompile(`-{2,}`)
)

// VersionID derives the canonical version id from a human version name.
// The derivation is deterministic: lowercase, internal whitespace collapsed
// to single hyphens, anything outside [a-z0-9-] stripped, repeated hyphens
// collapsed, leading/trailing hyphens trimmed. The literal name
// "Primary Version" (case-insensitive) and the empty name both map to the
// reserved id "primary".
func VersionID(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "Primary Version") {
		return PrimaryVersionID
	}

	id := strings.ToLower(trimmed)
	id = slugWhitespace.ReplaceAllString(id, "-")
	id = slugInvalid.ReplaceAllString(id, "")
	id = slugHyphens.ReplaceAllString(id, "-")
	id = strings.Trim(id, "-")

	// A name made entirely of stripped characters falls back to primary.
	if id == "" {
		return PrimaryVersionID
	}
	return id
}

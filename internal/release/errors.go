package release

import "errors"

var (
	// ErrNotFound indicates the release has no on-disk document or subtree.
	ErrNotFound = errors.New("release not found")

	// ErrDuplicateVersion indicates the version already has stored audio.
	ErrDuplicateVersion = errors.New("version already has stored audio")
)

package media

import (
	"path/filepath"
	"strings"
)

// FileClass is the storage category an uploaded file is routed to.
type FileClass string

const (
	ClassAudio   FileClass = "audio"
	ClassArtwork FileClass = "artwork"
	ClassVideo   FileClass = "video"
	ClassOther   FileClass = "other"
)

var extensionClasses = map[string]FileClass{
	".wav": ClassAudio, ".mp3": ClassAudio, ".flac": ClassAudio,
	".aiff": ClassAudio, ".m4a": ClassAudio, ".ogg": ClassAudio,

	".jpg": ClassArtwork, ".jpeg": ClassArtwork, ".png": ClassArtwork,
	".gif": ClassArtwork, ".webp": ClassArtwork, ".bmp": ClassArtwork,

	".mp4": ClassVideo, ".mov": ClassVideo, ".avi": ClassVideo,
	".mkv": ClassVideo, ".webm": ClassVideo,
}

// Classify maps a file's declared media type and original filename to its
// storage category. The declared type's top-level category wins; when it is
// absent or unrecognized the extension allow-list decides. Never errors.
func Classify(mimeType, filename string) FileClass {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return ClassAudio
	case strings.HasPrefix(mimeType, "image/"):
		return ClassArtwork
	case strings.HasPrefix(mimeType, "video/"):
		return ClassVideo
	}

	if class, ok := extensionClasses[strings.ToLower(filepath.Ext(filename))]; ok {
		return class
	}
	return ClassOther
}

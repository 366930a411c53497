package media

import (
	"os"

	"github.com/dhowden/tag"
)

// Tags holds embedded metadata read from an audio file.
type Tags struct {
	Artist string
	Title  string
	Genre  string
}

// ReadTags extracts embedded tag metadata from an audio file. Files without
// readable tags yield empty values rather than an error; tags only ever
// supplement what the uploader declared.
func ReadTags(path string) Tags {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}
	}

	return Tags{
		Artist: meta.Artist(),
		Title:  meta.Title(),
		Genre:  meta.Genre(),
	}
}

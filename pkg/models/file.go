package models

// FileInfo describes a single stored file belonging to a release. Audio
// descriptors additionally carry the technical fields filled in by the
// audio validator.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`

	Duration   int    `json:"duration,omitempty"` // in seconds
	Bitrate    int    `json:"bitrate,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Codec      string `json:"codec,omitempty"`
}

// AudioInfo holds the technical metadata extracted from a validated audio
// file.
type AudioInfo struct {
	Duration   int    `json:"duration"` // rounded to the nearest second
	Bitrate    int    `json:"bitrate"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
	Codec      string `json:"codec"`
}

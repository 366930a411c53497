package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"

	"cadenza/pkg/models"
)

// maxDurationSeconds is the upper bound for a single track. Anything longer
// is assumed to be a broken file or a DJ set, neither of which belongs in
// the catalogue.
const maxDurationSeconds = 3600

// ValidateAudio parses container/codec metadata for an audio file and
// enforces the catalogue's content gate: the file must yield readable
// format metadata and a duration in (0, 3600] seconds. On success the
// extracted technical metadata is returned; on failure the error message is
// the human-readable reason. Callers are expected to delete the just-written
// file when validation fails.
func ValidateAudio(path string) (models.AudioInfo, error) {
	info, err := probe(path)
	if err != nil {
		return models.AudioInfo{}, fmt.Errorf("could not read audio metadata - file may be corrupt (%v)", err)
	}

	if info.Duration <= 0 || info.Duration > maxDurationSeconds {
		return models.AudioInfo{}, fmt.Errorf("invalid audio duration: %ds (expected 1s - 1 hour)", info.Duration)
	}

	return info, nil
}

// probe dispatches on the file extension to a per-format parser.
func probe(path string) (models.AudioInfo, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return probeMP3(path)
	case ".flac":
		return probeFLAC(path)
	case ".wav":
		return probeWAV(path)
	case ".m4a":
		return probeM4A(path)
	default:
		return models.AudioInfo{}, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}

// MP3 metadata via frame decoding; the first decodable frame supplies the
// header fields, frame durations are summed for the total.
func probeMP3(path string) (models.AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.AudioInfo{}, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	info := models.AudioInfo{Codec: "MPEG"}

	var total float64
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return models.AudioInfo{}, fmt.Errorf("no decodable mp3 frames: %w", err)
			}
			break // partial decode; use what we have
		}
		if frames == 0 {
			header := fr.Header()
			info.Bitrate = int(header.BitRate())
			info.SampleRate = int(header.SampleRate())
			if header.ChannelMode() == mp3.SingleChannel {
				info.Channels = 1
			} else {
				info.Channels = 2
			}
		}
		total += fr.Duration().Seconds()
		frames++
	}
	if frames == 0 {
		return models.AudioInfo{}, fmt.Errorf("no decodable mp3 frames")
	}

	info.Duration = int(total + 0.5)
	return info, nil
}

// FLAC metadata via the STREAMINFO block.
func probeFLAC(path string) (models.AudioInfo, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return models.AudioInfo{}, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return models.AudioInfo{}, fmt.Errorf("flac stream missing sample info")
	}

	secs := float64(si.NSamples) / float64(si.SampleRate)
	info := models.AudioInfo{
		Duration:   int(secs + 0.5),
		SampleRate: int(si.SampleRate),
		Channels:   int(si.NChannels),
		Codec:      "FLAC",
	}
	if st, err := os.Stat(path); err == nil && secs > 0 {
		info.Bitrate = int(float64(st.Size()*8) / secs)
	}
	return info, nil
}

// WAV metadata from the RIFF header; duration approximated from the file
// size since a full sample count would require decoding everything.
func probeWAV(path string) (models.AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.AudioInfo{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return models.AudioInfo{}, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return models.AudioInfo{}, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return models.AudioInfo{}, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return models.AudioInfo{}, fmt.Errorf("invalid sample frame size")
	}

	sampleFrames := pcmBytes / bytesPerSampleFrame
	secs := float64(sampleFrames) / float64(dec.SampleRate)
	return models.AudioInfo{
		Duration:   int(secs + 0.5),
		Bitrate:    int(dec.SampleRate) * int(dec.BitDepth) * int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Codec:      "PCM",
	}, nil
}

// M4A (AAC in MP4) metadata from the 'mvhd' atom: a minimal manual scan for
// timescale and duration, avoiding a heavyweight mp4 dependency.
func probeM4A(path string) (models.AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.AudioInfo{}, err
	}
	defer f.Close()

	secs, err := m4aDuration(f)
	if err != nil {
		return models.AudioInfo{}, err
	}

	info := models.AudioInfo{
		Duration: int(secs + 0.5),
		Codec:    "AAC",
	}
	if st, err := f.Stat(); err == nil && secs > 0 {
		info.Bitrate = int(float64(st.Size()*8) / secs)
	}
	return info, nil
}

// m4aDuration scans top-level atoms for moov/mvhd and reads timescale and
// duration units.
func m4aDuration(f *os.File) (float64, error) {
	for {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		atom := string(head[4:8])
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if atom != "moov" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		limit := int64(size) - 8
		for read := int64(0); read < limit; {
			subHead := make([]byte, 8)
			if _, err := io.ReadFull(f, subHead); err != nil {
				return 0, err
			}
			subSize := binary.BigEndian.Uint32(subHead[0:4])
			subAtom := string(subHead[4:8])
			if subAtom == "mvhd" {
				version := make([]byte, 1)
				if _, err := io.ReadFull(f, version); err != nil {
					return 0, err
				}
				// Version 1 uses 64-bit creation/modification times and
				// duration; version 0 uses 32-bit throughout.
				var skip, durBytes int64
				if version[0] == 1 {
					skip, durBytes = 3+8+8, 8
				} else {
					skip, durBytes = 3+4+4, 4
				}
				if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
					return 0, err
				}
				buf := make([]byte, 4+durBytes)
				if _, err := io.ReadFull(f, buf); err != nil {
					return 0, err
				}
				timescale := binary.BigEndian.Uint32(buf[0:4])
				var durUnits uint64
				if durBytes == 8 {
					durUnits = binary.BigEndian.Uint64(buf[4:12])
				} else {
					durUnits = uint64(binary.BigEndian.Uint32(buf[4:8]))
				}
				if timescale == 0 {
					return 0, fmt.Errorf("invalid timescale")
				}
				return float64(durUnits) / float64(timescale), nil
			}
			if subSize < 8 {
				return 0, fmt.Errorf("invalid sub-atom size")
			}
			if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += int64(subSize)
		}
		return 0, fmt.Errorf("mvhd atom not found")
	}
}

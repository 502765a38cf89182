// ABOUTME: Audio format detection
// ABOUTME: Sniffs magic bytes, then media type, then file extension
package decode

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

var mediaTypes = map[string]Codec{
	"audio/wav":       CodecWAV,
	"audio/x-wav":     CodecWAV,
	"audio/wave":      CodecWAV,
	"audio/vnd.wave":  CodecWAV,
	"audio/aiff":      CodecAIFF,
	"audio/x-aiff":    CodecAIFF,
	"audio/mpeg":      CodecMP3,
	"audio/mp3":       CodecMP3,
	"audio/flac":      CodecFLAC,
	"audio/x-flac":    CodecFLAC,
	"audio/ogg":       CodecVorbis,
	"audio/vorbis":    CodecVorbis,
	"application/ogg": CodecVorbis,
}

var extensions = map[string]Codec{
	".wav":  CodecWAV,
	".wave": CodecWAV,
	".aif":  CodecAIFF,
	".aiff": CodecAIFF,
	".aifc": CodecAIFF,
	".mp3":  CodecMP3,
	".flac": CodecFLAC,
	".ogg":  CodecVorbis,
	".oga":  CodecVorbis,
}

// SupportedExtension reports whether a file name carries an extension
// one of the decoders reads
func SupportedExtension(name string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Detect picks the codec for an encoded stream. Content wins over labels:
// a mislabeled upload still decodes with the right backend.
func Detect(data []byte, mediaType, name string) (Codec, error) {
	if codec, ok, err := sniff(data); err != nil {
		return "", err
	} else if ok {
		return codec, nil
	}

	if codec, ok := mediaTypes[strings.ToLower(strings.TrimSpace(mediaType))]; ok {
		return codec, nil
	}

	if codec, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return codec, nil
	}

	return "", fmt.Errorf("%w: type %q, name %q", ErrUnsupportedFormat, mediaType, name)
}

func sniff(data []byte) (Codec, bool, error) {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return CodecWAV, true, nil
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("FORM")) &&
		(bytes.Equal(data[8:12], []byte("AIFF")) || bytes.Equal(data[8:12], []byte("AIFC"))):
		return CodecAIFF, true, nil
	case bytes.HasPrefix(data, []byte("fLaC")):
		return CodecFLAC, true, nil
	case bytes.HasPrefix(data, []byte("OggS")):
		head := data[:min(len(data), 128)]
		if bytes.Contains(head, []byte("OpusHead")) {
			return "", false, fmt.Errorf("%w: ogg opus", ErrUnsupportedFormat)
		}
		return CodecVorbis, true, nil
	case bytes.HasPrefix(data, []byte("ID3")):
		return CodecMP3, true, nil
	case isMPEGLayer3Sync(data):
		return CodecMP3, true, nil
	}
	return "", false, nil
}

// isMPEGLayer3Sync matches an 11-bit frame sync with the layer bits set to
// Layer III, which rules out ADTS AAC (layer 00).
func isMPEGLayer3Sync(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return data[0] == 0xFF && data[1]&0xE0 == 0xE0 && (data[1]>>1)&0x03 == 0x01
}

// ABOUTME: Decoder interface definition and codec registry
// ABOUTME: Common interface for all whole-resource audio decoders
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// Codec names a supported container/codec
type Codec string

const (
	CodecWAV    Codec = "wav"
	CodecAIFF   Codec = "aiff"
	CodecMP3    Codec = "mp3"
	CodecFLAC   Codec = "flac"
	CodecVorbis Codec = "vorbis"
	CodecPCM    Codec = "pcm"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidData       = errors.New("invalid audio data")
	ErrEmptyStream       = errors.New("no audio samples decoded")
)

// Decoder decodes a complete encoded stream into normalized PCM
type Decoder interface {
	// Decode reads the whole stream. It returns a validated buffer or an
	// error, never both.
	Decode(ctx context.Context, r io.Reader) (*audio.Decoded, error)
}

// New creates a decoder for a self-describing container codec.
// Raw PCM carries no header, use NewPCM for it.
func New(codec Codec) (Decoder, error) {
	switch codec {
	case CodecWAV:
		return NewWAV(), nil
	case CodecAIFF:
		return NewAIFF(), nil
	case CodecMP3:
		return NewMP3(), nil
	case CodecFLAC:
		return NewFLAC(), nil
	case CodecVorbis:
		return NewVorbis(), nil
	case CodecPCM:
		return nil, fmt.Errorf("%w: raw pcm needs an explicit format", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, codec)
	}
}

// finish validates a decoded buffer before handing it out
func finish(d *audio.Decoded) (*audio.Decoded, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if d.Frames() == 0 {
		return nil, ErrEmptyStream
	}
	return d, nil
}

// readSeeker buffers r when the backend needs random access
func readSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	return bytes.NewReader(data), nil
}

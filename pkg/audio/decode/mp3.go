// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MPEG-1/2 Layer III streams via go-mp3
package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// go-mp3 always emits interleaved stereo signed 16-bit little-endian
const mp3Channels = 2

// MP3Decoder decodes MP3 streams
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3() Decoder {
	return &MP3Decoder{}
}

// Decode reads the complete MP3 stream
func (d *MP3Decoder) Decode(ctx context.Context, r io.Reader) (*audio.Decoded, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create mp3 decoder: %v", ErrInvalidData, err)
	}

	var samples []float64
	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := decoder.Read(buf)
		// Convert bytes to int16 then normalize
		for i := 0; i+1 < n; i += 2 {
			samples = append(samples, audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i:]))))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: mp3 decode error: %v", ErrInvalidData, err)
		}
	}

	return finish(&audio.Decoded{
		Channels:   audio.Deinterleave(samples, mp3Channels),
		SampleRate: decoder.SampleRate(),
		Format: audio.Format{
			Codec:      string(CodecMP3),
			SampleRate: decoder.SampleRate(),
			Channels:   mp3Channels,
		},
	})
}

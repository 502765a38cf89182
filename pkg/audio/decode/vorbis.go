// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Ogg Vorbis streams via jfreymuth/oggvorbis
package decode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// VorbisDecoder decodes Ogg Vorbis streams
type VorbisDecoder struct{}

// NewVorbis creates a new Ogg Vorbis decoder
func NewVorbis() Decoder {
	return &VorbisDecoder{}
}

// Decode reads the complete stream. Vorbis output is float and may
// overshoot full scale, so samples are clamped.
func (d *VorbisDecoder) Decode(ctx context.Context, r io.Reader) (*audio.Decoded, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open ogg vorbis: %v", ErrInvalidData, err)
	}

	channels := reader.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("%w: ogg vorbis stream has no channels", ErrInvalidData)
	}

	var samples []float64
	buf := make([]float32, 4096*channels)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := reader.Read(buf)
		for _, s := range buf[:n] {
			samples = append(samples, audio.Clamp(float64(s)))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: vorbis decode error: %v", ErrInvalidData, err)
		}
	}

	return finish(&audio.Decoded{
		Channels:   audio.Deinterleave(samples, channels),
		SampleRate: reader.SampleRate(),
		Format: audio.Format{
			Codec:      string(CodecVorbis),
			SampleRate: reader.SampleRate(),
			Channels:   channels,
		},
	})
}

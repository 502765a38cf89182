// ABOUTME: Raw PCM audio decoder
// ABOUTME: Decodes headerless 16-bit and 24-bit little-endian PCM
package decode

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// PCMDecoder decodes interleaved little-endian PCM
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != string(CodecPCM) {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid PCM layout: %d channels at %d Hz", format.Channels, format.SampleRate)
	}

	return &PCMDecoder{format: format}, nil
}

// Decode converts PCM bytes to per-channel samples
func (d *PCMDecoder) Decode(ctx context.Context, r io.Reader) (*audio.Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var samples []float64
	if d.format.BitDepth == 24 {
		// 24-bit PCM: 3 bytes per sample
		numSamples := len(data) / 3
		samples = make([]float64, numSamples)
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFromInt(int(audio.SampleFrom24Bit(b)), 24)
		}
	} else {
		// 16-bit PCM: 2 bytes per sample
		numSamples := len(data) / 2
		samples = make([]float64, numSamples)
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	}

	return finish(&audio.Decoded{
		Channels:   audio.Deinterleave(samples, d.format.Channels),
		SampleRate: d.format.SampleRate,
		Format:     d.format,
	})
}

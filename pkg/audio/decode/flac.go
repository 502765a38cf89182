// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC streams frame by frame via mewkiz/flac
package decode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// FLACDecoder decodes FLAC streams
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC() Decoder {
	return &FLACDecoder{}
}

// Decode parses every frame of the stream
func (d *FLACDecoder) Decode(ctx context.Context, r io.Reader) (*audio.Decoded, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode FLAC: %v", ErrInvalidData, err)
	}

	info := stream.Info
	sampleRate := int(info.SampleRate)
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels == 0 {
		return nil, fmt.Errorf("%w: FLAC stream has no channels", ErrInvalidData)
	}

	out := make([][]float64, channels)
	if info.NSamples > 0 {
		for ch := range out {
			out[ch] = make([]float64, 0, info.NSamples)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: flac frame: %v", ErrInvalidData, err)
		}

		for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
			for _, sample := range frame.Subframes[ch].Samples[:frame.BlockSize] {
				out[ch] = append(out[ch], audio.SampleFromInt(int(sample), bitDepth))
			}
		}
	}

	if got := uint64(len(out[0])); info.NSamples > 0 && got < info.NSamples {
		return nil, fmt.Errorf("%w: flac: truncated, %d of %d frames", ErrInvalidData, got, info.NSamples)
	}

	return finish(&audio.Decoded{
		Channels:   out,
		SampleRate: sampleRate,
		Format: audio.Format{
			Codec:      string(CodecFLAC),
			SampleRate: sampleRate,
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	})
}

// ABOUTME: AIFF audio decoder
// ABOUTME: Decodes FORM/AIFF integer PCM via go-audio/aiff
package decode

import (
	"context"
	"fmt"
	"io"

	"github.com/go-audio/aiff"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// AIFFDecoder decodes AIFF files
type AIFFDecoder struct{}

// NewAIFF creates a new AIFF decoder
func NewAIFF() Decoder {
	return &AIFFDecoder{}
}

// Decode reads a complete AIFF stream
func (d *AIFFDecoder) Decode(ctx context.Context, r io.Reader) (*audio.Decoded, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid AIFF file", ErrInvalidData)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: aiff: %v", ErrInvalidData, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dec.NumChans > 0 {
		if got := uint32(len(buf.Data) / int(dec.NumChans)); got < dec.NumSampleFrames {
			return nil, fmt.Errorf("%w: aiff: truncated, %d of %d frames", ErrInvalidData, got, dec.NumSampleFrames)
		}
	}

	return fromIntBuffer(buf, int(dec.BitDepth), CodecAIFF)
}

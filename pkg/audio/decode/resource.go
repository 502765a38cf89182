// ABOUTME: Resource decoder combining fetch, detection and decoding
// ABOUTME: Turns a URL or path into a validated decoded buffer
package decode

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/pkg/audio"
	"github.com/mixroom/mixcheck/pkg/audio/fetch"
)

// ResourceDecoder fetches a resource and decodes it with the backend
// matching its content
type ResourceDecoder struct {
	fetcher *fetch.Fetcher
	logger  *zap.SugaredLogger
}

// NewResourceDecoder creates a resource decoder. A nil fetcher gets the
// default HTTP client.
func NewResourceDecoder(fetcher *fetch.Fetcher, logger *zap.SugaredLogger) *ResourceDecoder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if fetcher == nil {
		fetcher = fetch.New(fetch.Config{Logger: logger})
	}
	return &ResourceDecoder{
		fetcher: fetcher,
		logger:  logger,
	}
}

// DecodeResource fetches and decodes ref
func (d *ResourceDecoder) DecodeResource(ctx context.Context, ref string) (*audio.Decoded, error) {
	res, err := d.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	codec, err := Detect(res.Data, res.ContentType, res.Name)
	if err != nil {
		return nil, err
	}

	decoder, err := New(codec)
	if err != nil {
		return nil, err
	}

	decoded, err := decoder.Decode(ctx, bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", res.Name, codec, err)
	}

	d.logger.Debugw("decoded audio resource",
		"resource", ref,
		"codec", codec,
		"sample_rate", decoded.SampleRate,
		"channels", decoded.NumChannels(),
		"frames", decoded.Frames(),
	)
	return decoded, nil
}

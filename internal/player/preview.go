// ABOUTME: Resource preview for the review tool
// ABOUTME: Decodes a resource and plays it, cancelling any earlier preview
package player

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// Decoder turns a resource reference into PCM
type Decoder interface {
	DecodeResource(ctx context.Context, resource string) (*audio.Decoded, error)
}

// Sink plays decoded audio
type Sink interface {
	Play(d *audio.Decoded) error
	Stop()
}

// Previewer plays one resource at a time
type Previewer struct {
	decoder Decoder
	sink    Sink
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	current string
	seq     uint64
}

// NewPreviewer creates a previewer
func NewPreviewer(decoder Decoder, sink Sink, logger *zap.SugaredLogger) *Previewer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Previewer{
		decoder: decoder,
		sink:    sink,
		logger:  logger,
	}
}

// Preview decodes the resource and starts playback. A preview started
// while this one is decoding wins; the older one returns context.Canceled.
func (p *Previewer) Preview(ctx context.Context, resource string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	seq := p.seq
	p.cancel = cancel
	p.mu.Unlock()

	p.sink.Stop()

	decoded, err := p.decoder.DecodeResource(ctx, resource)
	if err != nil {
		return fmt.Errorf("preview %s: %w", resource, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq || ctx.Err() != nil {
		return context.Canceled
	}
	p.cancel = nil

	if err := p.sink.Play(decoded); err != nil {
		return fmt.Errorf("preview %s: %w", resource, err)
	}
	p.current = resource
	p.logger.Infow("previewing", "resource", resource, "duration", decoded.Duration())
	return nil
}

// Stop cancels a pending preview and halts playback
func (p *Previewer) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.seq++
	p.current = ""
	p.mu.Unlock()

	p.sink.Stop()
}

// Current returns the resource last started, if still playing
func (p *Previewer) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

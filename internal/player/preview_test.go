// ABOUTME: Tests for resource previews
// ABOUTME: Uses a fake decoder and sink to check supersession and errors
package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mixroom/mixcheck/pkg/audio"
)

type fakeDecoder struct {
	block map[string]chan struct{}
	err   error
}

func (f *fakeDecoder) DecodeResource(ctx context.Context, resource string) (*audio.Decoded, error) {
	if ch, ok := f.block[resource]; ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &audio.Decoded{Channels: [][]float64{{0.1, 0.2}}, SampleRate: 8000}, nil
}

type fakeSink struct {
	mu     sync.Mutex
	played int
	stops  int
}

func (s *fakeSink) Play(d *audio.Decoded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played++
	return nil
}

func (s *fakeSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func TestPreview(t *testing.T) {
	sink := &fakeSink{}
	p := NewPreviewer(&fakeDecoder{}, sink, zaptest.NewLogger(t).Sugar())

	if err := p.Preview(context.Background(), "a.wav"); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if sink.played != 1 {
		t.Errorf("expected 1 play, got %d", sink.played)
	}
	if p.Current() != "a.wav" {
		t.Errorf("expected current a.wav, got %q", p.Current())
	}

	p.Stop()
	if p.Current() != "" {
		t.Error("expected no current preview after stop")
	}
}

func TestPreviewDecodeError(t *testing.T) {
	boom := errors.New("corrupt")
	sink := &fakeSink{}
	p := NewPreviewer(&fakeDecoder{err: boom}, sink, nil)

	err := p.Preview(context.Background(), "bad.wav")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped decode error, got %v", err)
	}
	if sink.played != 0 {
		t.Error("nothing should play after a decode error")
	}
}

func TestPreviewSuperseded(t *testing.T) {
	release := make(chan struct{})
	sink := &fakeSink{}
	p := NewPreviewer(&fakeDecoder{block: map[string]chan struct{}{"slow.wav": release}}, sink, nil)

	done := make(chan error, 1)
	go func() {
		done <- p.Preview(context.Background(), "slow.wav")
	}()

	// Let the first preview reach the decoder
	time.Sleep(20 * time.Millisecond)

	if err := p.Preview(context.Background(), "fast.wav"); err != nil {
		t.Fatalf("second preview failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected superseded preview to be cancelled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("superseded preview did not return")
	}

	if sink.played != 1 || p.Current() != "fast.wav" {
		t.Errorf("expected only fast.wav played, got %d plays, current %q", sink.played, p.Current())
	}
	close(release)
}

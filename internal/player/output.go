// ABOUTME: Audio output using oto library
// ABOUTME: Plays decoded previews as 48kHz stereo PCM with software volume control
package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/pkg/audio"
	"github.com/mixroom/mixcheck/pkg/audio/resample"
)

const (
	// oto allows one context per process, so the device format is fixed
	OutputRate     = 48000
	OutputChannels = 2
)

var ErrNothingToPlay = errors.New("nothing to play")

// Output manages audio output
type Output struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	player *oto.Player
	volume int
	muted  bool
	logger *zap.SugaredLogger
}

// NewOutput creates an audio output. The device is opened on first play.
func NewOutput(logger *zap.SugaredLogger) *Output {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Output{
		volume: 100,
		logger: logger,
	}
}

func (o *Output) initialize() error {
	if o.otoCtx != nil {
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   OutputRate,
		ChannelCount: OutputChannels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.logger.Infow("audio output initialized", "sample_rate", OutputRate, "channels", OutputChannels)
	return nil
}

// Play replaces whatever is playing with the decoded buffer
func (o *Output) Play(d *audio.Decoded) error {
	if d == nil || d.Frames() == 0 {
		return ErrNothingToPlay
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.initialize(); err != nil {
		return err
	}
	o.stopLocked()

	pcm := Render(d, o.volume, o.muted)
	o.player = o.otoCtx.NewPlayer(bytes.NewReader(pcm))
	o.player.Play()

	o.logger.Debugw("preview started",
		"codec", d.Format.Codec,
		"sample_rate", d.SampleRate,
		"duration", d.Duration(),
	)
	return nil
}

// Stop halts playback
func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *Output) stopLocked() {
	if o.player == nil {
		return
	}
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		o.logger.Debugw("error closing player", "error", err)
	}
	o.player = nil
}

// Playing reports whether a preview is audible
func (o *Output) Playing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player != nil && o.player.IsPlaying()
}

// SetVolume sets the volume (0-100). It applies from the next preview.
func (o *Output) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
}

// SetMuted sets mute state
func (o *Output) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

// Volume returns current volume
func (o *Output) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Close stops playback and suspends the device
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			o.logger.Debugw("error suspending output", "error", err)
		}
	}
}

// Render converts a decoded buffer into interleaved 16-bit little-endian
// stereo at OutputRate. Mono is duplicated to both sides and channels
// past the second are dropped.
func Render(d *audio.Decoded, volume int, muted bool) []byte {
	channels := stereo(d.Channels)
	channels = resample.Channels(channels, d.SampleRate, OutputRate)
	multiplier := getVolumeMultiplier(volume, muted)

	frames := len(channels[0])
	out := make([]byte, frames*OutputChannels*2)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < OutputChannels; ch++ {
			sample := audio.SampleToInt16(channels[ch][i] * multiplier)
			binary.LittleEndian.PutUint16(out[(i*OutputChannels+ch)*2:], uint16(sample))
		}
	}
	return out
}

func stereo(channels [][]float64) [][]float64 {
	if len(channels) == 1 {
		return [][]float64{channels[0], channels[0]}
	}
	return channels[:2]
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}

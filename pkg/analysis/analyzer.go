// ABOUTME: AudioAnalyzer implementation
// ABOUTME: Decodes a resource and runs the single-pass metrics scan
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/pkg/audio"
	"github.com/mixroom/mixcheck/pkg/audio/decode"
)

// Decoder turns a resource reference into decoded audio. It must honour
// ctx and must not return a buffer together with an error.
type Decoder interface {
	DecodeResource(ctx context.Context, resource string) (*audio.Decoded, error)
}

// DecoderFunc adapts a function to the Decoder interface
type DecoderFunc func(ctx context.Context, resource string) (*audio.Decoded, error)

func (f DecoderFunc) DecodeResource(ctx context.Context, resource string) (*audio.Decoded, error) {
	return f(ctx, resource)
}

// Options controls the metrics scan
type Options struct {
	Channels      ChannelSelection
	ClipThreshold float64 // |s| >= threshold counts as a clip; <= 0 means default
}

// DefaultOptions returns first-channel analysis at the 0.99 clip threshold
func DefaultOptions() Options {
	return Options{
		Channels:      FirstChannel(),
		ClipThreshold: DefaultClipThreshold,
	}
}

func (o Options) threshold() float64 {
	if o.ClipThreshold <= 0 || math.IsNaN(o.ClipThreshold) {
		return DefaultClipThreshold
	}
	return o.ClipThreshold
}

// Config holds analyzer configuration
type Config struct {
	Decoder Decoder // nil uses decode.NewResourceDecoder
	Options Options
	Logger  *zap.SugaredLogger
}

// Analyzer computes Metrics for audio resources
type Analyzer struct {
	decoder Decoder
	options Options
	logger  *zap.SugaredLogger
}

// New creates an analyzer
func New(config Config) *Analyzer {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	decoder := config.Decoder
	if decoder == nil {
		decoder = decode.NewResourceDecoder(nil, logger)
	}
	return &Analyzer{
		decoder: decoder,
		options: config.Options,
		logger:  logger,
	}
}

// Options returns the scan options this analyzer applies
func (a *Analyzer) Options() Options {
	return a.options
}

// Analyze decodes resource and computes its metrics
func (a *Analyzer) Analyze(ctx context.Context, resource string) (Metrics, error) {
	decoded, err := a.decode(ctx, resource)
	if err != nil {
		return Metrics{}, err
	}

	metrics, err := Compute(decoded, a.options)
	if err != nil {
		return Metrics{}, fmt.Errorf("analyze %s: %w", resource, err)
	}

	a.logger.Debugw("analysis complete",
		"resource", resource,
		"peak", metrics.PeakLevel,
		"average", metrics.AverageLevel,
		"dynamic_range", metrics.DynamicRange,
		"clips", metrics.ClippingPoints,
		"duration", metrics.Duration,
	)
	return metrics, nil
}

// Inspect is Analyze plus the source format and a per-channel profile
// computed from the same decoded buffer.
func (a *Analyzer) Inspect(ctx context.Context, resource string) (Report, error) {
	decoded, err := a.decode(ctx, resource)
	if err != nil {
		return Report{}, err
	}

	metrics, err := Compute(decoded, a.options)
	if err != nil {
		return Report{}, fmt.Errorf("inspect %s: %w", resource, err)
	}

	threshold := a.options.threshold()
	format := decoded.Format
	if format.SampleRate == 0 {
		format.SampleRate = decoded.SampleRate
	}
	if format.Channels == 0 {
		format.Channels = decoded.NumChannels()
	}

	return Report{
		Resource:      resource,
		Metrics:       metrics,
		Format:        format,
		Selection:     a.options.Channels,
		ClipThreshold: threshold,
		Channels:      Profile(decoded, threshold),
		InspectedAt:   time.Now(),
	}, nil
}

func (a *Analyzer) decode(ctx context.Context, resource string) (*audio.Decoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	start := time.Now()
	decoded, err := a.decoder.DecodeResource(ctx, resource)
	if ctxErr := ctx.Err(); ctxErr != nil {
		a.logger.Debugw("analysis cancelled", "resource", resource, "reason", ctxErr)
		return nil, cancelled(ctxErr)
	}
	if err != nil {
		a.logger.Warnw("decode failed", "resource", resource, "error", err)
		return nil, &DecodeError{Resource: resource, Err: err}
	}

	if err := decoded.Validate(); err != nil {
		return nil, &DecodeError{Resource: resource, Err: err}
	}
	if decoded.Frames() == 0 {
		return nil, &DecodeError{Resource: resource, Err: decode.ErrEmptyStream}
	}

	a.logger.Debugw("decoded resource",
		"resource", resource,
		"channels", decoded.NumChannels(),
		"sample_rate", decoded.SampleRate,
		"elapsed", time.Since(start),
	)
	return decoded, nil
}

// Compute runs the metrics scan over an already decoded buffer. It does
// not retain d.
func Compute(d *audio.Decoded, opts Options) (Metrics, error) {
	if err := d.Validate(); err != nil {
		return Metrics{}, err
	}

	channels, err := opts.Channels.pick(d)
	if err != nil {
		return Metrics{}, err
	}

	threshold := opts.threshold()
	var (
		peak  float64
		sum   float64
		n     int
		clips int
	)
	for _, samples := range channels {
		for _, s := range samples {
			abs := math.Abs(s)
			if abs > peak {
				peak = abs
			}
			sum += abs
			if abs >= threshold {
				clips++
			}
		}
		n += len(samples)
	}

	var average float64
	if n > 0 {
		average = sum / float64(n)
	}

	return Metrics{
		PeakLevel:      peak,
		AverageLevel:   average,
		DynamicRange:   dynamicRange(peak, average),
		ClippingPoints: clips,
		Duration:       d.Duration(),
	}, nil
}

func dynamicRange(peak, average float64) float64 {
	if average == 0 {
		return SilentDynamicRange
	}
	return 20 * math.Log10(peak/average)
}

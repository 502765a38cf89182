// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Decoded buffers and sample normalization helpers
// Package audio provides the decoded-audio types shared by the decoders and
// the quality analyzer.
//
// A Decoded value holds one float64 slice per channel, every sample
// normalized to [-1.0, 1.0]:
//   - Format: source codec, sample rate, channel count and bit depth
//   - Decoded: per-channel samples plus sample rate, with Frames and Duration
//
// Integer PCM from any decoder goes through SampleFromInt or
// SampleFromInt16 so that full scale maps to 1.0.
//
// Example:
//
//	d := &audio.Decoded{
//	    Channels:   [][]float64{left, right},
//	    SampleRate: 48000,
//	}
//	if err := d.Validate(); err != nil {
//	    return err
//	}
//	seconds := d.Duration()
package audio

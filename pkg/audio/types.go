// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and decoded per-channel sample buffers
package audio

import (
	"errors"
	"fmt"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

var (
	ErrNoChannels    = errors.New("decoded audio has no channels")
	ErrChannelLength = errors.New("decoded channels differ in length")
	ErrSampleRate    = errors.New("sample rate must be positive")
)

// Format describes the source stream a buffer was decoded from
type Format struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bitDepth,omitempty"` // 0 for lossy codecs
}

// Decoded holds PCM audio for one resource, one slice per channel.
// Samples are normalized floats in [-1.0, 1.0].
type Decoded struct {
	Channels   [][]float64
	SampleRate int
	Format     Format
}

// Validate checks the buffer invariants: at least one channel, equal
// channel lengths and a positive sample rate.
func (d *Decoded) Validate() error {
	if d == nil || len(d.Channels) == 0 {
		return ErrNoChannels
	}
	if d.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrSampleRate, d.SampleRate)
	}
	n := len(d.Channels[0])
	for ch, samples := range d.Channels[1:] {
		if len(samples) != n {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrChannelLength, ch+1, len(samples), n)
		}
	}
	return nil
}

// NumChannels returns the number of decoded channels
func (d *Decoded) NumChannels() int {
	return len(d.Channels)
}

// Frames returns the per-channel sample count
func (d *Decoded) Frames() int {
	if len(d.Channels) == 0 {
		return 0
	}
	return len(d.Channels[0])
}

// Duration returns the length in seconds (frames / sample rate)
func (d *Decoded) Duration() float64 {
	if d.SampleRate <= 0 {
		return 0
	}
	return float64(d.Frames()) / float64(d.SampleRate)
}

// Deinterleave splits interleaved samples into per-channel slices.
// A trailing partial frame is dropped.
func Deinterleave(samples []float64, channels int) [][]float64 {
	if channels <= 0 {
		return nil
	}
	frames := len(samples) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = samples[i*channels+ch]
		}
	}
	return out
}

// Clamp limits a sample to [-1.0, 1.0]
func Clamp(sample float64) float64 {
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}

// SampleFromInt normalizes a signed integer sample of the given bit depth
func SampleFromInt(sample int, bitDepth int) float64 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	return Clamp(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}

// SampleFromInt16 normalizes a 16-bit sample
func SampleFromInt16(sample int16) float64 {
	return float64(sample) / 32768.0
}

// SampleToInt16 converts a normalized sample to 16-bit (for playback)
func SampleToInt16(sample float64) int16 {
	return int16(Clamp(sample) * 32767)
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

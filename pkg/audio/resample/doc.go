// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts normalized audio between sample rates
// Package resample provides sample rate conversion for normalized
// float audio.
//
// Uses linear interpolation. Handles both upsampling and downsampling.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	n := r.Resample(input, output)
//
//	stereo48k := resample.Channels(decoded.Channels, decoded.SampleRate, 48000)
package resample

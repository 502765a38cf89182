// ABOUTME: Tests for container decoders
// ABOUTME: Round-trips WAV and AIFF fixtures and checks invalid and truncated input
package decode

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mixroom/mixcheck/pkg/audio/audiotest"
)

const tolerance = 1.0 / 32768

func TestWAVDecode(t *testing.T) {
	left := []float64{0.5, -0.5, 0.25, -0.25}
	right := []float64{0.1, 0.2, -0.3, 0.4}

	tests := []struct {
		name     string
		bitDepth int
		channels [][]float64
	}{
		{"mono 8-bit odd length", 8, [][]float64{{0.5, -0.5, 0.25}}},
		{"mono 16-bit", 16, [][]float64{left}},
		{"stereo 16-bit", 16, [][]float64{left, right}},
		{"stereo 24-bit", 24, [][]float64{left, right}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := audiotest.WAV(t, 44100, tt.bitDepth, tt.channels)

			decoded, err := NewWAV().Decode(context.Background(), bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if decoded.SampleRate != 44100 {
				t.Errorf("expected sample rate 44100, got %d", decoded.SampleRate)
			}
			if decoded.NumChannels() != len(tt.channels) {
				t.Fatalf("expected %d channels, got %d", len(tt.channels), decoded.NumChannels())
			}
			if decoded.Format.Codec != string(CodecWAV) || decoded.Format.BitDepth != tt.bitDepth {
				t.Errorf("unexpected format: %+v", decoded.Format)
			}
			for ch, want := range tt.channels {
				got := decoded.Channels[ch]
				if len(got) != len(want) {
					t.Fatalf("channel %d: expected %d samples, got %d", ch, len(want), len(got))
				}
				for i := range want {
					if math.Abs(got[i]-want[i]) > tolerance {
						t.Errorf("channel %d sample %d: expected %f, got %f", ch, i, want[i], got[i])
					}
				}
			}
		})
	}
}

func TestWAVDecode_Float(t *testing.T) {
	samples := []float64{0.5, -0.25, 0.01, -1, 0.999}
	inverted := []float64{-0.5, 0.25, -0.01, 1, -0.999}

	tests := []struct {
		name       string
		bitDepth   int
		extensible bool
		channels   [][]float64
		want       [][]float64
	}{
		{"float32", 32, false, [][]float64{samples}, [][]float64{samples}},
		{"float32 extensible", 32, true, [][]float64{samples}, [][]float64{samples}},
		{"float64 extensible stereo", 64, true, [][]float64{samples, inverted}, [][]float64{samples, inverted}},
		{"overshoot is clamped", 32, false, [][]float64{{1.5, -2, 0.5}}, [][]float64{{1, -1, 0.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := audiotest.FloatWAV(t, 48000, tt.bitDepth, tt.extensible, tt.channels)

			decoded, err := NewWAV().Decode(context.Background(), bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if decoded.SampleRate != 48000 {
				t.Errorf("expected sample rate 48000, got %d", decoded.SampleRate)
			}
			if decoded.Format.BitDepth != tt.bitDepth {
				t.Errorf("expected bit depth %d, got %d", tt.bitDepth, decoded.Format.BitDepth)
			}
			if decoded.NumChannels() != len(tt.want) {
				t.Fatalf("expected %d channels, got %d", len(tt.want), decoded.NumChannels())
			}
			for ch, want := range tt.want {
				got := decoded.Channels[ch]
				if len(got) != len(want) {
					t.Fatalf("channel %d: expected %d samples, got %d", ch, len(want), len(got))
				}
				for i := range want {
					if math.Abs(got[i]-want[i]) > 1e-7 {
						t.Errorf("channel %d sample %d: expected %f, got %f", ch, i, want[i], got[i])
					}
				}
			}
		})
	}
}

func TestWAVDecode_FloatNaN(t *testing.T) {
	data := audiotest.FloatWAV(t, 44100, 32, false, [][]float64{{0.5, math.NaN(), 0.5}})

	_, err := NewWAV().Decode(context.Background(), bytes.NewReader(data))
	if !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestDecode_Truncated(t *testing.T) {
	const frames = 48000
	tone := make([]float64, frames)
	for i := range tone {
		tone[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/48000)
	}
	mono := [][]float64{tone}

	tests := []struct {
		name    string
		decoder Decoder
		data    []byte
	}{
		{"wav", NewWAV(), audiotest.WAV(t, 48000, 16, mono)},
		{"wav float", NewWAV(), audiotest.FloatWAV(t, 48000, 32, true, mono)},
		{"aiff", NewAIFF(), audiotest.AIFF(t, 48000, 16, mono)},
		{"flac", NewFLAC(), audiotest.FLAC(t, 48000, 16, mono)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, err := tt.decoder.Decode(context.Background(), bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("complete fixture failed to decode: %v", err)
			}
			if full.Frames() != frames {
				t.Fatalf("expected %d frames from complete fixture, got %d", frames, full.Frames())
			}

			cut := tt.data[:len(tt.data)/10]
			decoded, err := tt.decoder.Decode(context.Background(), bytes.NewReader(cut))
			if !errors.Is(err, ErrInvalidData) {
				t.Fatalf("expected ErrInvalidData for truncated stream, got %v", err)
			}
			if decoded != nil {
				t.Errorf("expected no buffer for truncated stream, got %d frames", decoded.Frames())
			}
		})
	}
}

func TestAIFFDecode(t *testing.T) {
	samples := []float64{0.75, -0.75, 0.5, 0}
	data := audiotest.AIFF(t, 48000, 16, [][]float64{samples, samples})

	decoded, err := NewAIFF().Decode(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", decoded.SampleRate)
	}
	if decoded.NumChannels() != 2 || decoded.Frames() != len(samples) {
		t.Fatalf("expected 2x%d samples, got %dx%d", len(samples), decoded.NumChannels(), decoded.Frames())
	}
	for i, want := range samples {
		if math.Abs(decoded.Channels[0][i]-want) > tolerance {
			t.Errorf("sample %d: expected %f, got %f", i, want, decoded.Channels[0][i])
		}
	}
}

func TestDecode_InvalidData(t *testing.T) {
	garbage := []byte("this is definitely not an audio stream, just some text")

	tests := []struct {
		name    string
		decoder Decoder
	}{
		{"wav", NewWAV()},
		{"aiff", NewAIFF()},
		{"mp3", NewMP3()},
		{"flac", NewFLAC()},
		{"vorbis", NewVorbis()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := tt.decoder.Decode(context.Background(), bytes.NewReader(garbage))
			if err == nil {
				t.Fatal("expected error for garbage input, got nil")
			}
			if decoded != nil {
				t.Error("expected nil buffer on error")
			}
		})
	}
}

func TestWAVDecode_EmptyData(t *testing.T) {
	data := audiotest.WAV(t, 44100, 16, [][]float64{{}})

	_, err := NewWAV().Decode(context.Background(), bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected error for WAV with no samples, got nil")
	}
}

func TestNew(t *testing.T) {
	for _, codec := range []Codec{CodecWAV, CodecAIFF, CodecMP3, CodecFLAC, CodecVorbis} {
		t.Run(string(codec), func(t *testing.T) {
			decoder, err := New(codec)
			if err != nil {
				t.Fatalf("expected decoder for %s, got error: %v", codec, err)
			}
			if decoder == nil {
				t.Fatal("expected decoder to be created")
			}
		})
	}

	for _, codec := range []Codec{CodecPCM, "opus", ""} {
		t.Run("unsupported "+string(codec), func(t *testing.T) {
			_, err := New(codec)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("expected ErrUnsupportedFormat, got %v", err)
			}
		})
	}
}

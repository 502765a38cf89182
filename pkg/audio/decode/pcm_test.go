// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests 16-bit and 24-bit PCM decoding and deinterleaving
package decode

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mixroom/mixcheck/pkg/audio"
)

func pcmFormat(channels, bitDepth int) audio.Format {
	return audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   channels,
		BitDepth:   bitDepth,
	}
}

func TestNewPCM(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(2, 16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if decoder == nil {
		t.Fatal("expected decoder to be created")
	}
}

func TestPCMDecode16Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(2, 16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// Two stereo frames: L=0x4000 R=0xC000, L=0x0000 R=0x7FFF
	input := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x00, 0xFF, 0x7F}
	decoded, err := decoder.Decode(context.Background(), bytes.NewReader(input))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.NumChannels() != 2 || decoded.Frames() != 2 {
		t.Fatalf("expected 2x2 samples, got %dx%d", decoded.NumChannels(), decoded.Frames())
	}

	want := [][]float64{
		{0.5, 0},
		{-0.5, 32767.0 / 32768.0},
	}
	for ch := range want {
		for i := range want[ch] {
			if decoded.Channels[ch][i] != want[ch][i] {
				t.Errorf("channel %d sample %d: expected %f, got %f", ch, i, want[ch][i], decoded.Channels[ch][i])
			}
		}
	}
}

func TestPCMDecode24Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(1, 24))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// 0x400000 = 2^22 -> 0.5, 0xC00000 -> -0.5
	input := []byte{0x00, 0x00, 0x40, 0x00, 0x00, 0xC0}
	decoded, err := decoder.Decode(context.Background(), bytes.NewReader(input))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.Frames() != 2 {
		t.Fatalf("expected 2 samples, got %d", decoded.Frames())
	}
	if decoded.Channels[0][0] != 0.5 {
		t.Errorf("expected first sample 0.5, got %f", decoded.Channels[0][0])
	}
	if decoded.Channels[0][1] != -0.5 {
		t.Errorf("expected second sample -0.5, got %f", decoded.Channels[0][1])
	}
}

func TestNewPCM_InvalidCodec(t *testing.T) {
	format := pcmFormat(2, 16)
	format.Codec = "opus"

	decoder, err := NewPCM(format)
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}

	if decoder != nil {
		t.Fatal("expected decoder to be nil for invalid codec")
	}

	expectedError := "invalid codec for PCM decoder: opus"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestNewPCM_UnsupportedBitDepth(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(2, 32))
	if err == nil {
		t.Fatal("expected error for unsupported bit depth, got nil")
	}

	if decoder != nil {
		t.Fatal("expected decoder to be nil for unsupported bit depth")
	}

	expectedError := "unsupported bit depth: 32 (supported: 16, 24)"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestPCMDecode_EmptyInput(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(2, 16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	decoded, err := decoder.Decode(context.Background(), bytes.NewReader(nil))
	if !errors.Is(err, ErrEmptyStream) {
		t.Fatalf("expected ErrEmptyStream, got %v", err)
	}
	if decoded != nil {
		t.Error("expected nil buffer for empty input")
	}
}

// ABOUTME: Test fixtures for encoded audio
// ABOUTME: Builds WAV, AIFF and FLAC byte streams from normalized samples
// Package audiotest encodes small in-memory fixtures for decoder, analyzer
// and server tests.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE

	flacBlockSize = 4096
)

// KSDATAFORMAT_SUBTYPE_IEEE_FLOAT minus its leading format tag
var floatSubFormatTail = []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

type encoder interface {
	Write(buf *goaudio.IntBuffer) error
	Close() error
}

// WAV encodes per-channel samples as integer PCM WAV
func WAV(tb testing.TB, sampleRate, bitDepth int, channels [][]float64) []byte {
	tb.Helper()
	return encode(tb, "fixture.wav", sampleRate, bitDepth, channels, func(w io.WriteSeeker) encoder {
		return wav.NewEncoder(w, sampleRate, bitDepth, len(channels), wavFormatPCM)
	})
}

// AIFF encodes per-channel samples as integer PCM AIFF
func AIFF(tb testing.TB, sampleRate, bitDepth int, channels [][]float64) []byte {
	tb.Helper()
	return encode(tb, "fixture.aiff", sampleRate, bitDepth, channels, func(w io.WriteSeeker) encoder {
		return aiff.NewEncoder(w, sampleRate, bitDepth, len(channels))
	})
}

// FloatWAV builds an IEEE float WAV of 32 or 64 bits per sample. With
// extensible set the fmt chunk is WAVE_FORMAT_EXTENSIBLE carrying the float
// SubFormat GUID. Samples are written as given, without clamping.
func FloatWAV(tb testing.TB, sampleRate, bitDepth int, extensible bool, channels [][]float64) []byte {
	tb.Helper()
	if len(channels) == 0 {
		tb.Fatal("fixture needs at least one channel")
	}
	if bitDepth != 32 && bitDepth != 64 {
		tb.Fatalf("float WAV needs 32 or 64 bits, got %d", bitDepth)
	}

	numChans := len(channels)
	blockAlign := numChans * bitDepth / 8

	var fmtChunk bytes.Buffer
	tag := uint16(wavFormatIEEEFloat)
	if extensible {
		tag = wavFormatExtensible
	}
	le(&fmtChunk, tag, uint16(numChans), uint32(sampleRate), uint32(sampleRate*blockAlign), uint16(blockAlign), uint16(bitDepth))
	if extensible {
		le(&fmtChunk, uint16(22), uint16(bitDepth), uint32(0), uint16(wavFormatIEEEFloat))
		fmtChunk.Write(floatSubFormatTail)
	}

	var data bytes.Buffer
	for i := range channels[0] {
		for _, ch := range channels {
			if bitDepth == 32 {
				le(&data, math.Float32bits(float32(ch[i])))
			} else {
				le(&data, math.Float64bits(ch[i]))
			}
		}
	}

	var out bytes.Buffer
	out.Write(riff.RiffID[:])
	le(&out, uint32(4+8+fmtChunk.Len()+8+data.Len()))
	out.Write(riff.WavFormatID[:])
	out.Write(riff.FmtID[:])
	le(&out, uint32(fmtChunk.Len()))
	out.Write(fmtChunk.Bytes())
	out.Write(riff.DataFormatID[:])
	le(&out, uint32(data.Len()))
	out.Write(data.Bytes())
	return out.Bytes()
}

// FLAC encodes per-channel samples as verbatim FLAC frames
func FLAC(tb testing.TB, sampleRate, bitDepth int, channels [][]float64) []byte {
	tb.Helper()
	if len(channels) == 0 || len(channels) > 8 {
		tb.Fatalf("FLAC fixture needs 1-8 channels, got %d", len(channels))
	}

	path := filepath.Join(tb.TempDir(), "fixture.flac")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("failed to create fixture: %v", err)
	}

	frames := len(channels[0])
	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(len(channels)),
		BitsPerSample: uint8(bitDepth),
		NSamples:      uint64(frames),
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		f.Close()
		tb.Fatalf("failed to create FLAC encoder: %v", err)
	}

	for offset := 0; offset < frames; offset += flacBlockSize {
		n := min(flacBlockSize, frames-offset)
		fr := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(n),
				SampleRate:        uint32(sampleRate),
				Channels:          frame.Channels(len(channels) - 1),
				BitsPerSample:     uint8(bitDepth),
			},
			Subframes: make([]*frame.Subframe, len(channels)),
		}
		for ch, samples := range channels {
			block := make([]int32, n)
			for i := range block {
				block[i] = int32(toInt(samples[offset+i], bitDepth))
			}
			fr.Subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   block,
				NSamples:  n,
			}
		}
		if err := enc.WriteFrame(fr); err != nil {
			f.Close()
			tb.Fatalf("failed to encode FLAC frame: %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("failed to finalize fixture: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("failed to read fixture: %v", err)
	}
	return out
}

// WriteFile stores data under a fresh temp dir and returns its path
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// Quantize returns the value a sample takes after an integer round trip
func Quantize(sample float64, bitDepth int) float64 {
	scale := float64(int64(1) << (bitDepth - 1))
	return float64(toInt(sample, bitDepth)) / scale
}

func encode(tb testing.TB, name string, sampleRate, bitDepth int, channels [][]float64, newEncoder func(io.WriteSeeker) encoder) []byte {
	tb.Helper()
	if len(channels) == 0 {
		tb.Fatal("fixture needs at least one channel")
	}

	path := filepath.Join(tb.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("failed to create fixture: %v", err)
	}

	frames := len(channels[0])
	data := make([]int, 0, frames*len(channels))
	for i := 0; i < frames; i++ {
		for _, ch := range channels {
			data = append(data, toInt(ch[i], bitDepth))
		}
	}

	if bitDepth == 8 && filepath.Ext(name) == ".wav" {
		for i := range data {
			data[i] += 128
		}
	}

	enc := newEncoder(f)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: len(channels), SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		tb.Fatalf("failed to encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		tb.Fatalf("failed to finalize fixture: %v", err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("failed to close fixture: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("failed to read fixture: %v", err)
	}
	return out
}

func le(w io.Writer, values ...any) {
	for _, v := range values {
		// bytes.Buffer writes never fail
		_ = binary.Write(w, binary.LittleEndian, v)
	}
}

func toInt(sample float64, bitDepth int) int {
	scale := float64(int64(1) << (bitDepth - 1))
	v := math.Round(sample * scale)
	if v > scale-1 {
		v = scale - 1
	}
	if v < -scale {
		v = -scale
	}
	return int(v)
}

// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE integer and IEEE float PCM via go-audio/wav
package decode

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// WAVE format tags. Extensible files carry the real tag in the first two
// bytes of the SubFormat GUID.
const (
	wavFormatPCM        = 0x0001
	wavFormatIEEEFloat  = 0x0003
	wavFormatExtensible = 0xFFFE

	// cbSize(2) + validBits(2) + channelMask(4) + SubFormat GUID(16)
	wavExtensibleSize   = 40
	wavSubFormatOffset  = 24
	wavBaseFormatLength = 16
)

// WAVDecoder decodes WAV files
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV() Decoder {
	return &WAVDecoder{}
}

// Decode reads a complete WAV stream
func (d *WAVDecoder) Decode(ctx context.Context, r io.Reader) (*audio.Decoded, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}

	header, err := readWAVHeader(rs)
	if err != nil {
		return nil, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind stream: %w", err)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrInvalidData)
	}

	switch header.tag {
	case wavFormatPCM:
		return decodeWAVInt(ctx, dec, header)
	case wavFormatIEEEFloat:
		return decodeWAVFloat(ctx, dec, header)
	default:
		return nil, fmt.Errorf("%w: WAV format tag 0x%04x", ErrUnsupportedFormat, header.tag)
	}
}

func decodeWAVInt(ctx context.Context, dec *wav.Decoder, header wavHeader) (*audio.Decoded, error) {
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: wav: %v", ErrInvalidData, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := header.checkLength(dec, len(buf.Data)); err != nil {
		return nil, err
	}

	return fromIntBuffer(buf, int(dec.BitDepth), CodecWAV)
}

func decodeWAVFloat(ctx context.Context, dec *wav.Decoder, header wavHeader) (*audio.Decoded, error) {
	bitDepth := int(dec.BitDepth)
	if bitDepth != 32 && bitDepth != 64 {
		return nil, fmt.Errorf("%w: %d-bit float WAV", ErrUnsupportedFormat, bitDepth)
	}
	if err := dec.FwdToPCM(); err != nil || dec.PCMChunk == nil {
		return nil, fmt.Errorf("%w: wav: PCM data not found", ErrInvalidData)
	}

	raw, err := io.ReadAll(dec.PCMChunk)
	if err != nil {
		return nil, fmt.Errorf("%w: wav: %v", ErrInvalidData, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width := bitDepth / 8
	samples := make([]float64, 0, len(raw)/width)
	for i := 0; i+width <= len(raw); i += width {
		var v float64
		if width == 4 {
			v = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i:])))
		} else {
			v = math.Float64frombits(binary.LittleEndian.Uint64(raw[i:]))
		}
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: wav: NaN sample at offset %d", ErrInvalidData, i)
		}
		samples = append(samples, audio.Clamp(v))
	}
	if err := header.checkLength(dec, len(samples)); err != nil {
		return nil, err
	}

	channels := int(dec.NumChans)
	return finish(&audio.Decoded{
		Channels:   audio.Deinterleave(samples, channels),
		SampleRate: int(dec.SampleRate),
		Format: audio.Format{
			Codec:      string(CodecWAV),
			SampleRate: int(dec.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	})
}

// wavHeader is what the decoder needs from the RIFF chunk headers that
// go-audio/wav does not expose
type wavHeader struct {
	tag      uint16
	dataSize int64
}

// checkLength rejects a stream whose data chunk ends before the size its
// header declares. Zero and 0xFFFFFFFF are streaming-writer placeholders.
func (h wavHeader) checkLength(dec *wav.Decoder, samples int) error {
	channels := int(dec.NumChans)
	frameBytes := int64((int(dec.BitDepth)+7)/8) * int64(channels)
	if h.dataSize <= 0 || h.dataSize == math.MaxUint32 || frameBytes == 0 {
		return nil
	}
	declared := h.dataSize / frameBytes
	if got := int64(samples / channels); got < declared {
		return fmt.Errorf("%w: wav: truncated, %d of %d frames", ErrInvalidData, got, declared)
	}
	return nil
}

// readWAVHeader walks the chunk headers up to the data chunk. It resolves
// WAVE_FORMAT_EXTENSIBLE to its SubFormat tag and keeps the unpadded data
// size.
func readWAVHeader(r io.Reader) (wavHeader, error) {
	var h wavHeader
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return h, fmt.Errorf("%w: not a valid WAV file: %v", ErrInvalidData, err)
	}
	if p.Format != riff.WavFormatID {
		return h, fmt.Errorf("%w: RIFF form %q is not WAVE", ErrInvalidData, p.Format[:])
	}

	haveFormat := false
	for {
		id, size, err := p.IDnSize()
		if err != nil {
			if !haveFormat {
				return h, fmt.Errorf("%w: WAV has no fmt chunk", ErrInvalidData)
			}
			return h, fmt.Errorf("%w: WAV has no data chunk", ErrInvalidData)
		}

		switch id {
		case riff.DataFormatID:
			if !haveFormat {
				return h, fmt.Errorf("%w: WAV data precedes fmt chunk", ErrInvalidData)
			}
			h.dataSize = int64(size)
			return h, nil

		case riff.FmtID:
			body := make([]byte, int64(size)+int64(size%2))
			if _, err := io.ReadFull(r, body); err != nil || size < wavBaseFormatLength {
				return h, fmt.Errorf("%w: short WAV fmt chunk", ErrInvalidData)
			}
			h.tag = binary.LittleEndian.Uint16(body)
			if h.tag == wavFormatExtensible {
				if size < wavExtensibleSize {
					return h, fmt.Errorf("%w: short WAVE_FORMAT_EXTENSIBLE fmt chunk", ErrInvalidData)
				}
				h.tag = binary.LittleEndian.Uint16(body[wavSubFormatOffset:])
			}
			haveFormat = true

		default:
			skip := int64(size) + int64(size%2)
			if n, err := io.CopyN(io.Discard, r, skip); err != nil || n != skip {
				return h, fmt.Errorf("%w: truncated WAV chunk %q", ErrInvalidData, id[:])
			}
		}
	}
}

// fromIntBuffer normalizes a go-audio integer buffer. 8-bit PCM is
// unsigned in both WAV and the go-audio decoders.
func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int, codec Codec) (*audio.Decoded, error) {
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: %s: missing format", ErrInvalidData, codec)
	}
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %s: %d channels", ErrInvalidData, codec, channels)
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		if bitDepth == 8 && codec == CodecWAV {
			v -= 128
		}
		samples[i] = audio.SampleFromInt(v, bitDepth)
	}

	return finish(&audio.Decoded{
		Channels:   audio.Deinterleave(samples, channels),
		SampleRate: buf.Format.SampleRate,
		Format: audio.Format{
			Codec:      string(codec),
			SampleRate: buf.Format.SampleRate,
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	})
}

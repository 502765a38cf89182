// ABOUTME: Audio decoder package for multiple container and codec support
// ABOUTME: Provides Decoder interface and WAV, AIFF, MP3, FLAC, Vorbis, PCM backends
// Package decode turns complete encoded audio streams into normalized,
// per-channel PCM buffers.
//
// Supports: WAV and AIFF (integer PCM, 8 to 32 bit), MP3, FLAC,
// Ogg Vorbis and headerless 16/24-bit little-endian PCM.
//
// All decoders implement the Decoder interface and return a validated
// audio.Decoded or an error wrapping ErrUnsupportedFormat, ErrInvalidData
// or ErrEmptyStream. Decoding checks the context between frames, so an
// abandoned request stops early.
//
// Example:
//
//	rd := decode.NewResourceDecoder(nil, logger)
//	decoded, err := rd.DecodeResource(ctx, "https://cdn.example.com/take.mp3")
package decode

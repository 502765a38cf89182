// ABOUTME: zap logger construction for the mixcheck binaries
// ABOUTME: Logs to a file and optionally to the console at a parsed level
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction
type Options struct {
	Level   string // debug, info, warn, error
	File    string // empty disables file output
	Console bool   // also log to stderr; off while a TUI owns the terminal
}

// New builds a sugared logger from options
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		parsed, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var outputs []string
	if opts.Console {
		outputs = append(outputs, "stderr")
	}
	if opts.File != "" {
		outputs = append(outputs, opts.File)
	}
	if len(outputs) == 0 {
		return zap.NewNop().Sugar(), nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Development = false
	cfg.Level = level
	cfg.OutputPaths = outputs
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}

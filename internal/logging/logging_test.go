// ABOUTME: Tests for logger construction
// ABOUTME: Checks level filtering and file output
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixcheck.log")

	logger, err := New(Options{Level: "info", File: path})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Debugw("hidden detail")
	logger.Infow("analysis complete", "file_id", "f1")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "analysis complete") || !strings.Contains(out, "f1") {
		t.Errorf("expected info entry in log, got %q", out)
	}
	if strings.Contains(out, "hidden detail") {
		t.Error("debug entry should be filtered at info level")
	}
}

func TestNewDebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")

	logger, err := New(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Debugw("decode started")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "decode started") {
		t.Errorf("expected debug entry, got %q", data)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewNoOutputs(t *testing.T) {
	logger, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Infow("dropped")
}

// ABOUTME: Tests for CLI helpers
// ABOUTME: Checks display names, drop folder registration and watch output lines
package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/pkg/analysis"
	"github.com/mixroom/mixcheck/pkg/protocol"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		resource string
		expected string
	}{
		{"https://cdn.example.com/p1/take-3.wav?sig=abc", "take-3.wav"},
		{"/tmp/mix/final.aiff", "final.aiff"},
		{"file:///srv/uploads/vox.mp3", "vox.mp3"},
		{"bare.wav", "bare.wav"},
	}

	for _, tt := range tests {
		if got := displayName(tt.resource); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.resource, tt.expected, got)
		}
	}
}

type staticAnalyzer struct{}

func (staticAnalyzer) Inspect(ctx context.Context, resource string) (analysis.Report, error) {
	return analysis.Report{Resource: resource, Metrics: analysis.Metrics{PeakLevel: 0.5, AverageLevel: 0.1, DynamicRange: 13.98}}, nil
}

func TestDropRegistry(t *testing.T) {
	ctx := context.Background()
	service, err := review.NewService(review.Config{
		Analyzer:   staticAnalyzer{},
		AllowLocal: true,
		Logger:     zaptest.NewLogger(t).Sugar(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	registry := newDropRegistry(service)
	dir := t.TempDir()
	take := filepath.Join(dir, "take.wav")

	if replaced, err := registry.add(ctx, take); err != nil || replaced {
		t.Fatalf("first add: replaced=%v err=%v", replaced, err)
	}
	files, _ := service.Files(ctx, *project)
	if _, err := service.Analyze(ctx, files[0].ID, false); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	// seen by both the startup scan and the watcher, or rewritten by rename
	if replaced, err := registry.add(ctx, dir+"/./take.wav"); err != nil || !replaced {
		t.Fatalf("second add: replaced=%v err=%v", replaced, err)
	}
	if _, err := registry.add(ctx, filepath.Join(dir, "other.wav")); err != nil {
		t.Fatalf("other add failed: %v", err)
	}

	files, _ = service.Files(ctx, *project)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	for _, f := range files {
		if f.URL == take && f.Report != nil {
			t.Error("rewritten file should need a fresh analysis")
		}
	}
}

// received round-trips a message the way the watch client sees it
func received(t *testing.T, msg protocol.Message) protocol.Message {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out protocol.Message
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

func TestWatchLine(t *testing.T) {
	tests := []struct {
		name     string
		msg      protocol.Message
		expected string
	}{
		{
			name:     "registered",
			msg:      protocol.Message{Type: protocol.TypeFileRegistered, Payload: protocol.FileEvent{Name: "a.wav", URL: "https://x/a.wav"}},
			expected: "file/registered a.wav (https://x/a.wav)",
		},
		{
			name: "succeeded",
			msg: protocol.Message{Type: protocol.TypeAnalysisSucceeded, Payload: protocol.AnalysisEvent{
				Name:    "a.wav",
				Metrics: &analysis.Metrics{PeakLevel: 1, AverageLevel: 0.5, DynamicRange: 6.02, ClippingPoints: 2},
				Flags: []protocol.Flag{
					{Metric: "peakLevel", Severity: "fail"},
					{Metric: "dynamicRange", Severity: "ok"},
				},
			}},
			expected: "analysis/succeeded a.wav: fail, peak 1.00, 2 clips",
		},
		{
			name:     "failed",
			msg:      protocol.Message{Type: protocol.TypeAnalysisFailed, Payload: protocol.AnalysisEvent{Name: "a.wav", Error: "decode a.wav: bad header"}},
			expected: "analysis/failed a.wav: decode a.wav: bad header",
		},
		{
			name:     "review",
			msg:      protocol.Message{Type: protocol.TypeReviewSubmitted, Payload: protocol.ReviewEvent{FileID: "f1", Status: "approved", Feedback: "clean"}},
			expected: "review/submitted f1: approved (clean)",
		},
		{
			name:     "unknown",
			msg:      protocol.Message{Type: "server/error", Payload: map[string]string{"error": "x"}},
			expected: "server/error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := watchLine(received(t, tt.msg)); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// ABOUTME: Tests for mixcheck event message types
// ABOUTME: Verifies envelope encoding and typed payload decoding
package protocol

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/mixroom/mixcheck/pkg/analysis"
)

func TestAnalysisEventMarshaling(t *testing.T) {
	event := AnalysisEvent{
		FileID: "file-1",
		Name:   "vocals.wav",
		URL:    "https://cdn.example.com/vocals.wav",
		Metrics: &analysis.Metrics{
			PeakLevel:      0.99,
			AverageLevel:   0.5,
			DynamicRange:   5.93,
			ClippingPoints: 2,
			Duration:       3.5,
		},
		Flags: []Flag{{Metric: "peakLevel", Severity: "fail", Message: "peak above 0.99"}},
	}

	data, err := json.Marshal(Message{Type: TypeAnalysisSucceeded, Payload: event})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Type != TypeAnalysisSucceeded {
		t.Errorf("expected type %s, got %s", TypeAnalysisSucceeded, decoded.Type)
	}

	var payload AnalysisEvent
	if err := decoded.DecodePayload(&payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.FileID != "file-1" || payload.Metrics == nil || payload.Metrics.ClippingPoints != 2 {
		t.Errorf("unexpected payload: %+v", payload)
	}
	if len(payload.Flags) != 1 || payload.Flags[0].Severity != "fail" {
		t.Errorf("unexpected flags: %+v", payload.Flags)
	}
}

func TestAnalysisEventSilentMetrics(t *testing.T) {
	event := AnalysisEvent{
		FileID:  "file-2",
		Metrics: &analysis.Metrics{DynamicRange: analysis.SilentDynamicRange, Duration: 1},
	}

	data, err := json.Marshal(Message{Type: TypeAnalysisSucceeded, Payload: event})
	if err != nil {
		t.Fatalf("failed to marshal silent metrics: %v", err)
	}
	if !strings.Contains(string(data), `"dynamicRange":null`) {
		t.Errorf("expected null dynamic range, got %s", data)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	var payload AnalysisEvent
	if err := decoded.DecodePayload(&payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if !math.IsInf(payload.Metrics.DynamicRange, 1) {
		t.Errorf("expected +Inf dynamic range, got %f", payload.Metrics.DynamicRange)
	}
}

func TestDecodePayload_TypeMismatch(t *testing.T) {
	msg := Message{Type: TypeReviewSubmitted, Payload: map[string]interface{}{"status": 42}}

	var payload ReviewEvent
	if err := msg.DecodePayload(&payload); err == nil {
		t.Error("expected error for mismatched payload, got nil")
	}
}

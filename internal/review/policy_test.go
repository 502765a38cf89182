// ABOUTME: Tests for review policy evaluation
// ABOUTME: Covers each threshold, the silent signal case and worst severity
package review

import (
	"testing"

	"github.com/mixroom/mixcheck/pkg/analysis"
)

func severities(flags []Flag) map[string]Severity {
	out := make(map[string]Severity, len(flags))
	for _, f := range flags {
		out[f.Metric] = f.Severity
	}
	return out
}

func TestPolicyEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		metrics analysis.Metrics
		peak    Severity
		dr      Severity
		clips   Severity
		worst   Severity
	}{
		{
			name:    "clean master",
			metrics: analysis.Metrics{PeakLevel: 0.9, AverageLevel: 0.2, DynamicRange: 13.1},
			peak:    SeverityOK, dr: SeverityOK, clips: SeverityOK, worst: SeverityOK,
		},
		{
			name:    "peak at threshold passes",
			metrics: analysis.Metrics{PeakLevel: 0.99, AverageLevel: 0.3, DynamicRange: 10.4},
			peak:    SeverityOK, dr: SeverityOK, clips: SeverityOK, worst: SeverityOK,
		},
		{
			name:    "over peak and clipping",
			metrics: analysis.Metrics{PeakLevel: 1.0, AverageLevel: 0.3, DynamicRange: 10.5, ClippingPoints: 12},
			peak:    SeverityFail, dr: SeverityOK, clips: SeverityFail, worst: SeverityFail,
		},
		{
			name:    "overcompressed",
			metrics: analysis.Metrics{PeakLevel: 0.95, AverageLevel: 0.716, DynamicRange: 2.81},
			peak:    SeverityOK, dr: SeverityWarn, clips: SeverityOK, worst: SeverityWarn,
		},
		{
			name:    "silent",
			metrics: analysis.Metrics{DynamicRange: analysis.SilentDynamicRange},
			peak:    SeverityOK, dr: SeverityWarn, clips: SeverityOK, worst: SeverityWarn,
		},
	}

	policy := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := policy.Evaluate(tt.metrics)
			if len(flags) != 3 {
				t.Fatalf("expected 3 flags, got %d", len(flags))
			}
			got := severities(flags)
			if got[MetricPeakLevel] != tt.peak {
				t.Errorf("peak: expected %s, got %s", tt.peak, got[MetricPeakLevel])
			}
			if got[MetricDynamicRange] != tt.dr {
				t.Errorf("dynamic range: expected %s, got %s", tt.dr, got[MetricDynamicRange])
			}
			if got[MetricClippingPoints] != tt.clips {
				t.Errorf("clipping: expected %s, got %s", tt.clips, got[MetricClippingPoints])
			}
			if w := Worst(flags); w != tt.worst {
				t.Errorf("worst: expected %s, got %s", tt.worst, w)
			}
		})
	}
}

func TestPolicyEvaluate_SilentMessage(t *testing.T) {
	flags := DefaultPolicy().Evaluate(analysis.Metrics{DynamicRange: analysis.SilentDynamicRange})
	for _, f := range flags {
		if f.Metric == MetricDynamicRange && f.Message != "silent signal, dynamic range undefined" {
			t.Errorf("unexpected silent message: %q", f.Message)
		}
	}
}

func TestPolicyEvaluate_CustomThresholds(t *testing.T) {
	policy := Policy{MaxPeak: 0.9, MinDynamicRange: 12, MaxClippingPoints: 5}
	got := severities(policy.Evaluate(analysis.Metrics{
		PeakLevel: 0.95, AverageLevel: 0.3, DynamicRange: 10, ClippingPoints: 5,
	}))

	if got[MetricPeakLevel] != SeverityFail {
		t.Errorf("expected peak fail, got %s", got[MetricPeakLevel])
	}
	if got[MetricDynamicRange] != SeverityWarn {
		t.Errorf("expected dynamic range warn, got %s", got[MetricDynamicRange])
	}
	if got[MetricClippingPoints] != SeverityOK {
		t.Errorf("expected clipping ok at the limit, got %s", got[MetricClippingPoints])
	}
}

func TestWorst_Empty(t *testing.T) {
	if w := Worst(nil); w != SeverityOK {
		t.Errorf("expected ok for no flags, got %s", w)
	}
}

func TestStatus(t *testing.T) {
	if !StatusApproved.Valid() || !StatusRejected.Valid() {
		t.Error("expected approved and rejected to be valid")
	}
	if Status("maybe").Valid() {
		t.Error("expected unknown status to be invalid")
	}
	if StatusRejected.Label() != "Request Re-recording" {
		t.Errorf("unexpected rejected label: %s", StatusRejected.Label())
	}
}

func TestAllowed(t *testing.T) {
	tests := map[string]bool{
		"audio/wav":                  true,
		"audio/x-wav":                true,
		"audio/aiff":                 true,
		"audio/mpeg":                 true,
		"audio/mp3":                  true,
		"audio/mpeg; charset=binary": true,
		"AUDIO/WAV":                  true,
		"audio/flac":                 false,
		"video/mp4":                  false,
		"":                           false,
	}
	for contentType, want := range tests {
		if got := Allowed(contentType); got != want {
			t.Errorf("Allowed(%q): expected %v, got %v", contentType, want, got)
		}
	}
}

// ABOUTME: Review policy thresholds
// ABOUTME: Turns analysis metrics into ok/warn/fail flags for reviewers
package review

import (
	"fmt"

	"github.com/mixroom/mixcheck/pkg/analysis"
)

// Severity grades a single metric against the policy
type Severity string

const (
	SeverityOK   Severity = "ok"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

func (s Severity) rank() int {
	switch s {
	case SeverityFail:
		return 2
	case SeverityWarn:
		return 1
	default:
		return 0
	}
}

// Metric names used in flags, matching the metrics JSON fields
const (
	MetricPeakLevel      = "peakLevel"
	MetricDynamicRange   = "dynamicRange"
	MetricClippingPoints = "clippingPoints"
)

// Flag is the verdict on one metric
type Flag struct {
	Metric   string   `json:"metric"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Policy holds the review thresholds
type Policy struct {
	MaxPeak           float64 `json:"maxPeak"`           // peak above this fails
	MinDynamicRange   float64 `json:"minDynamicRange"`   // dB, below this warns
	MaxClippingPoints int     `json:"maxClippingPoints"` // clips above this fail
}

// DefaultPolicy returns the standard mastering gate
func DefaultPolicy() Policy {
	return Policy{
		MaxPeak:           0.99,
		MinDynamicRange:   6,
		MaxClippingPoints: 0,
	}
}

// Evaluate flags peak level, dynamic range and clipping, in that order
func (p Policy) Evaluate(m analysis.Metrics) []Flag {
	flags := make([]Flag, 0, 3)

	if m.PeakLevel > p.MaxPeak {
		flags = append(flags, Flag{MetricPeakLevel, SeverityFail,
			fmt.Sprintf("peak %.1f%% exceeds %.1f%%", m.PeakLevel*100, p.MaxPeak*100)})
	} else {
		flags = append(flags, Flag{MetricPeakLevel, SeverityOK,
			fmt.Sprintf("peak %.1f%%", m.PeakLevel*100)})
	}

	switch {
	case m.Silent():
		flags = append(flags, Flag{MetricDynamicRange, SeverityWarn,
			"silent signal, dynamic range undefined"})
	case m.DynamicRange < p.MinDynamicRange:
		flags = append(flags, Flag{MetricDynamicRange, SeverityWarn,
			fmt.Sprintf("dynamic range %.1f dB below %.1f dB", m.DynamicRange, p.MinDynamicRange)})
	default:
		flags = append(flags, Flag{MetricDynamicRange, SeverityOK,
			fmt.Sprintf("dynamic range %.1f dB", m.DynamicRange)})
	}

	if m.ClippingPoints > p.MaxClippingPoints {
		flags = append(flags, Flag{MetricClippingPoints, SeverityFail,
			fmt.Sprintf("%d clipping points", m.ClippingPoints)})
	} else {
		flags = append(flags, Flag{MetricClippingPoints, SeverityOK,
			fmt.Sprintf("%d clipping points", m.ClippingPoints)})
	}

	return flags
}

// Worst returns the most severe flag level, SeverityOK for none
func Worst(flags []Flag) Severity {
	worst := SeverityOK
	for _, f := range flags {
		if f.Severity.rank() > worst.rank() {
			worst = f.Severity
		}
	}
	return worst
}

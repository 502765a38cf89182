// ABOUTME: Audio metrics value type
// ABOUTME: Holds the analysis result and its JSON form with the silent sentinel
package analysis

import (
	"encoding/json"
	"math"
)

// DefaultClipThreshold is the absolute amplitude counted as a clip
const DefaultClipThreshold = 0.99

// SilentDynamicRange is reported when the average level is zero
var SilentDynamicRange = math.Inf(1)

// Metrics is the result of one analysis
type Metrics struct {
	PeakLevel      float64 // max |s|, [0,1]
	AverageLevel   float64 // mean |s|, [0,1]
	DynamicRange   float64 // dB, SilentDynamicRange when AverageLevel is 0
	ClippingPoints int
	Duration       float64 // seconds
}

// Silent reports whether the analyzed signal was all zeros, in which case
// DynamicRange holds SilentDynamicRange.
func (m Metrics) Silent() bool {
	return m.AverageLevel == 0
}

type metricsJSON struct {
	PeakLevel      float64  `json:"peakLevel"`
	AverageLevel   float64  `json:"averageLevel"`
	DynamicRange   *float64 `json:"dynamicRange"`
	ClippingPoints int      `json:"clippingPoints"`
	Duration       float64  `json:"duration"`
	Silent         bool     `json:"silent,omitempty"`
}

// MarshalJSON writes dynamicRange as null for silent signals since JSON
// has no infinity.
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := metricsJSON{
		PeakLevel:      m.PeakLevel,
		AverageLevel:   m.AverageLevel,
		ClippingPoints: m.ClippingPoints,
		Duration:       m.Duration,
		Silent:         m.Silent(),
	}
	if !math.IsInf(m.DynamicRange, 0) && !math.IsNaN(m.DynamicRange) {
		dr := m.DynamicRange
		out.DynamicRange = &dr
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores SilentDynamicRange for a null dynamicRange
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var in metricsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = Metrics{
		PeakLevel:      in.PeakLevel,
		AverageLevel:   in.AverageLevel,
		DynamicRange:   SilentDynamicRange,
		ClippingPoints: in.ClippingPoints,
		Duration:       in.Duration,
	}
	if in.DynamicRange != nil {
		m.DynamicRange = *in.DynamicRange
	}
	return nil
}

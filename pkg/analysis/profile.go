// ABOUTME: Per-channel level profile and analysis report
// ABOUTME: Summarizes every decoded channel with gonum vector helpers
package analysis

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mixroom/mixcheck/pkg/audio"
)

// ChannelLevels summarizes one decoded channel
type ChannelLevels struct {
	Channel        int     `json:"channel"`
	Peak           float64 `json:"peak"`
	Average        float64 `json:"average"` // mean |s|
	RMS            float64 `json:"rms"`
	DCOffset       float64 `json:"dcOffset"` // signed mean
	ClippingPoints int     `json:"clippingPoints"`
}

// Report is the full result of Inspect
type Report struct {
	Resource      string           `json:"resource"`
	Metrics       Metrics          `json:"metrics"`
	Format        audio.Format     `json:"format"`
	Selection     ChannelSelection `json:"channelSelection"`
	ClipThreshold float64          `json:"clipThreshold"`
	Channels      []ChannelLevels  `json:"channels"`
	InspectedAt   time.Time        `json:"inspectedAt"`
}

// Profile computes ChannelLevels for every channel of d
func Profile(d *audio.Decoded, clipThreshold float64) []ChannelLevels {
	if clipThreshold <= 0 {
		clipThreshold = DefaultClipThreshold
	}
	out := make([]ChannelLevels, 0, d.NumChannels())
	for ch, samples := range d.Channels {
		out = append(out, channelLevels(ch, samples, clipThreshold))
	}
	return out
}

func channelLevels(ch int, samples []float64, clipThreshold float64) ChannelLevels {
	levels := ChannelLevels{Channel: ch}
	n := float64(len(samples))
	if n == 0 {
		return levels
	}

	levels.Peak = floats.Norm(samples, math.Inf(1))
	levels.Average = floats.Norm(samples, 1) / n
	levels.RMS = floats.Norm(samples, 2) / math.Sqrt(n)
	levels.DCOffset = stat.Mean(samples, nil)
	for _, s := range samples {
		if math.Abs(s) >= clipThreshold {
			levels.ClippingPoints++
		}
	}
	return levels
}

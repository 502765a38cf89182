// ABOUTME: Channel selection policy
// ABOUTME: Chooses which decoded channels feed the metrics scan
package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mixroom/mixcheck/pkg/audio"
)

type selectionMode int

const (
	selectOne selectionMode = iota
	selectAll
)

// ChannelSelection picks the samples an analysis scans. The zero value is
// FirstChannel.
type ChannelSelection struct {
	mode  selectionMode
	index int
}

// FirstChannel analyzes channel 0 only (the default)
func FirstChannel() ChannelSelection {
	return ChannelSelection{mode: selectOne, index: 0}
}

// Channel analyzes a single channel by index
func Channel(index int) ChannelSelection {
	return ChannelSelection{mode: selectOne, index: index}
}

// AllChannels pools every channel: peak and clips over all samples, average
// over the total sample count.
func AllChannels() ChannelSelection {
	return ChannelSelection{mode: selectAll}
}

// All reports whether every channel is pooled
func (s ChannelSelection) All() bool {
	return s.mode == selectAll
}

// Index returns the selected channel, -1 when pooling
func (s ChannelSelection) Index() int {
	if s.All() {
		return -1
	}
	return s.index
}

func (s ChannelSelection) String() string {
	if s.All() {
		return "all"
	}
	return strconv.Itoa(s.index)
}

// ParseChannelSelection parses "all" or a channel index
func ParseChannelSelection(text string) (ChannelSelection, error) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "all" {
		return AllChannels(), nil
	}
	index, err := strconv.Atoi(text)
	if err != nil || index < 0 {
		return ChannelSelection{}, fmt.Errorf("invalid channel selection %q", text)
	}
	return Channel(index), nil
}

func (s ChannelSelection) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ChannelSelection) UnmarshalText(text []byte) error {
	parsed, err := ParseChannelSelection(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// pick returns the channel slices to scan
func (s ChannelSelection) pick(d *audio.Decoded) ([][]float64, error) {
	if s.All() {
		return d.Channels, nil
	}
	if s.index < 0 || s.index >= d.NumChannels() {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrChannelOutOfRange, s.index, d.NumChannels())
	}
	return d.Channels[s.index : s.index+1], nil
}

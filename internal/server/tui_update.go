// ABOUTME: TUI update helpers for the review server
// ABOUTME: Builds a status snapshot from the hub for the server TUI
package server

import (
	"fmt"
	"sort"
	"time"

	"github.com/mixroom/mixcheck/pkg/protocol"
)

// updateTUI sends current server state to the TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.status())
}

// status snapshots the file board, watchers and recent events
func (s *Server) status() ServerStatus {
	watchers := s.hub.Watchers()
	sort.Slice(watchers, func(i, j int) bool {
		return watchers[i].ConnectedAt.Before(watchers[j].ConnectedAt)
	})

	infos := make([]WatcherInfo, 0, len(watchers))
	for _, w := range watchers {
		infos = append(infos, WatcherInfo{
			Name:      w.Name,
			ID:        w.ID,
			Connected: time.Since(w.ConnectedAt),
		})
	}

	recent := s.hub.Recent()
	events := make([]string, 0, len(recent))
	for _, msg := range recent {
		events = append(events, describeEvent(msg))
	}

	return ServerStatus{
		Name:     s.config.Name,
		Port:     s.config.Port,
		Files:    s.hub.Files(),
		Watchers: infos,
		Events:   events,
	}
}

// describeEvent renders one event as a single status line
func describeEvent(msg protocol.Message) string {
	switch p := msg.Payload.(type) {
	case protocol.FileEvent:
		return fmt.Sprintf("%s %s", msg.Type, p.Name)
	case protocol.AnalysisEvent:
		if p.Error != "" {
			return fmt.Sprintf("%s %s: %s", msg.Type, p.Name, p.Error)
		}
		if p.Metrics != nil {
			return fmt.Sprintf("%s %s: peak %.2f, %d clips", msg.Type, p.Name, p.Metrics.PeakLevel, p.Metrics.ClippingPoints)
		}
		return fmt.Sprintf("%s %s", msg.Type, p.Name)
	case protocol.ReviewEvent:
		return fmt.Sprintf("%s %s: %s", msg.Type, p.FileID, p.Status)
	default:
		return msg.Type
	}
}

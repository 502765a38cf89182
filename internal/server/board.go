// ABOUTME: Per-file review board built from workflow events
// ABOUTME: Tracks the latest stage, verdict and metrics of every file
package server

import (
	"sort"
	"time"

	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/pkg/analysis"
	"github.com/mixroom/mixcheck/pkg/protocol"
)

// File stages shown on the board
const (
	StageRegistered = "registered"
	StageReplaced   = "replaced"
	StageAnalyzing  = "analyzing"
	StageAnalyzed   = "analyzed"
	StageFailed     = "failed"
	StageCancelled  = "cancelled"
)

// FileRow is the latest known state of one file
type FileRow struct {
	FileID   string
	Name     string
	Stage    string
	Verdict  review.Severity // empty until an analysis succeeds
	Metrics  *analysis.Metrics
	Decision string // status of the last review, if any
	Updated  time.Time
}

// board folds events into one row per file. Callers synchronize.
type board struct {
	rows map[string]*FileRow
}

func newBoard() *board {
	return &board{rows: make(map[string]*FileRow)}
}

func (b *board) row(id string) *FileRow {
	row, ok := b.rows[id]
	if !ok {
		row = &FileRow{FileID: id}
		b.rows[id] = row
	}
	return row
}

// apply records msg. Messages without a file payload are ignored.
func (b *board) apply(msg protocol.Message, now time.Time) {
	var row *FileRow

	switch p := msg.Payload.(type) {
	case protocol.FileEvent:
		row = b.row(p.FileID)
		row.Name = p.Name
		row.Stage = StageRegistered
		if msg.Type == protocol.TypeFileReplaced {
			row.Stage = StageReplaced
		}
		row.Verdict, row.Metrics, row.Decision = "", nil, ""

	case protocol.AnalysisEvent:
		row = b.row(p.FileID)
		if p.Name != "" {
			row.Name = p.Name
		}
		switch msg.Type {
		case protocol.TypeAnalysisStarted:
			row.Stage = StageAnalyzing
		case protocol.TypeAnalysisSucceeded:
			row.Stage = StageAnalyzed
			row.Metrics = p.Metrics
			row.Verdict = verdict(p.Flags)
		case protocol.TypeAnalysisFailed:
			row.Stage = StageFailed
		case protocol.TypeAnalysisCancelled:
			row.Stage = StageCancelled
		}

	case protocol.ReviewEvent:
		row = b.row(p.FileID)
		row.Decision = p.Status
		row.Stage = p.Status

	default:
		return
	}
	row.Updated = now
}

// snapshot returns the rows, most recently updated first
func (b *board) snapshot() []FileRow {
	out := make([]FileRow, 0, len(b.rows))
	for _, row := range b.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Updated.Equal(out[j].Updated) {
			return out[i].Updated.After(out[j].Updated)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func verdict(flags []protocol.Flag) review.Severity {
	converted := make([]review.Flag, len(flags))
	for i, f := range flags {
		converted[i] = review.Flag{Metric: f.Metric, Severity: review.Severity(f.Severity), Message: f.Message}
	}
	return review.Worst(converted)
}

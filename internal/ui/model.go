// ABOUTME: Bubbletea model for the review TUI
// ABOUTME: Lists files, runs cancellable analyses, previews audio and records decisions
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/pkg/analysis"
)

// Workflow is the review service as seen by the TUI
type Workflow interface {
	Files(ctx context.Context, projectID string) ([]review.File, error)
	Analyze(ctx context.Context, id string, force bool) (review.Result, error)
	Submit(ctx context.Context, id string, status review.Status, feedback string) (review.Review, error)
}

// Previewer plays a file's audio
type Previewer interface {
	Preview(ctx context.Context, resource string) error
	Stop()
}

type mode int

const (
	modeBrowse mode = iota
	modeFeedback
)

// Model represents the TUI state
type Model struct {
	workflow  Workflow
	previewer Previewer
	projectID string
	refresh   <-chan struct{}

	files     []review.File
	results   map[string]review.Result
	decisions map[string]review.Review
	selected  int

	// In-flight analysis; seq discards results from superseded runs
	analyzing string
	seq       uint64
	cancel    context.CancelFunc

	mode     mode
	pending  review.Status
	feedback string

	playing string
	status  string
	failed  bool

	width    int
	height   int
	quitting bool
}

type filesMsg struct {
	files []review.File
	err   error
}

type analysisMsg struct {
	seq    uint64
	fileID string
	result review.Result
	err    error
}

type reviewMsg struct {
	review review.Review
	err    error
}

type refreshMsg struct{}

type previewMsg struct {
	resource string
	err      error
}

// Init loads the file list
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadFiles(), m.waitRefresh())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeFeedback {
			return m.handleFeedbackKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case filesMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("load files: %w", msg.err))
			return m, nil
		}
		m.files = msg.files
		if m.selected >= len(m.files) {
			m.selected = max(len(m.files)-1, 0)
		}
		for _, f := range m.files {
			if f.Report != nil {
				if _, ok := m.results[f.ID]; !ok {
					m.results[f.ID] = review.Result{File: f, Report: *f.Report}
				}
			}
		}

	case analysisMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.analyzing = ""
		m.cancel = nil
		switch {
		case errors.Is(msg.err, analysis.ErrCancelled):
			m.setStatus("analysis cancelled")
		case msg.err != nil:
			m.setError(msg.err)
		default:
			m.results[msg.fileID] = msg.result
			m.replaceFile(msg.result.File)
			verdict := review.Worst(msg.result.Flags)
			if msg.result.Cached {
				m.setStatus(fmt.Sprintf("analysis %s (cached)", verdict))
			} else {
				m.setStatus(fmt.Sprintf("analysis %s", verdict))
			}
		}

	case refreshMsg:
		return m, tea.Batch(m.loadFiles(), m.waitRefresh())

	case reviewMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.decisions[msg.review.FileID] = msg.review
		m.setStatus(fmt.Sprintf("%s recorded", msg.review.Status.Label()))

	case previewMsg:
		switch {
		case errors.Is(msg.err, context.Canceled):
		case msg.err != nil:
			if m.playing == msg.resource {
				m.playing = ""
			}
			m.setError(msg.err)
		default:
			m.playing = msg.resource
		}
	}

	return m, nil
}

// handleKey handles keyboard input while browsing
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.cancelAnalysis()
		if m.previewer != nil {
			m.previewer.Stop()
		}
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selectFile(m.selected - 1)
		}
	case "down", "j":
		if m.selected < len(m.files)-1 {
			m.selectFile(m.selected + 1)
		}
	case "a":
		return m.startAnalysis(false)
	case "A":
		return m.startAnalysis(true)
	case "p":
		return m.startPreview()
	case "s":
		if m.previewer != nil {
			m.previewer.Stop()
		}
		m.playing = ""
	case "r":
		return m, m.loadFiles()
	case "y":
		m.beginFeedback(review.StatusApproved)
	case "n":
		m.beginFeedback(review.StatusRejected)
	}

	return m, nil
}

// handleFeedbackKey edits the feedback line for a pending decision
func (m Model) handleFeedbackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancelAnalysis()
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.feedback = ""
		m.setStatus("decision discarded")
	case tea.KeyEnter:
		feedback := strings.TrimSpace(m.feedback)
		if feedback == "" {
			m.setError(review.ErrFeedbackRequired)
			return m, nil
		}
		file, ok := m.current()
		if !ok {
			m.mode = modeBrowse
			return m, nil
		}
		m.mode = modeBrowse
		m.feedback = ""
		return m, m.submit(file.ID, m.pending, feedback)
	case tea.KeyBackspace:
		if r := []rune(m.feedback); len(r) > 0 {
			m.feedback = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.feedback += " "
	case tea.KeyRunes:
		m.feedback += string(msg.Runes)
	}
	return m, nil
}

// selectFile moves the cursor. Moving away cancels an in-flight analysis.
func (m *Model) selectFile(i int) {
	if m.analyzing != "" {
		m.cancelAnalysis()
		m.setStatus("analysis cancelled")
	}
	m.selected = i
}

func (m *Model) cancelAnalysis() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.analyzing != "" {
		m.analyzing = ""
		// Any result still in flight is now stale
		m.seq++
	}
}

func (m Model) startAnalysis(force bool) (tea.Model, tea.Cmd) {
	file, ok := m.current()
	if !ok {
		return m, nil
	}
	m.cancelAnalysis()

	ctx, cancel := context.WithCancel(context.Background())
	m.seq++
	m.cancel = cancel
	m.analyzing = file.ID
	m.setStatus("analyzing " + file.Name)

	seq, workflow := m.seq, m.workflow
	return m, func() tea.Msg {
		defer cancel()
		result, err := workflow.Analyze(ctx, file.ID, force)
		return analysisMsg{seq: seq, fileID: file.ID, result: result, err: err}
	}
}

func (m Model) startPreview() (tea.Model, tea.Cmd) {
	file, ok := m.current()
	if !ok {
		return m, nil
	}
	if m.previewer == nil {
		m.setError(errors.New("playback unavailable"))
		return m, nil
	}
	m.setStatus("loading preview of " + file.Name)

	previewer := m.previewer
	return m, func() tea.Msg {
		err := previewer.Preview(context.Background(), file.URL)
		return previewMsg{resource: file.URL, err: err}
	}
}

func (m *Model) beginFeedback(status review.Status) {
	if _, ok := m.current(); !ok {
		return
	}
	m.mode = modeFeedback
	m.pending = status
	m.feedback = ""
	m.setStatus("")
}

func (m Model) submit(id string, status review.Status, feedback string) tea.Cmd {
	workflow := m.workflow
	return func() tea.Msg {
		rev, err := workflow.Submit(context.Background(), id, status, feedback)
		return reviewMsg{review: rev, err: err}
	}
}

func (m Model) loadFiles() tea.Cmd {
	workflow, projectID := m.workflow, m.projectID
	return func() tea.Msg {
		files, err := workflow.Files(context.Background(), projectID)
		return filesMsg{files: files, err: err}
	}
}

// waitRefresh turns the next external change notice into a reload
func (m Model) waitRefresh() tea.Cmd {
	if m.refresh == nil {
		return nil
	}
	refresh := m.refresh
	return func() tea.Msg {
		if _, ok := <-refresh; !ok {
			return nil
		}
		return refreshMsg{}
	}
}

func (m Model) current() (review.File, bool) {
	if m.selected < 0 || m.selected >= len(m.files) {
		return review.File{}, false
	}
	return m.files[m.selected], true
}

func (m *Model) replaceFile(f review.File) {
	for i := range m.files {
		if m.files[i].ID == f.ID {
			m.files[i] = f
			return
		}
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.failed = true
}

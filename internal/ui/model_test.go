// ABOUTME: Tests for the review TUI model
// ABOUTME: Tests file loading, cancellable analysis, previews and decisions
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/pkg/analysis"
)

type fakeWorkflow struct {
	mu        sync.Mutex
	files     []review.File
	block     bool
	started   chan string
	submitted []review.Review
	metrics   analysis.Metrics
}

func (f *fakeWorkflow) Files(ctx context.Context, projectID string) ([]review.File, error) {
	return f.files, nil
}

func (f *fakeWorkflow) Analyze(ctx context.Context, id string, force bool) (review.Result, error) {
	if f.started != nil {
		f.started <- id
	}
	if f.block {
		<-ctx.Done()
		return review.Result{}, fmt.Errorf("%w: %w", analysis.ErrCancelled, ctx.Err())
	}
	file := review.File{ID: id, Name: id + ".wav"}
	return review.Result{
		File:   file,
		Report: analysis.Report{Metrics: f.metrics},
		Flags:  review.DefaultPolicy().Evaluate(f.metrics),
		Cached: !force && id == "cached",
	}, nil
}

func (f *fakeWorkflow) Submit(ctx context.Context, id string, status review.Status, feedback string) (review.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev := review.Review{ID: "r1", FileID: id, Status: status, Feedback: feedback}
	f.submitted = append(f.submitted, rev)
	return rev, nil
}

type fakePreviewer struct {
	err     error
	stopped int
}

func (p *fakePreviewer) Preview(ctx context.Context, resource string) error {
	return p.err
}

func (p *fakePreviewer) Stop() {
	p.stopped++
}

func testFiles() []review.File {
	return []review.File{
		{ID: "f1", Name: "take-1.wav", URL: "https://cdn.example.com/take-1.wav"},
		{ID: "f2", Name: "take-2.wav", URL: "https://cdn.example.com/take-2.wav"},
	}
}

func loaded(t *testing.T, wf *fakeWorkflow, previewer Previewer) Model {
	t.Helper()
	m := NewModel(Config{Workflow: wf, Previewer: previewer})
	msg := m.loadFiles()()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func press(m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	updated, cmd := m.Update(key)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	model := NewModel(Config{Workflow: &fakeWorkflow{}})

	if model.mode != modeBrowse {
		t.Error("expected browse mode initially")
	}
	if model.analyzing != "" || model.playing != "" {
		t.Error("expected nothing in flight initially")
	}
	if model.results == nil || model.decisions == nil {
		t.Error("expected result maps initialized")
	}
}

func TestFilesLoaded(t *testing.T) {
	m := loaded(t, &fakeWorkflow{files: testFiles()}, nil)

	if len(m.files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(m.files))
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Errorf("expected selection 1, got %d", m.selected)
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Errorf("selection should stop at last file, got %d", m.selected)
	}
	m, _ = press(m, runes("k"))
	if m.selected != 0 {
		t.Errorf("expected selection 0, got %d", m.selected)
	}
}

func TestFilesLoadError(t *testing.T) {
	m := NewModel(Config{Workflow: &fakeWorkflow{}})
	updated, _ := m.Update(filesMsg{err: errors.New("store offline")})
	m = updated.(Model)

	if !m.failed || !strings.Contains(m.status, "store offline") {
		t.Errorf("expected load error in status, got %q", m.status)
	}
}

func TestAnalyze(t *testing.T) {
	wf := &fakeWorkflow{
		files:   testFiles(),
		metrics: analysis.Metrics{PeakLevel: 1, AverageLevel: 0.5, DynamicRange: 6.02, ClippingPoints: 4},
	}
	m := loaded(t, wf, nil)

	m, cmd := press(m, runes("a"))
	if cmd == nil {
		t.Fatal("expected analysis command")
	}
	if m.analyzing != "f1" {
		t.Errorf("expected f1 analyzing, got %q", m.analyzing)
	}

	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if m.analyzing != "" {
		t.Error("expected analysis finished")
	}
	result, ok := m.results["f1"]
	if !ok {
		t.Fatal("expected result stored")
	}
	if review.Worst(result.Flags) != review.SeverityFail {
		t.Errorf("expected failing verdict, got %+v", result.Flags)
	}
	if m.status != "analysis fail" {
		t.Errorf("unexpected status %q", m.status)
	}

	view := m.View()
	if !strings.Contains(view, "take-1.wav") || !strings.Contains(view, "exceeds") {
		t.Errorf("expected file and flag in view:\n%s", view)
	}
}

func TestSelectionChangeCancelsAnalysis(t *testing.T) {
	wf := &fakeWorkflow{files: testFiles(), block: true, started: make(chan string, 1)}
	m := loaded(t, wf, nil)

	m, cmd := press(m, runes("a"))
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case <-wf.started:
	case <-time.After(time.Second):
		t.Fatal("analysis did not start")
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.analyzing != "" {
		t.Error("expected analysis cleared on selection change")
	}
	if m.status != "analysis cancelled" {
		t.Errorf("unexpected status %q", m.status)
	}

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(time.Second):
		t.Fatal("analysis was not cancelled")
	}
	result := msg.(analysisMsg)
	if !errors.Is(result.err, analysis.ErrCancelled) {
		t.Errorf("expected cancelled error, got %v", result.err)
	}

	// The stale result must not touch the model
	updated, _ := m.Update(msg)
	m = updated.(Model)
	if _, ok := m.results["f1"]; ok {
		t.Error("stale result should be discarded")
	}
	if m.failed {
		t.Errorf("stale cancellation should not surface an error: %q", m.status)
	}
}

func TestStaleAnalysisIgnored(t *testing.T) {
	m := loaded(t, &fakeWorkflow{files: testFiles()}, nil)
	m, first := press(m, runes("a"))
	m, second := press(m, runes("A"))

	staleMsg := first()
	updated, _ := m.Update(staleMsg)
	m = updated.(Model)
	if m.analyzing != "f1" {
		t.Error("stale result should not end the current analysis")
	}

	updated, _ = m.Update(second())
	m = updated.(Model)
	if m.analyzing != "" {
		t.Error("current result should end the analysis")
	}
}

func TestDecisionFlow(t *testing.T) {
	wf := &fakeWorkflow{files: testFiles()}
	m := loaded(t, wf, nil)

	m, _ = press(m, runes("n"))
	if m.mode != modeFeedback || m.pending != review.StatusRejected {
		t.Fatalf("expected rejection feedback mode, got mode=%v pending=%q", m.mode, m.pending)
	}

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || !m.failed {
		t.Error("empty feedback should be refused")
	}
	if m.mode != modeFeedback {
		t.Error("should stay in feedback mode after refusal")
	}

	m, _ = press(m, runes("too"))
	m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = press(m, runes("hott"))
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.feedback != "too hot" {
		t.Errorf("expected feedback 'too hot', got %q", m.feedback)
	}

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	if m.mode != modeBrowse {
		t.Error("expected browse mode after submit")
	}

	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if len(wf.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(wf.submitted))
	}
	got := wf.submitted[0]
	if got.FileID != "f1" || got.Status != review.StatusRejected || got.Feedback != "too hot" {
		t.Errorf("unexpected submission: %+v", got)
	}
	if _, ok := m.decisions["f1"]; !ok {
		t.Error("expected decision recorded")
	}
	if m.status != "Request Re-recording recorded" {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestDecisionDiscard(t *testing.T) {
	m := loaded(t, &fakeWorkflow{files: testFiles()}, nil)

	m, _ = press(m, runes("y"))
	m, _ = press(m, runes("q"))
	if m.feedback != "q" || m.quitting {
		t.Error("q should be typed into feedback, not quit")
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeBrowse || m.feedback != "" {
		t.Error("esc should discard the pending decision")
	}
}

func TestPreview(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		m := loaded(t, &fakeWorkflow{files: testFiles()}, nil)
		m, cmd := press(m, runes("p"))
		if cmd != nil || !m.failed {
			t.Error("expected playback unavailable error")
		}
	})

	t.Run("plays", func(t *testing.T) {
		previewer := &fakePreviewer{}
		m := loaded(t, &fakeWorkflow{files: testFiles()}, previewer)

		m, cmd := press(m, runes("p"))
		updated, _ := m.Update(cmd())
		m = updated.(Model)
		if m.playing != testFiles()[0].URL {
			t.Errorf("expected first file playing, got %q", m.playing)
		}

		m, _ = press(m, runes("s"))
		if m.playing != "" || previewer.stopped != 1 {
			t.Error("expected playback stopped")
		}
	})

	t.Run("error", func(t *testing.T) {
		previewer := &fakePreviewer{err: errors.New("no audio device")}
		m := loaded(t, &fakeWorkflow{files: testFiles()}, previewer)

		m, cmd := press(m, runes("p"))
		updated, _ := m.Update(cmd())
		m = updated.(Model)
		if !m.failed || m.playing != "" {
			t.Errorf("expected preview error, got status %q", m.status)
		}
	})
}

func TestQuit(t *testing.T) {
	previewer := &fakePreviewer{}
	m := loaded(t, &fakeWorkflow{files: testFiles()}, previewer)

	m, cmd := press(m, runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !m.quitting || previewer.stopped != 1 {
		t.Error("expected quitting with playback stopped")
	}
}

func TestRefresh(t *testing.T) {
	wf := &fakeWorkflow{files: testFiles()[:1]}
	refresh := make(chan struct{}, 1)
	m := NewModel(Config{Workflow: wf, Refresh: refresh})

	if m.Init() == nil {
		t.Fatal("expected init command")
	}

	wait := m.waitRefresh()
	refresh <- struct{}{}
	msg := wait()
	if _, ok := msg.(refreshMsg); !ok {
		t.Fatalf("expected refreshMsg, got %T", msg)
	}

	wf.files = testFiles()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("expected reload command")
	}

	updated, _ = m.Update(m.loadFiles()())
	m = updated.(Model)
	if len(m.files) != 2 {
		t.Errorf("expected reloaded files, got %d", len(m.files))
	}

	close(refresh)
	if msg := m.waitRefresh()(); msg != nil {
		t.Errorf("closed refresh channel should yield nil, got %T", msg)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short, got %q", got)
	}
	if got := truncate("a-very-long-file-name.wav", 10); got != "a-very-..." {
		t.Errorf("unexpected truncation %q", got)
	}
}

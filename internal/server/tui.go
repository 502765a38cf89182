// ABOUTME: Server TUI showing the review board
// ABOUTME: Lists files with their latest verdict, plus watchers and events
package server

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mixroom/mixcheck/internal/review"
)

const (
	boardRows   = 12
	boardName   = 28
	statusQueue = 10
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).MarginTop(1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle    = lipgloss.NewStyle().Faint(true).MarginTop(1)

	verdictStyles = map[review.Severity]lipgloss.Style{
		review.SeverityOK:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		review.SeverityWarn: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		review.SeverityFail: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

// ServerTUI runs the review board in the terminal
type ServerTUI struct {
	program  *tea.Program
	updates  chan ServerStatus
	quitChan chan struct{}
}

// ServerStatus is one snapshot of the board
type ServerStatus struct {
	Name     string
	Port     int
	Files    []FileRow
	Watchers []WatcherInfo
	Events   []string
}

// WatcherInfo describes a connected watcher
type WatcherInfo struct {
	Name      string
	ID        string
	Connected time.Duration
}

type boardModel struct {
	status   ServerStatus
	started  time.Time
	quitting bool
	quitChan chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus

func (m boardModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}
	case tickMsg:
		return m, tick()
	case statusMsg:
		m.status = ServerStatus(msg)
	}
	return m, nil
}

func (m boardModel) View() string {
	if m.quitting {
		return "Shutting down review server...\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.status, time.Since(m.started)),
		sectionStyle.Render("Files"),
		renderFiles(m.status.Files),
		sectionStyle.Render(fmt.Sprintf("Watchers (%d)", len(m.status.Watchers))),
		renderWatchers(m.status.Watchers),
		sectionStyle.Render("Recent events"),
		renderEvents(m.status.Events),
		helpStyle.Render("q quit"),
	)
}

// renderHeader is the one-line summary: server, port, uptime and verdict
// counts across the board
func renderHeader(status ServerStatus, uptime time.Duration) string {
	counts := map[review.Severity]int{}
	for _, row := range status.Files {
		if row.Verdict != "" {
			counts[row.Verdict]++
		}
	}
	summary := fmt.Sprintf("%d files  %s %d  %s %d  %s %d",
		len(status.Files),
		verdictStyles[review.SeverityOK].Render("ok"), counts[review.SeverityOK],
		verdictStyles[review.SeverityWarn].Render("warn"), counts[review.SeverityWarn],
		verdictStyles[review.SeverityFail].Render("fail"), counts[review.SeverityFail],
	)
	return titleStyle.Render(status.Name) +
		dimStyle.Render(fmt.Sprintf("  :%d  up %s  ", status.Port, uptime.Round(time.Second))) +
		summary
}

// renderFiles draws one line per file, newest first
func renderFiles(rows []FileRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("  nothing registered")
	}

	var b strings.Builder
	shown := rows
	if len(shown) > boardRows {
		shown = shown[:boardRows]
	}
	for i, row := range shown {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %-*s %-10s %-6s %s",
			boardName, shorten(displayName(row), boardName),
			row.Stage,
			verdictBadge(row.Verdict),
			dimStyle.Render(metricsSummary(row)),
		)
	}
	if hidden := len(rows) - len(shown); hidden > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  +%d more", hidden)))
	}
	return b.String()
}

func renderWatchers(watchers []WatcherInfo) string {
	if len(watchers) == 0 {
		return dimStyle.Render("  none connected")
	}
	lines := make([]string, len(watchers))
	for i, w := range watchers {
		lines[i] = fmt.Sprintf("  %s %s", w.Name, dimStyle.Render(w.Connected.Round(time.Second).String()))
	}
	return strings.Join(lines, "\n")
}

func renderEvents(events []string) string {
	if len(events) == 0 {
		return dimStyle.Render("  none yet")
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = dimStyle.Render("  " + e)
	}
	return strings.Join(lines, "\n")
}

func verdictBadge(verdict review.Severity) string {
	style, ok := verdictStyles[verdict]
	if !ok {
		return "-"
	}
	return style.Render(strings.ToUpper(string(verdict)))
}

func metricsSummary(row FileRow) string {
	m := row.Metrics
	if m == nil {
		return ""
	}
	dr := "DR silent"
	if !m.Silent() {
		dr = fmt.Sprintf("DR %.1f dB", m.DynamicRange)
	}
	out := fmt.Sprintf("peak %.2f  %s  %d clips", m.PeakLevel, dr, m.ClippingPoints)
	if row.Decision != "" {
		out += "  review: " + row.Decision
	}
	return out
}

func displayName(row FileRow) string {
	if row.Name != "" {
		return row.Name
	}
	return row.FileID
}

// shorten trims s to width runes, marking the cut with "~"
func shorten(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "~"
}

// NewServerTUI creates the review board TUI
func NewServerTUI() *ServerTUI {
	return &ServerTUI{
		updates:  make(chan ServerStatus, statusQueue),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start(serverName string, port int) error {
	t.program = tea.NewProgram(boardModel{
		status:   ServerStatus{Name: serverName, Port: port},
		started:  time.Now(),
		quitChan: t.quitChan,
	}, tea.WithAltScreen())

	go func() {
		for status := range t.updates {
			t.program.Send(statusMsg(status))
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update queues a snapshot, dropping it if the TUI is behind
func (t *ServerTUI) Update(status ServerStatus) {
	select {
	case t.updates <- status:
	default:
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan signals when the user asks to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}

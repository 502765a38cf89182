// ABOUTME: Review TUI rendering and startup
// ABOUTME: Draws the file list, metrics and policy flags with lipgloss
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/pkg/analysis"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	severityStyles = map[review.Severity]lipgloss.Style{
		review.SeverityOK:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		review.SeverityWarn: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		review.SeverityFail: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

// Config holds the collaborators of the review TUI
type Config struct {
	Workflow  Workflow
	Previewer Previewer       // nil disables playback
	ProjectID string          // empty lists every file
	Refresh   <-chan struct{} // each receive reloads the file list
}

// NewModel creates a new TUI model
func NewModel(config Config) Model {
	return Model{
		workflow:  config.Workflow,
		previewer: config.Previewer,
		projectID: config.ProjectID,
		refresh:   config.Refresh,
		results:   make(map[string]review.Result),
		decisions: make(map[string]review.Review),
	}
}

// Run starts the TUI and blocks until the reviewer quits
func Run(config Config) error {
	p := tea.NewProgram(NewModel(config), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("mixcheck Review"))
	b.WriteString("\n")

	b.WriteString(m.renderFiles())
	b.WriteString("\n")
	b.WriteString(m.renderDetail())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderFiles() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Files (%d)", len(m.files))))
	b.WriteString("\n")

	if len(m.files) == 0 {
		b.WriteString(valueStyle.Render("  No files registered"))
		b.WriteString("\n")
		return b.String()
	}

	for i, f := range m.files {
		cursor := "  "
		if i == m.selected {
			cursor = cursorStyle.Render("> ")
		}
		b.WriteString(cursor)
		b.WriteString(truncate(f.Name, 40))
		b.WriteString(" ")
		b.WriteString(m.badge(f))
		b.WriteString("\n")
	}
	return b.String()
}

// badge summarizes one file: analysis state, verdict and decision
func (m Model) badge(f review.File) string {
	var parts []string
	switch {
	case m.analyzing == f.ID:
		parts = append(parts, valueStyle.Render("[analyzing]"))
	case m.hasResult(f.ID):
		verdict := review.Worst(m.results[f.ID].Flags)
		parts = append(parts, severityStyles[verdict].Render("["+string(verdict)+"]"))
	default:
		parts = append(parts, helpStyle.Render("[pending]"))
	}
	if d, ok := m.decisions[f.ID]; ok {
		parts = append(parts, headerStyle.Render(string(d.Status)))
	}
	if m.playing != "" && m.playing == f.URL {
		parts = append(parts, cursorStyle.Render("♪"))
	}
	return strings.Join(parts, " ")
}

func (m Model) hasResult(id string) bool {
	r, ok := m.results[id]
	return ok && len(r.Flags) > 0
}

func (m Model) renderDetail() string {
	file, ok := m.current()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("URL: "))
	b.WriteString(valueStyle.Render(truncate(file.URL, 60)))
	b.WriteString("\n")

	result, ok := m.results[file.ID]
	if ok {
		b.WriteString(renderMetrics(result.Report))
		for _, f := range result.Flags {
			b.WriteString("  ")
			b.WriteString(severityStyles[f.Severity].Render(fmt.Sprintf("%-4s", f.Severity)))
			b.WriteString(" ")
			b.WriteString(valueStyle.Render(f.Message))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(helpStyle.Render("  Not analyzed. Press 'a' to analyze."))
		b.WriteString("\n")
	}

	if d, ok := m.decisions[file.ID]; ok {
		b.WriteString(headerStyle.Render("Decision: "))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%s)", d.Status.Label(), d.Feedback)))
		b.WriteString("\n")
	}

	if m.mode == modeFeedback {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(m.pending.Label() + " feedback: "))
		b.WriteString(m.feedback)
		b.WriteString(cursorStyle.Render("_"))
		b.WriteString("\n")
	}

	return b.String()
}

func renderMetrics(r analysis.Report) string {
	metrics := r.Metrics
	dr := "undefined (silent)"
	if !metrics.Silent() {
		dr = fmt.Sprintf("%.1f dB", metrics.DynamicRange)
	}

	return fmt.Sprintf("%s%s  %s%s  %s%s  %s%s\n",
		headerStyle.Render("Peak: "), valueStyle.Render(fmt.Sprintf("%.1f%%", metrics.PeakLevel*100)),
		headerStyle.Render("DR: "), valueStyle.Render(dr),
		headerStyle.Render("Clips: "), valueStyle.Render(fmt.Sprintf("%d", metrics.ClippingPoints)),
		headerStyle.Render("Length: "), valueStyle.Render(fmt.Sprintf("%.1fs", metrics.Duration)),
	)
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return "\n"
	}
	if m.failed {
		return errorStyle.Render(m.status) + "\n"
	}
	return valueStyle.Render(m.status) + "\n"
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	if m.mode == modeFeedback {
		return helpStyle.Render("enter:Submit  esc:Discard")
	}
	return helpStyle.Render("↑/↓:Select  a:Analyze  A:Re-analyze  p:Preview  s:Stop  y:Approve  n:Re-record  r:Reload  q:Quit")
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

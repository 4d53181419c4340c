package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"authload/internal/runner"
	"authload/internal/tui/components"
	"authload/internal/tui/styles"
)

// Model renders runner snapshots while a run is in progress.
type Model struct {
	Stats    runner.Snapshot
	Progress progress.Model
	VUs      int

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	Duration time.Duration
	lastAt   time.Duration
	lastReqs int

	Width  int
	Height int
}

func NewModel(vus int, total time.Duration) Model {
	return Model{
		Progress:    progress.New(progress.WithGradient("#7D56F4", "#04B575")),
		VUs:         vus,
		RpsLine:     components.NewSparkline(40, "req/s", "", styles.Active),
		LatencyLine: components.NewSparkline(40, "p95", "ms", styles.Warn),
		Duration:    total,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.Snapshot:
		dt := (msg.Elapsed - m.lastAt).Seconds()
		if dt > 0.01 {
			m.RpsLine.Add(float64(msg.Requests-m.lastReqs) / dt)
			m.LatencyLine.Add(msg.P95Ms)
			m.lastAt = msg.Elapsed
			m.lastReqs = msg.Requests
		}
		m.Stats = msg
		return m, m.Progress.SetPercent(m.Percent())

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := max((msg.Width/2)-6, 10)
		m.RpsLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// Percent is the elapsed share of the configured duration, capped at 1.
func (m Model) Percent() float64 {
	if m.Duration <= 0 {
		return 0
	}
	return min(float64(m.Stats.Elapsed)/float64(m.Duration), 1.0)
}

func (m Model) View() string {
	s := strings.Builder{}
	st := m.Stats

	errColor := styles.Active
	switch {
	case st.ErrorRate > 0.05:
		errColor = styles.Error
	case st.ErrorRate > 0.01:
		errColor = styles.Warn
	}

	col1 := fmt.Sprintf("VUS:  %d/%d busy\nITER: %d", st.Inflight, m.VUs, st.Iterations)
	col2 := fmt.Sprintf("REQ:  %d\nERR:  %.2f%%", st.Requests, st.ErrorRate*100)
	col3 := fmt.Sprintf("FAILED ITER: %d\nP90: %.1f ms", st.FailedIterations, st.P90Ms)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(errColor.Render(col2)),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	s.WriteString("\n")
	s.WriteString(styles.Subtle.Render(fmt.Sprintf("%s / %s", st.Elapsed.Round(time.Second), m.Duration)))

	return s.String()
}

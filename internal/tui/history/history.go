package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"authload/internal/report"
	"authload/internal/tui/styles"
)

// Model browses stored run summaries. Enter opens the selected run.
type Model struct {
	Items  []report.Summary
	Table  table.Model
	Detail viewport.Model

	showing bool
	Width   int
	Height  int
}

func NewModel(items []report.Summary) Model {
	columns := []table.Column{
		{Title: "Started", Width: 20},
		{Title: "Workload", Width: 16},
		{Title: "VUs", Width: 5},
		{Title: "Iter", Width: 8},
		{Title: "Reqs", Width: 8},
		{Title: "p95 ms", Width: 9},
		{Title: "Result", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(Rows(items)),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(styles.ColorText).
		Background(styles.ColorPrimary).
		Bold(false)
	t.SetStyles(s)

	return Model{
		Items:  items,
		Table:  t,
		Detail: viewport.New(80, 20),
	}
}

// Rows formats summaries as table rows.
func Rows(items []report.Summary) []table.Row {
	rows := make([]table.Row, len(items))
	for i, it := range items {
		rows[i] = table.Row{
			it.StartedAt.Local().Format(time.DateTime),
			it.Workload,
			fmt.Sprintf("%d", it.Config.VUs),
			fmt.Sprintf("%d", it.Iterations),
			fmt.Sprintf("%d", it.Requests),
			fmt.Sprintf("%.1f", it.Latency.P95),
			Outcome(it),
		}
	}
	return rows
}

func Outcome(s report.Summary) string {
	switch {
	case s.Aborted:
		return "aborted"
	case s.Passed:
		return "passed"
	default:
		return "failed"
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		m.Detail.Width = msg.Width - 4
		m.Detail.Height = msg.Height - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if !m.showing && len(m.Items) > 0 {
				m.Detail.SetContent(report.Render(m.Items[m.Table.Cursor()]))
				m.Detail.GotoTop()
				m.showing = true
				return m, nil
			}
		case "esc":
			if m.showing {
				m.showing = false
				return m, nil
			}
		}
	}

	if m.showing {
		m.Detail, cmd = m.Detail.Update(msg)
		return m, cmd
	}
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.Items) == 0 {
		return styles.Subtle.Render("no runs recorded yet") + "\n"
	}
	if m.showing {
		return m.Detail.View() + "\n" + styles.RenderKey("esc", "back") + "  " + styles.RenderKey("q", "quit")
	}
	return styles.Box.Render(m.Table.View()) + "\n" +
		styles.RenderKey("enter", "details") + "  " + styles.RenderKey("q", "quit")
}

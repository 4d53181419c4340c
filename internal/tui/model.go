// Package tui is the optional live dashboard for a run.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"authload/internal/cli"
	"authload/internal/report"
	"authload/internal/runner"
	"authload/internal/tui/live"
	"authload/internal/tui/styles"
)

type snapshotMsg runner.Snapshot

type doneMsg report.Summary

type Model struct {
	Session *cli.Session
	Updates runner.SnapshotChan
	Live    live.Model

	cancel  context.CancelFunc
	done    chan report.Summary
	Summary *report.Summary

	Width  int
	Height int
}

func NewModel(s *cli.Session, cancel context.CancelFunc, updates runner.SnapshotChan, done chan report.Summary) Model {
	return Model{
		Session: s,
		Updates: updates,
		Live:    live.NewModel(s.Cfg.VUs, s.Cfg.Duration),
		cancel:  cancel,
		done:    done,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.Updates), waitForDone(m.done))
}

// waitForUpdate yields the next snapshot, or nil once the run closes sub.
func waitForUpdate(sub runner.SnapshotChan) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func waitForDone(done chan report.Summary) tea.Cmd {
	return func() tea.Msg {
		return doneMsg(<-done)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			// stop the load early; the summary still arrives through done
			if m.Summary == nil && m.cancel != nil {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit
		case "q", "esc":
			if m.Summary != nil {
				return m, tea.Quit
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, cmd

	case snapshotMsg:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(runner.Snapshot(msg))
		if m.Summary != nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, waitForUpdate(m.Updates))

	case doneMsg:
		sum := report.Summary(msg)
		m.Summary = &sum
		return m, nil
	}

	var cmd tea.Cmd
	m.Live, cmd = m.Live.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render(fmt.Sprintf("🚀 authload · %s · %s", m.Session.Def.Name, m.Session.Cfg.BaseURL)))
	s.WriteString("\n\n")

	if m.Summary != nil {
		s.WriteString(report.Render(*m.Summary))
		s.WriteString("\n")
		s.WriteString(styles.RenderKey("q", "quit"))
		return styles.Panel.Render(s.String())
	}

	s.WriteString(m.Live.View())
	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("ctrl+c", "stop run"))
	return styles.Panel.Render(s.String())
}

// Run executes the session under the dashboard and returns the exit code.
func Run(ctx context.Context, s *cli.Session) (int, error) {
	if err := s.Validate(); err != nil {
		return report.ExitConfig, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(runner.SnapshotChan, 100)
	done := make(chan report.Summary, 1)
	result := make(chan report.Summary, 1)
	go func() {
		sum := s.Execute(ctx, updates)
		// Execute sends its last snapshot before returning.
		close(updates)
		result <- sum
		done <- sum
	}()

	p := tea.NewProgram(NewModel(s, cancel, updates, done), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		cancel()
		return report.ExitConfig, err
	}

	// the program may quit before the run finished
	cancel()
	sum := <-result
	fmt.Print(report.Render(sum))
	s.Finish(sum)
	return sum.ExitCode(), nil
}

package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authload/internal/cli"
	"authload/internal/report"
	"authload/internal/runner"
	"authload/internal/scenario"
)

func newTestModel(t *testing.T) (Model, *bool) {
	t.Helper()
	def, err := scenario.Lookup(scenario.RegisterLoginName)
	require.NoError(t, err)
	s := &cli.Session{Def: def, Cfg: runner.Config{VUs: 2, Duration: time.Second, BaseURL: "http://api.test"}}

	cancelled := false
	m := NewModel(s, func() { cancelled = true }, make(runner.SnapshotChan, 1), make(chan report.Summary, 1))
	return m, &cancelled
}

func TestModel_CtrlCStopsRunFirst(t *testing.T) {
	m, cancelled := newTestModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, *cancelled)
	assert.Nil(t, cmd)

	next, _ = next.Update(doneMsg(report.Summary{Workload: "register-login", Passed: true}))
	assert.Contains(t, next.View(), "all thresholds passed")

	_, cmd = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_SnapshotFeedsLive(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(snapshotMsg(runner.Snapshot{Elapsed: 500 * time.Millisecond, Requests: 10, Inflight: 1}))
	assert.NotNil(t, cmd)

	v := next.View()
	assert.Contains(t, v, "register-login")
	assert.Contains(t, v, "1/2 busy")
}

func TestModel_QIgnoredWhileRunning(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
}

func TestWaitForUpdate_ClosedChannel(t *testing.T) {
	sub := make(runner.SnapshotChan, 1)
	sub <- runner.Snapshot{Requests: 3}
	close(sub)

	cmd := waitForUpdate(sub)
	assert.Equal(t, snapshotMsg(runner.Snapshot{Requests: 3}), cmd())
	assert.Nil(t, cmd())
}

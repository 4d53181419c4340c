package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authload/internal/report"
	"authload/internal/runner"
)

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug", "json")
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = newLogger("loud", "console")
	assert.Error(t, err)
	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}

func TestHistoryTable(t *testing.T) {
	assert.Contains(t, historyTable(nil), "no runs recorded yet")

	out := historyTable([]report.Summary{{
		ID:        "0123456789abcdef",
		Workload:  "register-login",
		StartedAt: time.Now(),
		Config:    runner.Config{VUs: 5},
		Passed:    true,
	}})
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "89abcdef")
	assert.Contains(t, out, "register-login")
	assert.True(t, strings.Contains(out, "passed"))
}

func TestExitError(t *testing.T) {
	e := &exitError{code: report.ExitThresholdsFailed}
	assert.Equal(t, "exit status 99", e.Error())
}

func TestRunCommandDescribesWorkloads(t *testing.T) {
	assert.Contains(t, runCmd.Long, "register-login")
	assert.ElementsMatch(t, []string{"register-login", "shared-token"}, runCmd.ValidArgs)
}

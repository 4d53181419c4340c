package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authload/internal/dummy"
	"authload/internal/report"
	"authload/internal/runner"
	"authload/internal/scenario"
	"authload/internal/storage"
	"authload/internal/threshold"
)

func session(t *testing.T, name string, fail float64, out *bytes.Buffer) *Session {
	t.Helper()
	srv := httptest.NewServer(dummy.NewAPI(dummy.ServerConfig{FailRate: fail}).Handler())
	t.Cleanup(srv.Close)

	def, err := scenario.Lookup(name)
	require.NoError(t, err)
	return &Session{
		Def: def,
		Cfg: runner.Config{
			VUs:            3,
			Duration:       300 * time.Millisecond,
			Pace:           20 * time.Millisecond,
			BaseURL:        srv.URL,
			RequestTimeout: 2 * time.Second,
			Seed:           1,
			Thresholds:     def.Thresholds,
		},
		W: out,
	}
}

func TestStart_Passes(t *testing.T) {
	var out bytes.Buffer
	s := session(t, scenario.RegisterLoginName, 0, &out)
	s.Out = filepath.Join(t.TempDir(), "summary.json")

	store, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()
	s.Store = store

	code := Start(context.Background(), s)
	assert.Equal(t, report.ExitOK, code)
	assert.Contains(t, out.String(), "STARTING AUTHLOAD: register-login")
	assert.Contains(t, out.String(), "all thresholds passed")
	assert.FileExists(t, s.Out)

	items, err := store.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, scenario.RegisterLoginName, items[0].Workload)
}

func TestStart_ThresholdsFail(t *testing.T) {
	var out bytes.Buffer
	s := session(t, scenario.RegisterLoginName, 1, &out)

	assert.Equal(t, report.ExitThresholdsFailed, Start(context.Background(), s))
}

func TestStart_SetupFails(t *testing.T) {
	var out bytes.Buffer
	s := session(t, scenario.SharedTokenName, 1, &out)

	assert.Equal(t, report.ExitSetupFailed, Start(context.Background(), s))
	assert.Contains(t, out.String(), "run aborted before load")
}

func TestStart_UnknownThresholdMetric(t *testing.T) {
	var out bytes.Buffer
	s := session(t, scenario.RegisterLoginName, 0, &out)
	s.Cfg.Thresholds = append(s.Cfg.Thresholds, threshold.MustParse("http_req_waiting", "p(95)<100"))

	assert.Equal(t, report.ExitConfig, Start(context.Background(), s))
	assert.NotContains(t, out.String(), "STARTING")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----]", progressBar(0, 4))
	assert.Equal(t, "[██--]", progressBar(0.5, 4))
	assert.Equal(t, "[████]", progressBar(1.7, 4))
}

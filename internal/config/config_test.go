package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authload/internal/runner"
	"authload/internal/scenario"
)

func definition(t *testing.T, name string) scenario.Definition {
	t.Helper()
	d, err := scenario.Lookup(name)
	require.NoError(t, err)
	return d
}

func TestBuild_Defaults(t *testing.T) {
	cfg, err := Build(viper.New(), definition(t, scenario.RegisterLoginName))
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.VUs)
	assert.Equal(t, 30*time.Second, cfg.Duration)
	assert.Equal(t, runner.DefaultPace, cfg.Pace)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Len(t, cfg.Thresholds, 2)
	assert.Equal(t, "http_req_failed{status:500}", cfg.Thresholds[1].Key())
	assert.False(t, cfg.HasCredentials())
}

func TestBuild_FromEnvironment(t *testing.T) {
	t.Setenv("VUS", "7")
	t.Setenv("DURATION", "1m30s")
	t.Setenv("BASE_URL", "http://api.local:8080/")
	t.Setenv("TEST_EMAIL", "ci@example.test")
	t.Setenv("TEST_PASSWORD", "secret99")

	v := viper.New()
	v.AutomaticEnv()
	cfg, err := Build(v, definition(t, scenario.SharedTokenName))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.VUs)
	assert.Equal(t, 90*time.Second, cfg.Duration)
	assert.Equal(t, "http://api.local:8080", cfg.BaseURL)
	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "ci@example.test", cfg.Email)
}

func TestBuild_EnvOverridesWin(t *testing.T) {
	t.Setenv("VUS", "7")
	v := viper.New()
	v.AutomaticEnv()
	v.Set(KeyEnv, []string{"vus=3", "DURATION=45", "PACE=250ms"})

	cfg, err := Build(v, definition(t, scenario.RegisterLoginName))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.VUs)
	assert.Equal(t, 45*time.Second, cfg.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.Pace)
	assert.Equal(t, "3", cfg.Env["VUS"])
}

func TestBuild_Thresholds(t *testing.T) {
	v := viper.New()
	v.Set(KeyThresholds, []string{"http_req_duration=p(99)<800", "checks{check:login: status 200}=rate>=0.99"})
	cfg, err := Build(v, definition(t, scenario.RegisterLoginName))
	require.NoError(t, err)
	require.Len(t, cfg.Thresholds, 2)
	assert.Equal(t, 99.0, cfg.Thresholds[0].Aggregation.Percentile)
	assert.Equal(t, "login: status 200", cfg.Thresholds[1].Tags["check"])
}

func TestBuild_Invalid(t *testing.T) {
	cases := map[string]string{
		KeyVUs:      "lots",
		KeyDuration: "forever",
		KeyPace:     "-1s",
		KeySeed:     "x",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, val)
			_, err := Build(v, definition(t, scenario.RegisterLoginName))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	v := viper.New()
	v.Set(KeyThresholds, []string{"http_req_duration"})
	_, err := Build(v, definition(t, scenario.RegisterLoginName))
	assert.ErrorIs(t, err, ErrInvalid)

	v = viper.New()
	v.Set(KeyEnv, []string{"novalue"})
	_, err = Build(v, definition(t, scenario.RegisterLoginName))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AUTHLOAD_TEST_ONLY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("AUTHLOAD_TEST_ONLY") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("AUTHLOAD_TEST_ONLY"))
	assert.NoError(t, LoadEnvFile(""))
	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("30")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = ParseDuration("1m")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

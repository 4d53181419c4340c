// Package config turns flags, environment variables and an optional .env
// file into the immutable runner.Config for one run.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"authload/internal/runner"
	"authload/internal/scenario"
	"authload/internal/threshold"
)

var ErrInvalid = errors.New("invalid configuration")

// Viper keys. With AutomaticEnv each also reads its upper-cased
// environment variable (VUS, DURATION, BASE_URL, TEST_EMAIL, ...).
const (
	KeyVUs        = "vus"
	KeyDuration   = "duration"
	KeyPace       = "pace"
	KeyBaseURL    = "base_url"
	KeyEmail      = "test_email"
	KeyPassword   = "test_password"
	KeySeed       = "seed"
	KeyTimeout    = "timeout"
	KeyThresholds = "thresholds"
	KeyEnv        = "env_overrides"
)

const (
	DefaultBaseURL = "http://127.0.0.1:3002"
	DefaultTimeout = 30 * time.Second
)

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Build resolves the run configuration. Values passed with -e KEY=VALUE win
// over flags and the process environment; unset values fall back to the
// workload's defaults.
func Build(v *viper.Viper, def scenario.Definition) (runner.Config, error) {
	env, err := ParseEnvPairs(v.GetStringSlice(KeyEnv))
	if err != nil {
		return runner.Config{}, err
	}
	get := func(key string) string {
		if val, ok := env[strings.ToUpper(key)]; ok {
			return val
		}
		return strings.TrimSpace(v.GetString(key))
	}

	cfg := runner.Config{
		VUs:            def.DefaultVUs,
		Duration:       def.DefaultDuration,
		Pace:           runner.DefaultPace,
		BaseURL:        DefaultBaseURL,
		Env:            env,
		RequestTimeout: DefaultTimeout,
		Email:          get(KeyEmail),
		Password:       get(KeyPassword),
	}

	if s := get(KeyVUs); s != "" && s != "0" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return runner.Config{}, fmt.Errorf("%w: vus %q: %v", ErrInvalid, s, err)
		}
		cfg.VUs = n
	}
	if s := get(KeyDuration); s != "" && s != "0" {
		if cfg.Duration, err = ParseDuration(s); err != nil {
			return runner.Config{}, fmt.Errorf("%w: duration: %v", ErrInvalid, err)
		}
	}
	if s := get(KeyPace); s != "" {
		if cfg.Pace, err = ParseDuration(s); err != nil {
			return runner.Config{}, fmt.Errorf("%w: pace: %v", ErrInvalid, err)
		}
	}
	if s := get(KeyTimeout); s != "" && s != "0" {
		if cfg.RequestTimeout, err = ParseDuration(s); err != nil {
			return runner.Config{}, fmt.Errorf("%w: timeout: %v", ErrInvalid, err)
		}
	}
	if s := get(KeyBaseURL); s != "" {
		cfg.BaseURL = strings.TrimRight(s, "/")
	}
	if s := get(KeySeed); s != "" {
		if cfg.Seed, err = strconv.ParseInt(s, 10, 64); err != nil {
			return runner.Config{}, fmt.Errorf("%w: seed %q: %v", ErrInvalid, s, err)
		}
	}

	cfg.Thresholds = def.Thresholds
	if raw := v.GetStringSlice(KeyThresholds); len(raw) > 0 {
		cfg.Thresholds = make([]threshold.Spec, 0, len(raw))
		for _, r := range raw {
			spec, err := threshold.ParseFlag(r)
			if err != nil {
				return runner.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
			}
			cfg.Thresholds = append(cfg.Thresholds, spec)
		}
	}

	if err := cfg.Validate(); err != nil {
		return runner.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// ParseDuration accepts Go durations ("30s", "1m30s") and bare seconds ("45").
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// ParseEnvPairs parses KEY=VALUE items. Keys are upper-cased.
func ParseEnvPairs(items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, it := range items {
		k, val, ok := strings.Cut(it, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: env override %q is not KEY=VALUE", ErrInvalid, it)
		}
		out[strings.ToUpper(k)] = val
	}
	return out, nil
}

package report

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"

	"authload/internal/runner"
	"authload/internal/stats"
	"authload/internal/threshold"
)

// Exit codes for the command line.
const (
	ExitOK               = 0
	ExitConfig           = 1
	ExitThresholdsFailed = 99
	ExitSetupFailed      = 107
)

type Latency struct {
	Avg float64 `json:"avg_ms"`
	Min float64 `json:"min_ms"`
	Med float64 `json:"med_ms"`
	P90 float64 `json:"p90_ms"`
	P95 float64 `json:"p95_ms"`
	P99 float64 `json:"p99_ms"`
	Max float64 `json:"max_ms"`
}

type ThresholdLine struct {
	Metric string  `json:"metric"`
	Expr   string  `json:"expr"`
	Actual float64 `json:"actual"`
	Passed bool    `json:"passed"`
	NoData bool    `json:"no_data,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Summary is the rendered and persisted outcome of one run.
type Summary struct {
	ID        string        `json:"id"`
	Workload  string        `json:"workload"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Config    runner.Config `json:"config"`

	Aborted       bool   `json:"aborted"`
	SetupError    string `json:"setup_error,omitempty"`
	TeardownError string `json:"teardown_error,omitempty"`

	Iterations       uint64  `json:"iterations"`
	FailedIterations uint64  `json:"failed_iterations"`
	PeakInflight     int64   `json:"peak_inflight"`
	Requests         int     `json:"requests"`
	ErrorRate        float64 `json:"error_rate"`
	Latency          Latency `json:"http_req_duration"`

	Checks     []stats.CheckSummary `json:"checks"`
	Thresholds []ThresholdLine      `json:"thresholds"`
	Passed     bool                 `json:"passed"`
}

// secretKeys marks env override keys whose values never leave the process.
var secretKeys = []string{"PASSWORD", "TOKEN", "SECRET"}

const redacted = "[redacted]"

// redactEnv copies env with secret values masked.
func redactEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	return lo.MapValues(env, func(v, k string) string {
		upper := strings.ToUpper(k)
		if lo.SomeBy(secretKeys, func(s string) bool { return strings.Contains(upper, s) }) {
			return redacted
		}
		return v
	})
}

// Build evaluates thresholds against the run's metrics and assembles the summary.
func Build(rep *runner.Report, cfg runner.Config) Summary {
	saved := cfg
	saved.Env = redactEnv(cfg.Env)
	saved.Password = ""

	s := Summary{
		ID:               rep.ID,
		Workload:         rep.Workload,
		StartedAt:        rep.StartedAt,
		Elapsed:          rep.Elapsed,
		Config:           saved,
		Aborted:          rep.Aborted,
		Iterations:       rep.Iterations,
		FailedIterations: rep.FailedIterations,
		PeakInflight:     rep.PeakInflight,
	}
	if rep.SetupErr != nil {
		s.SetupError = rep.SetupErr.Error()
	}
	if rep.TeardownErr != nil {
		s.TeardownError = rep.TeardownErr.Error()
	}
	if rep.Aborted {
		return s
	}

	m := rep.Metrics
	s.Requests = m.Count(stats.HTTPReqs, nil)
	s.ErrorRate = m.Rate(stats.HTTPReqFailed, nil)
	s.Latency = Latency{
		Avg: m.Avg(stats.HTTPReqDuration, nil),
		Min: m.Min(stats.HTTPReqDuration, nil),
		Med: m.Percentile(stats.HTTPReqDuration, 50, nil),
		P90: m.Percentile(stats.HTTPReqDuration, 90, nil),
		P95: m.Percentile(stats.HTTPReqDuration, 95, nil),
		P99: m.Percentile(stats.HTTPReqDuration, 99, nil),
		Max: m.Max(stats.HTTPReqDuration, nil),
	}
	s.Checks = m.Checks()

	results := threshold.Evaluate(cfg.Thresholds, m)
	for _, r := range results {
		line := ThresholdLine{
			Metric: r.Spec.Key(),
			Expr:   r.Spec.Expr(),
			Actual: r.Actual,
			Passed: r.Passed,
			NoData: r.NoData,
		}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		s.Thresholds = append(s.Thresholds, line)
	}
	s.Passed = threshold.Passed(results)
	return s
}

// ExitCode maps the outcome to the process exit status.
func (s Summary) ExitCode() int {
	switch {
	case s.Aborted:
		return ExitSetupFailed
	case !s.Passed:
		return ExitThresholdsFailed
	default:
		return ExitOK
	}
}

// ExportJSON writes the summary to filename.
func ExportJSON(s Summary, filename string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

package runner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"authload/internal/stats"
	"authload/internal/threshold"
)

// Config is built once before scheduling and never mutated afterwards.
type Config struct {
	VUs        int               `json:"vus"`
	Duration   time.Duration     `json:"duration"`
	Pace       time.Duration     `json:"pace"`
	BaseURL    string            `json:"base_url"`
	Thresholds []threshold.Spec  `json:"-"`
	Env        map[string]string `json:"env,omitempty"`

	// Seed feeds each VU's random source; 0 derives one from the clock.
	Seed           int64         `json:"seed"`
	RequestTimeout time.Duration `json:"request_timeout"`

	// Optional pre-provisioned account used by setup instead of registering one.
	Email    string `json:"email,omitempty"`
	Password string `json:"-"`
}

const DefaultPace = time.Second

func (c Config) Validate() error {
	if c.VUs <= 0 {
		return fmt.Errorf("vus must be greater than 0, got %d", c.VUs)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be greater than 0, got %s", c.Duration)
	}
	if c.Pace < 0 {
		return fmt.Errorf("pace cannot be negative, got %s", c.Pace)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	return nil
}

// HasCredentials reports whether setup should log in with Email/Password.
func (c Config) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// VU is the per-worker state. Nothing in it is shared with other workers.
type VU struct {
	ID        int
	Iteration int
	Rand      *rand.Rand
}

// Scenario runs one iteration for vu with the value produced by setup.
type Scenario[T any] func(ctx context.Context, vu *VU, shared T) error

type SetupFunc[T any] func(ctx context.Context) (T, error)

type TeardownFunc[T any] func(ctx context.Context, shared T) error

// Workload bundles a scenario with its optional setup and teardown.
type Workload[T any] struct {
	Name     string
	Setup    SetupFunc[T]
	Scenario Scenario[T]
	Teardown TeardownFunc[T]
}

// SetupError aborts a run before any virtual user starts.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return "setup failed: " + e.Err.Error() }
func (e *SetupError) Unwrap() error { return e.Err }

// Report is what Run hands to threshold evaluation and reporting.
type Report struct {
	ID               string
	Workload         string
	StartedAt        time.Time
	Elapsed          time.Duration
	Iterations       uint64
	FailedIterations uint64
	PeakInflight     int64
	Aborted          bool
	SetupErr         error
	TeardownErr      error
	Metrics          *stats.Collector
}

// Snapshot is pushed to Updates while a run is in progress.
type Snapshot struct {
	Elapsed          time.Duration
	Iterations       uint64
	FailedIterations uint64
	Inflight         int64
	Requests         int
	ErrorRate        float64
	P90Ms            float64
	P95Ms            float64
}

// SnapshotChan is the channel type
type SnapshotChan chan Snapshot

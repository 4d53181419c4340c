package scenario

import (
	"context"
	"fmt"
	"sort"
	"time"

	"authload/internal/client"
	"authload/internal/runner"
	"authload/internal/threshold"
)

const (
	RegisterLoginName = "register-login"
	SharedTokenName   = "shared-token"
)

// Definition describes a named workload and its defaults.
type Definition struct {
	Name            string
	Description     string
	DefaultVUs      int
	DefaultDuration time.Duration
	Thresholds      []threshold.Spec

	// Execute runs the workload on r against c.
	Execute func(ctx context.Context, r *runner.Runner, c *client.Client) *runner.Report
}

var registry = map[string]Definition{
	RegisterLoginName: {
		Name:            RegisterLoginName,
		Description:     "register a fresh user, log in, call /users with the token",
		DefaultVUs:      20,
		DefaultDuration: 30 * time.Second,
		Thresholds: []threshold.Spec{
			threshold.MustParse("http_req_duration", "p(95)<500"),
			threshold.MustParse("http_req_failed{status:500}", "rate==0"),
		},
		Execute: func(ctx context.Context, r *runner.Runner, c *client.Client) *runner.Report {
			s := &RegisterLogin{Client: c, Checks: r.Metrics}
			return runner.Run(ctx, r, runner.Workload[struct{}]{
				Name:     RegisterLoginName,
				Scenario: s.Run,
			})
		},
	},
	SharedTokenName: {
		Name:            SharedTokenName,
		Description:     "log in once during setup, read /users with the shared token, occasionally create a user",
		DefaultVUs:      50,
		DefaultDuration: time.Minute,
		Thresholds: []threshold.Spec{
			threshold.MustParse("http_req_duration", "p(95)<600"),
		},
		Execute: func(ctx context.Context, r *runner.Runner, c *client.Client) *runner.Report {
			s := &SharedToken{
				Client:           c,
				Checks:           r.Metrics,
				Log:              r.Log,
				Email:            r.Cfg.Email,
				Password:         r.Cfg.Password,
				WriteProbability: DefaultWriteProbability,
			}
			return runner.Run(ctx, r, runner.Workload[string]{
				Name:     SharedTokenName,
				Setup:    s.Setup,
				Scenario: s.Run,
			})
		},
	},
}

func Lookup(name string) (Definition, error) {
	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown workload %q (available: %v)", name, Names())
	}
	return d, nil
}

// Names lists registered workloads in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

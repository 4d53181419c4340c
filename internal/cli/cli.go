// Package cli drives one workload run from the terminal: it wires the HTTP
// client and runner, watches progress, and finalizes the summary.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"authload/internal/client"
	"authload/internal/report"
	"authload/internal/runner"
	"authload/internal/scenario"
	"authload/internal/stats"
	"authload/internal/storage"
	"authload/internal/threshold"
)

// Session holds everything needed to run one workload.
type Session struct {
	Def     scenario.Definition
	Cfg     runner.Config
	Metrics *stats.Collector
	Log     *zap.Logger

	// Out, when set, receives the summary as JSON.
	Out string
	// Store, when set, keeps the summary in run history.
	Store *storage.Store

	W io.Writer
}

func (s *Session) writer() io.Writer {
	if s.W == nil {
		return os.Stdout
	}
	return s.W
}

func (s *Session) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Validate rejects thresholds on metrics the collector does not declare.
func (s *Session) Validate() error {
	if s.Metrics == nil {
		s.Metrics = stats.NewCollector()
	}
	return threshold.Validate(s.Cfg.Thresholds, s.Metrics)
}

// Execute runs the workload to completion and evaluates thresholds.
func (s *Session) Execute(ctx context.Context, updates runner.SnapshotChan) report.Summary {
	if s.Metrics == nil {
		s.Metrics = stats.NewCollector()
	}
	c := client.New(s.Cfg.BaseURL, s.Cfg.RequestTimeout, s.Metrics)
	r := runner.NewRunner(s.Cfg, s.Metrics, s.logger(), updates)
	rep := s.Def.Execute(ctx, r, c)
	return report.Build(rep, s.Cfg)
}

// Finish exports and stores the summary. Failures are logged, not fatal.
func (s *Session) Finish(sum report.Summary) {
	log := s.logger()
	if s.Out != "" {
		if err := report.ExportJSON(sum, s.Out); err != nil {
			log.Error("export summary", zap.String("path", s.Out), zap.Error(err))
		} else {
			fmt.Fprintf(s.writer(), "💾 Summary saved to %s\n", s.Out)
		}
	}
	if s.Store != nil {
		if err := s.Store.Save(sum); err != nil {
			log.Error("save history", zap.Error(err))
		}
	}
}

// Start runs the session headless, printing a progress line until the run
// ends, then the summary. It returns the process exit code.
func Start(ctx context.Context, s *Session) int {
	w := s.writer()
	if err := s.Validate(); err != nil {
		fmt.Fprintf(w, "❌ %v\n", err)
		return report.ExitConfig
	}
	printHeader(w, s.Def, s.Cfg)

	updates := make(runner.SnapshotChan, 100)
	done := make(chan report.Summary, 1)
	go func() {
		done <- s.Execute(ctx, updates)
	}()

	for {
		select {
		case snap := <-updates:
			printProgress(w, snap, s.Cfg.Duration)
		case sum := <-done:
			fmt.Fprint(w, "\n\n")
			fmt.Fprint(w, report.Render(sum))
			s.Finish(sum)
			return sum.ExitCode()
		}
	}
}

func printHeader(w io.Writer, def scenario.Definition, cfg runner.Config) {
	fmt.Fprintf(w, "\n🚀 STARTING AUTHLOAD: %s\n", def.Name)
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Base URL  : %s\n", cfg.BaseURL)
	fmt.Fprintf(w, "VUs       : %d\n", cfg.VUs)
	fmt.Fprintf(w, "Duration  : %s (pace %s)\n", cfg.Duration, cfg.Pace)
	fmt.Fprintf(w, "Timeout   : %s\n", cfg.RequestTimeout)
	for _, t := range cfg.Thresholds {
		fmt.Fprintf(w, "Threshold : %s\n", t)
	}
	fmt.Fprintf(w, "======================================================================\n\n")
}

func printProgress(w io.Writer, snap runner.Snapshot, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = snap.Elapsed.Seconds() / total.Seconds()
	}
	if pct > 1.0 {
		pct = 1.0
	}

	if snap.Elapsed >= total && snap.Inflight > 0 {
		fmt.Fprintf(w, "\r%s %3.0f%% | %s/%s | Draining: %d iterations...                ",
			progressBar(1.0, 20), 100.0,
			snap.Elapsed.Round(time.Second), total,
			snap.Inflight)
		return
	}

	fmt.Fprintf(w, "\r%s %3.0f%% | %s/%s | VUs busy: %3d | Iter: %d | Reqs: %d | Err: %.2f%% | p95: %.1fms",
		progressBar(pct, 20), pct*100,
		snap.Elapsed.Round(time.Second), total,
		snap.Inflight,
		snap.Iterations,
		snap.Requests,
		snap.ErrorRate*100,
		snap.P95Ms,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

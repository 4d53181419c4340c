package runner

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authload/internal/stats"
)

const tickInterval = 200 * time.Millisecond

type Runner struct {
	Cfg     Config
	Metrics *stats.Collector
	Log     *zap.Logger

	// Event Channel
	Updates SnapshotChan

	inflight   atomic.Int64
	peak       atomic.Int64
	iterations atomic.Uint64
	failed     atomic.Uint64
	loadStart  atomic.Int64 // unix nanos, 0 until the load phase begins
}

func NewRunner(cfg Config, metrics *stats.Collector, log *zap.Logger, updates SnapshotChan) *Runner {
	if metrics == nil {
		metrics = stats.NewCollector()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(SnapshotChan, 10)
	}
	return &Runner{
		Cfg:     cfg,
		Metrics: metrics,
		Log:     log,
		Updates: updates,
	}
}

// Run executes setup once, then cfg.VUs concurrent scenario loops until
// cfg.Duration elapses, then teardown once. A setup failure returns an
// aborted report without starting any virtual user.
func Run[T any](ctx context.Context, r *Runner, w Workload[T]) *Report {
	rep := &Report{
		ID:        uuid.NewString(),
		Workload:  w.Name,
		StartedAt: time.Now(),
		Metrics:   r.Metrics,
	}
	log := r.Log.With(zap.String("run_id", rep.ID), zap.String("workload", w.Name))

	var shared T
	if w.Setup != nil {
		log.Info("running setup")
		err := safeCall(func() error {
			v, err := w.Setup(ctx)
			shared = v
			return err
		})
		if err != nil {
			rep.Aborted = true
			rep.SetupErr = &SetupError{Err: err}
			rep.Elapsed = time.Since(rep.StartedAt)
			log.Error("setup failed, no virtual users started", zap.Error(err))
			return rep
		}
	}

	seed := r.Cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	loadStart := time.Now()
	r.loadStart.Store(loadStart.UnixNano())
	deadline, cancel := context.WithTimeout(ctx, r.Cfg.Duration)
	defer cancel()

	tickCtx, stopTicks := context.WithCancel(ctx)
	ticks := r.StartTickLoop(tickCtx, tickInterval)

	log.Info("starting virtual users",
		zap.Int("vus", r.Cfg.VUs),
		zap.Duration("duration", r.Cfg.Duration),
		zap.Duration("pace", r.Cfg.Pace),
	)

	var wg sync.WaitGroup
	for i := 1; i <= r.Cfg.VUs; i++ {
		vu := &VU{ID: i, Rand: rand.New(rand.NewSource(seed + int64(i)))}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-deadline.Done():
					return
				default:
				}
				vu.Iteration++
				// The scenario gets the parent context: the deadline never
				// cuts an iteration short.
				r.iterate(ctx, vu, func(ctx context.Context) error {
					return w.Scenario(ctx, vu, shared)
				})
				if !r.pace(deadline) {
					return
				}
			}
		}()
	}
	wg.Wait()

	rep.Elapsed = time.Since(loadStart)
	stopTicks()
	<-ticks
	// last snapshot; nothing is sent on Updates after Run returns
	r.sendUpdate()

	if w.Teardown != nil {
		err := safeCall(func() error { return w.Teardown(ctx, shared) })
		if err != nil {
			rep.TeardownErr = err
			log.Warn("teardown failed", zap.Error(err))
		}
	}

	rep.Iterations = r.iterations.Load()
	rep.FailedIterations = r.failed.Load()
	rep.PeakInflight = r.peak.Load()

	log.Info("run finished",
		zap.Duration("elapsed", rep.Elapsed),
		zap.Uint64("iterations", rep.Iterations),
		zap.Uint64("failed_iterations", rep.FailedIterations),
	)
	return rep
}

// iterate runs one scenario invocation, isolating its error or panic.
func (r *Runner) iterate(ctx context.Context, vu *VU, fn func(context.Context) error) {
	n := r.inflight.Add(1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	start := time.Now()
	err := safeCall(func() error { return fn(ctx) })
	elapsed := time.Since(start)
	r.inflight.Add(-1)

	r.iterations.Add(1)
	failed := 0.0
	if err != nil {
		failed = 1
		r.failed.Add(1)
		r.Log.Debug("iteration failed",
			zap.Int("vu", vu.ID),
			zap.Int("iteration", vu.Iteration),
			zap.Error(err),
		)
	}

	now := time.Now()
	r.Metrics.Record(stats.Sample{Metric: stats.Iterations, Value: 1, Time: now})
	r.Metrics.Record(stats.Sample{Metric: stats.IterationDuration, Value: float64(elapsed) / float64(time.Millisecond), Time: now})
	r.Metrics.Record(stats.Sample{Metric: stats.IterationFailed, Value: failed, Time: now})
}

// pace sleeps between iterations. It returns false once the deadline passes.
func (r *Runner) pace(deadline context.Context) bool {
	if r.Cfg.Pace <= 0 {
		return deadline.Err() == nil
	}
	t := time.NewTimer(r.Cfg.Pace)
	defer t.Stop()
	select {
	case <-deadline.Done():
		return false
	case <-t.C:
		return true
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return fn()
}

// StartTickLoop starts a goroutine that pushes snapshots until ctx is done.
// The returned channel closes once the goroutine has exited.
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
	return done
}

func (r *Runner) Snapshot() Snapshot {
	s := Snapshot{
		Iterations:       r.iterations.Load(),
		FailedIterations: r.failed.Load(),
		Inflight:         r.inflight.Load(),
		Requests:         r.Metrics.Count(stats.HTTPReqs, nil),
		ErrorRate:        r.Metrics.Rate(stats.HTTPReqFailed, nil),
		P90Ms:            r.Metrics.Percentile(stats.HTTPReqDuration, 90, nil),
		P95Ms:            r.Metrics.Percentile(stats.HTTPReqDuration, 95, nil),
	}
	if start := r.loadStart.Load(); start != 0 {
		s.Elapsed = time.Since(time.Unix(0, start))
	}
	return s
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.Updates <- r.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

func (r *Runner) GetInflight() int64 {
	return r.inflight.Load()
}

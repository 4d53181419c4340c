package stats

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Kind describes how samples of a metric aggregate.
type Kind int

const (
	Counter Kind = iota
	Trend
	Rate
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Trend:
		return "trend"
	case Rate:
		return "rate"
	default:
		return "unknown"
	}
}

// Built-in metrics recorded by the client and the runner.
const (
	HTTPReqs          = "http_reqs"
	HTTPReqDuration   = "http_req_duration"
	HTTPReqFailed     = "http_req_failed"
	Checks            = "checks"
	Iterations        = "iterations"
	IterationDuration = "iteration_duration"
	IterationFailed   = "iteration_failed"
)

var builtins = map[string]Kind{
	HTTPReqs:          Counter,
	HTTPReqDuration:   Trend,
	HTTPReqFailed:     Rate,
	Checks:            Rate,
	Iterations:        Counter,
	IterationDuration: Trend,
	IterationFailed:   Rate,
}

// Tags label a sample, e.g. {"status": "500", "name": "login"}.
type Tags map[string]string

// Matches reports whether every key in filter has the same value in t.
func (t Tags) Matches(filter Tags) bool {
	for k, v := range filter {
		if got, ok := t[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Sample is a single observation. The collector owns it after Record.
type Sample struct {
	Metric string
	Value  float64
	Tags   Tags
	Time   time.Time
}

// Sink receives every sample after the collector stores it.
type Sink interface {
	Add(s Sample)
}

type series struct {
	kind    Kind
	mu      sync.Mutex
	samples []Sample
	hist    *SafeHistogram // trends only
}

// CheckSummary tallies one named check.
type CheckSummary struct {
	Name   string `json:"name"`
	Passes uint64 `json:"passes"`
	Fails  uint64 `json:"fails"`
}

// Rate returns the fraction of passing evaluations, 0 when never evaluated.
func (c CheckSummary) Rate() float64 {
	total := c.Passes + c.Fails
	if total == 0 {
		return 0
	}
	return float64(c.Passes) / float64(total)
}

type checkTally struct {
	passes atomic.Uint64
	fails  atomic.Uint64
}

// Collector accumulates samples from all virtual users.
type Collector struct {
	mu     sync.RWMutex
	series map[string]*series

	checkMu    sync.RWMutex
	checks     map[string]*checkTally
	checkOrder []string

	sinks   []Sink
	total   atomic.Uint64
	dropped atomic.Uint64
}

func NewCollector(sinks ...Sink) *Collector {
	c := &Collector{
		series: make(map[string]*series),
		checks: make(map[string]*checkTally),
		sinks:  sinks,
	}
	for name, kind := range builtins {
		c.series[name] = newSeries(kind)
	}
	return c
}

func newSeries(kind Kind) *series {
	s := &series{kind: kind, samples: make([]Sample, 0, 1024)}
	if kind == Trend {
		s.hist = NewSafeHistogram()
	}
	return s
}

// Declare registers a custom metric. Redeclaring with the same kind is a no-op.
func (c *Collector) Declare(name string, kind Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.series[name]; ok {
		if s.kind != kind {
			return fmt.Errorf("metric %q already declared as %s", name, s.kind)
		}
		return nil
	}
	c.series[name] = newSeries(kind)
	return nil
}

// Known reports whether name has been declared.
func (c *Collector) Known(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

func (c *Collector) KindOf(name string) (Kind, bool) {
	s, ok := c.lookup(name)
	if !ok {
		return 0, false
	}
	return s.kind, true
}

// Metrics returns declared metric names in sorted order.
func (c *Collector) Metrics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Collector) lookup(name string) (*series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.series[name]
	return s, ok
}

// Record stores a sample. Samples for undeclared metrics are dropped and
// counted, so a misspelled name never becomes a known metric.
func (c *Collector) Record(s Sample) {
	if s.Time.IsZero() {
		s.Time = time.Now()
	}
	sr, ok := c.lookup(s.Metric)
	if !ok {
		c.dropped.Add(1)
		return
	}

	sr.mu.Lock()
	sr.samples = append(sr.samples, s)
	sr.mu.Unlock()

	if sr.hist != nil {
		_ = sr.hist.Observe(s.Value)
	}
	c.total.Add(1)

	for _, sink := range c.sinks {
		sink.Add(s)
	}
}

// Dropped is the number of samples recorded against undeclared metrics.
func (c *Collector) Dropped() uint64 {
	return c.dropped.Load()
}

// RecordCheck tallies a named assertion and records it as a checks sample.
func (c *Collector) RecordCheck(name string, passed bool) {
	c.checkMu.RLock()
	t, ok := c.checks[name]
	c.checkMu.RUnlock()
	if !ok {
		c.checkMu.Lock()
		if t, ok = c.checks[name]; !ok {
			t = &checkTally{}
			c.checks[name] = t
			c.checkOrder = append(c.checkOrder, name)
		}
		c.checkMu.Unlock()
	}
	if passed {
		t.passes.Add(1)
	} else {
		t.fails.Add(1)
	}

	v := 0.0
	if passed {
		v = 1
	}
	c.Record(Sample{Metric: Checks, Value: v, Tags: Tags{"check": name}})
}

// Checks returns check tallies in first-seen order.
func (c *Collector) Checks() []CheckSummary {
	c.checkMu.RLock()
	defer c.checkMu.RUnlock()
	out := make([]CheckSummary, 0, len(c.checkOrder))
	for _, name := range c.checkOrder {
		t := c.checks[name]
		out = append(out, CheckSummary{Name: name, Passes: t.passes.Load(), Fails: t.fails.Load()})
	}
	return out
}

// Check returns the tally for one check name.
func (c *Collector) Check(name string) CheckSummary {
	c.checkMu.RLock()
	defer c.checkMu.RUnlock()
	t, ok := c.checks[name]
	if !ok {
		return CheckSummary{Name: name}
	}
	return CheckSummary{Name: name, Passes: t.passes.Load(), Fails: t.fails.Load()}
}

// TotalSamples is the number of samples recorded across all metrics.
func (c *Collector) TotalSamples() uint64 {
	return c.total.Load()
}

// values copies the values of matching samples.
func (c *Collector) values(metric string, filter Tags) []float64 {
	s, ok := c.lookup(metric)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, 0, len(s.samples))
	for _, sm := range s.samples {
		if sm.Tags.Matches(filter) {
			out = append(out, sm.Value)
		}
	}
	return out
}

// Count returns the number of matching samples.
func (c *Collector) Count(metric string, filter Tags) int {
	if len(filter) == 0 {
		s, ok := c.lookup(metric)
		if !ok {
			return 0
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.samples)
	}
	return len(c.values(metric, filter))
}

// Rate returns the fraction of matching samples with a non-zero value.
// A rate over zero samples is 0.
func (c *Collector) Rate(metric string, filter Tags) float64 {
	vals := c.values(metric, filter)
	if len(vals) == 0 {
		return 0
	}
	hits := 0
	for _, v := range vals {
		if v != 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(vals))
}

// Percentile returns the p-th (0-100) percentile of matching samples, 0 with no samples.
func (c *Collector) Percentile(metric string, p float64, filter Tags) float64 {
	if len(filter) == 0 {
		if s, ok := c.lookup(metric); ok && s.hist != nil {
			if s.hist.TotalCount() == 0 {
				return 0
			}
			return s.hist.Quantile(p)
		}
	}
	vals := c.values(metric, filter)
	if len(vals) == 0 {
		return 0
	}
	return quantileOf(vals, p)
}

func (c *Collector) Avg(metric string, filter Tags) float64 {
	vals := c.values(metric, filter)
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func (c *Collector) Min(metric string, filter Tags) float64 {
	vals := c.values(metric, filter)
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func (c *Collector) Max(metric string, filter Tags) float64 {
	vals := c.values(metric, filter)
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink mirrors samples into Prometheus collectors for live scraping.
type PromSink struct {
	reqs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	checks     *prometheus.CounterVec
	iterations prometheus.Counter
	iterFailed prometheus.Counter
}

func NewPromSink(reg prometheus.Registerer) *PromSink {
	p := &PromSink{
		reqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authload",
			Name:      "http_reqs_total",
			Help:      "HTTP requests issued by virtual users.",
		}, []string{"name", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authload",
			Name:      "http_req_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authload",
			Name:      "checks_total",
			Help:      "Check evaluations by outcome.",
		}, []string{"check", "result"}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authload",
			Name:      "iterations_total",
			Help:      "Completed scenario iterations.",
		}),
		iterFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authload",
			Name:      "iterations_failed_total",
			Help:      "Scenario iterations that returned an error or panicked.",
		}),
	}
	reg.MustRegister(p.reqs, p.duration, p.checks, p.iterations, p.iterFailed)
	return p
}

func (p *PromSink) Add(s Sample) {
	switch s.Metric {
	case HTTPReqs:
		p.reqs.WithLabelValues(s.Tags["name"], s.Tags["status"]).Inc()
	case HTTPReqDuration:
		p.duration.WithLabelValues(s.Tags["name"]).Observe(s.Value / 1000)
	case Checks:
		result := "fail"
		if s.Value != 0 {
			result = "pass"
		}
		p.checks.WithLabelValues(s.Tags["check"], result).Inc()
	case Iterations:
		p.iterations.Inc()
	case IterationFailed:
		if s.Value != 0 {
			p.iterFailed.Inc()
		}
	}
}

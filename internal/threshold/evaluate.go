package threshold

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"authload/internal/stats"
)

// View is the read side of the metrics collector.
type View interface {
	Known(metric string) bool
	Count(metric string, filter stats.Tags) int
	Rate(metric string, filter stats.Tags) float64
	Percentile(metric string, p float64, filter stats.Tags) float64
	Avg(metric string, filter stats.Tags) float64
	Min(metric string, filter stats.Tags) float64
	Max(metric string, filter stats.Tags) float64
}

// Result is the outcome of one threshold.
type Result struct {
	Spec   Spec
	Actual float64
	Passed bool
	NoData bool
	Err    error
}

// Validate reports every spec whose metric the view does not declare.
func Validate(specs []Spec, view View) error {
	var errs []error
	for _, s := range specs {
		if !view.Known(s.Metric) {
			errs = append(errs, fmt.Errorf("threshold %q: %w %q", s.String(), ErrUnknownMetric, s.Metric))
		}
	}
	return errors.Join(errs...)
}

// Evaluate computes each spec's aggregation and compares it against the threshold.
func Evaluate(specs []Spec, view View) []Result {
	out := make([]Result, 0, len(specs))
	for _, s := range specs {
		out = append(out, evaluateOne(s, view))
	}
	return out
}

func evaluateOne(s Spec, view View) Result {
	res := Result{Spec: s}
	if !view.Known(s.Metric) {
		res.Err = fmt.Errorf("%w %q", ErrUnknownMetric, s.Metric)
		return res
	}

	n := view.Count(s.Metric, s.Tags)
	if n == 0 && s.Aggregation.trend() {
		res.NoData = true
		res.Passed = true
		return res
	}

	switch s.Aggregation.Kind {
	case AggPercentile:
		res.Actual = view.Percentile(s.Metric, s.Aggregation.Percentile, s.Tags)
	case AggMed:
		res.Actual = view.Percentile(s.Metric, 50, s.Tags)
	case AggAvg:
		res.Actual = view.Avg(s.Metric, s.Tags)
	case AggMin:
		res.Actual = view.Min(s.Metric, s.Tags)
	case AggMax:
		res.Actual = view.Max(s.Metric, s.Tags)
	case AggRate:
		res.Actual = view.Rate(s.Metric, s.Tags)
	case AggCount:
		res.Actual = float64(n)
	default:
		res.Err = fmt.Errorf("%w: aggregation %q", ErrSyntax, s.Aggregation.Kind)
		return res
	}
	res.Passed = s.Comparator.Compare(res.Actual, s.Value)
	return res
}

// Passed is true iff every result passed.
func Passed(results []Result) bool {
	return lo.EveryBy(results, func(r Result) bool { return r.Passed })
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	return lo.Filter(results, func(r Result, _ int) bool { return !r.Passed })
}

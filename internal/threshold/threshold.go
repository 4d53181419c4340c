// Package threshold parses declarative pass/fail rules over aggregated metrics
// and evaluates them against a finished run.
//
// A threshold is written as a metric key and an expression:
//
//	http_req_duration            p(95)<500
//	http_req_failed{status:500}  rate==0
//
// Aggregations over a metric with no matching samples follow one convention:
// rate and count evaluate to 0 and are compared as usual, while trend
// aggregations (p, avg, min, max, med) pass trivially and are marked NoData.
package threshold

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"authload/internal/stats"
)

var (
	ErrSyntax        = errors.New("invalid threshold")
	ErrUnknownMetric = errors.New("unknown metric")
)

// AggKind names an aggregation.
type AggKind string

const (
	AggPercentile AggKind = "p"
	AggAvg        AggKind = "avg"
	AggMin        AggKind = "min"
	AggMax        AggKind = "max"
	AggMed        AggKind = "med"
	AggRate       AggKind = "rate"
	AggCount      AggKind = "count"
)

type Aggregation struct {
	Kind       AggKind
	Percentile float64 // only for AggPercentile
}

func (a Aggregation) String() string {
	if a.Kind == AggPercentile {
		return "p(" + strconv.FormatFloat(a.Percentile, 'f', -1, 64) + ")"
	}
	return string(a.Kind)
}

// trend aggregations pass trivially when no samples match
func (a Aggregation) trend() bool {
	switch a.Kind {
	case AggRate, AggCount:
		return false
	}
	return true
}

type Comparator string

const (
	LT Comparator = "<"
	LE Comparator = "<="
	EQ Comparator = "=="
	GE Comparator = ">="
	GT Comparator = ">"
)

func (c Comparator) Compare(actual, want float64) bool {
	switch c {
	case LT:
		return actual < want
	case LE:
		return actual <= want
	case EQ:
		return actual == want
	case GE:
		return actual >= want
	case GT:
		return actual > want
	}
	return false
}

// Spec is one threshold rule.
type Spec struct {
	Metric      string
	Tags        stats.Tags
	Aggregation Aggregation
	Comparator  Comparator
	Value       float64
	Source      string
}

// Key renders the metric and its tag filter, e.g. http_req_failed{status:500}.
func (s Spec) Key() string {
	if len(s.Tags) == 0 {
		return s.Metric
	}
	keys := lo.Keys(s.Tags)
	sort.Strings(keys)
	parts := lo.Map(keys, func(k string, _ int) string { return k + ":" + s.Tags[k] })
	return s.Metric + "{" + strings.Join(parts, ",") + "}"
}

func (s Spec) String() string {
	return s.Key() + " " + s.Expr()
}

// Expr renders the aggregation expression, e.g. p(95)<500.
func (s Spec) Expr() string {
	return s.Aggregation.String() + string(s.Comparator) + strconv.FormatFloat(s.Value, 'f', -1, 64)
}

var (
	keyRe  = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:\{(.*)\})?\s*$`)
	exprRe = regexp.MustCompile(`^\s*(p\(\s*([0-9.]+)\s*\)|avg|min|max|med|rate|count)\s*(<=|>=|==|<|>)\s*(-?[0-9.]+(?:[eE][-+]?[0-9]+)?)\s*$`)
)

// Parse builds a Spec from a metric key and an expression.
func Parse(key, expr string) (Spec, error) {
	km := keyRe.FindStringSubmatch(key)
	if km == nil {
		return Spec{}, fmt.Errorf("%w: metric key %q", ErrSyntax, key)
	}
	spec := Spec{Metric: km[1], Source: strings.TrimSpace(key) + " " + strings.TrimSpace(expr)}

	if km[2] != "" {
		spec.Tags = stats.Tags{}
		for _, pair := range strings.Split(km[2], ",") {
			k, v, ok := strings.Cut(pair, ":")
			k, v = strings.TrimSpace(k), strings.TrimSpace(v)
			if !ok || k == "" {
				return Spec{}, fmt.Errorf("%w: tag filter %q in %q", ErrSyntax, pair, key)
			}
			spec.Tags[k] = v
		}
	}

	em := exprRe.FindStringSubmatch(expr)
	if em == nil {
		return Spec{}, fmt.Errorf("%w: expression %q", ErrSyntax, expr)
	}
	if em[2] != "" {
		p, err := strconv.ParseFloat(em[2], 64)
		if err != nil || p < 0 || p > 100 {
			return Spec{}, fmt.Errorf("%w: percentile %q out of range", ErrSyntax, em[2])
		}
		spec.Aggregation = Aggregation{Kind: AggPercentile, Percentile: p}
	} else {
		spec.Aggregation = Aggregation{Kind: AggKind(em[1])}
	}
	spec.Comparator = Comparator(em[3])

	v, err := strconv.ParseFloat(em[4], 64)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: value %q", ErrSyntax, em[4])
	}
	spec.Value = v
	return spec, nil
}

// ParseFlag parses the "key=expr" form used on the command line,
// e.g. "http_req_duration=p(95)<500". The split happens at the first '='
// that is not part of a comparator.
func ParseFlag(s string) (Spec, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.ContainsRune("<>=", rune(s[i-1])) {
			continue
		}
		return Parse(s[:i], s[i+1:])
	}
	return Spec{}, fmt.Errorf("%w: %q is not of the form metric=expr", ErrSyntax, s)
}

// MustParse is Parse for package-level defaults.
func MustParse(key, expr string) Spec {
	s, err := Parse(key, expr)
	if err != nil {
		panic(err)
	}
	return s
}

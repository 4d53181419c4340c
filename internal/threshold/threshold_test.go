package threshold

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authload/internal/stats"
)

func TestParse(t *testing.T) {
	tests := []struct {
		key, expr string
		want      Spec
	}{
		{
			key:  "http_req_duration",
			expr: "p(95)<500",
			want: Spec{Metric: "http_req_duration", Aggregation: Aggregation{Kind: AggPercentile, Percentile: 95}, Comparator: LT, Value: 500},
		},
		{
			key:  "http_req_failed{status:500}",
			expr: "rate==0",
			want: Spec{Metric: "http_req_failed", Tags: stats.Tags{"status": "500"}, Aggregation: Aggregation{Kind: AggRate}, Comparator: EQ, Value: 0},
		},
		{
			key:  "checks{check:login: status 200}",
			expr: "rate >= 0.99",
			want: Spec{Metric: "checks", Tags: stats.Tags{"check": "login: status 200"}, Aggregation: Aggregation{Kind: AggRate}, Comparator: GE, Value: 0.99},
		},
		{
			key:  "iterations",
			expr: "count>10",
			want: Spec{Metric: "iterations", Aggregation: Aggregation{Kind: AggCount}, Comparator: GT, Value: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.key+" "+tt.expr, func(t *testing.T) {
			got, err := Parse(tt.key, tt.expr)
			require.NoError(t, err)
			got.Source = ""
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, c := range [][2]string{
		{"http_req_duration", "p95<500"},
		{"http_req_duration", "p(101)<500"},
		{"http_req_duration", "avg!=3"},
		{"bad metric", "avg<3"},
		{"http_req_failed{status}", "rate==0"},
	} {
		_, err := Parse(c[0], c[1])
		assert.ErrorIs(t, err, ErrSyntax, "%s %s", c[0], c[1])
	}
}

func TestParseFlag(t *testing.T) {
	s, err := ParseFlag("http_req_failed{status:500}=rate==0")
	require.NoError(t, err)
	assert.Equal(t, "http_req_failed{status:500}", s.Key())
	assert.Equal(t, "rate==0", s.Expr())

	s, err = ParseFlag("http_req_duration=p(95)<=600")
	require.NoError(t, err)
	assert.Equal(t, LE, s.Comparator)
	assert.Equal(t, 600.0, s.Value)

	_, err = ParseFlag("http_req_duration")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestEvaluate_ErrorRate(t *testing.T) {
	spec := MustParse("http_req_failed{status:500}", "rate==0")

	c := stats.NewCollector()
	c.Record(stats.Sample{Metric: stats.HTTPReqFailed, Value: 0, Tags: stats.Tags{"status": "200"}})
	res := Evaluate([]Spec{spec}, c)
	require.Len(t, res, 1)
	assert.True(t, res[0].Passed)
	assert.True(t, Passed(res))

	c.Record(stats.Sample{Metric: stats.HTTPReqFailed, Value: 1, Tags: stats.Tags{"status": "500"}})
	res = Evaluate([]Spec{spec}, c)
	assert.False(t, res[0].Passed)
	assert.Equal(t, 1.0, res[0].Actual)
	assert.False(t, Passed(res))
	assert.Len(t, Failed(res), 1)
}

func TestEvaluate_ZeroSamples(t *testing.T) {
	c := stats.NewCollector()
	res := Evaluate([]Spec{
		MustParse("http_req_duration", "p(95)<500"),
		MustParse("http_req_failed", "rate==0"),
		MustParse("iterations", "count>0"),
	}, c)

	assert.True(t, res[0].Passed)
	assert.True(t, res[0].NoData)
	assert.True(t, res[1].Passed)
	assert.False(t, res[1].NoData)
	assert.False(t, res[2].Passed)
}

func TestEvaluate_Percentile(t *testing.T) {
	c := stats.NewCollector()
	for i := 1; i <= 100; i++ {
		c.Record(stats.Sample{Metric: stats.HTTPReqDuration, Value: float64(i * 10)})
	}
	res := Evaluate([]Spec{
		MustParse("http_req_duration", "p(95)<500"),
		MustParse("http_req_duration", "p(40)<500"),
		MustParse("http_req_duration", "med<=501"),
		MustParse("http_req_duration", "max<1001"),
	}, c)

	assert.False(t, res[0].Passed)
	assert.InDelta(t, 950, res[0].Actual, 1)
	assert.True(t, res[1].Passed)
	assert.True(t, res[2].Passed)
	assert.True(t, res[3].Passed)
}

func TestValidate_UnknownMetric(t *testing.T) {
	c := stats.NewCollector()
	specs := []Spec{
		MustParse("http_req_duration", "p(95)<500"),
		MustParse("http_req_duratoin", "p(95)<500"),
	}
	err := Validate(specs, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMetric))

	res := Evaluate(specs, c)
	assert.False(t, res[1].Passed)
	assert.ErrorIs(t, res[1].Err, ErrUnknownMetric)
}

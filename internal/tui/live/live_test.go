package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"authload/internal/runner"
)

func TestModel_Snapshot(t *testing.T) {
	m := NewModel(4, 10*time.Second)

	m, _ = m.Update(runner.Snapshot{Elapsed: time.Second, Requests: 50, P95Ms: 12, Inflight: 2})
	m, _ = m.Update(runner.Snapshot{Elapsed: 2 * time.Second, Requests: 150, P95Ms: 20, Inflight: 3, ErrorRate: 0.1})

	assert.InDelta(t, 100, m.RpsLine.Last(), 0.001)
	assert.Equal(t, 20.0, m.LatencyLine.Last())
	assert.InDelta(t, 0.2, m.Percent(), 0.0001)

	v := m.View()
	assert.Contains(t, v, "3/4 busy")
	assert.Contains(t, v, "10.00%")
}

func TestModel_PercentCapped(t *testing.T) {
	m := NewModel(1, time.Second)
	m, _ = m.Update(runner.Snapshot{Elapsed: 3 * time.Second})
	assert.Equal(t, 1.0, m.Percent())
}

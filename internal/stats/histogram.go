package stats

import (
	"math"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// histScale converts trend values (milliseconds) into histogram units (microseconds).
const histScale = 1000

var histMax = int64(10 * time.Minute / time.Microsecond)

// SafeHistogram is a thread-safe wrapper around hdrhistogram
type SafeHistogram struct {
	hist *hdrhistogram.Histogram
	mu   sync.Mutex
}

func NewSafeHistogram() *SafeHistogram {
	return &SafeHistogram{hist: newHist()}
}

// 1us to 10min, 3 significant figures
func newHist() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, histMax, 3)
}

func toUnits(ms float64) int64 {
	v := int64(math.Round(ms * histScale))
	if v < 1 {
		return 1
	}
	if v > histMax {
		return histMax
	}
	return v
}

// Observe records a trend value given in milliseconds.
func (h *SafeHistogram) Observe(ms float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.RecordValue(toUnits(ms))
}

// Quantile returns the value at q (0-100) in milliseconds.
func (h *SafeHistogram) Quantile(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return float64(h.hist.ValueAtQuantile(q)) / histScale
}

func (h *SafeHistogram) TotalCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}

// quantileOf builds a throwaway histogram for a filtered subset of values.
func quantileOf(values []float64, q float64) float64 {
	h := newHist()
	for _, v := range values {
		_ = h.RecordValue(toUnits(v))
	}
	return float64(h.ValueAtQuantile(q)) / histScale
}

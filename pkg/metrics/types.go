package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// MetricType defines the type of a metric.
type MetricType string

const (
	// TypeCounter is a monotonically increasing counter.
	TypeCounter MetricType = "counter"
	// TypeGauge is a value that can go up and down.
	TypeGauge MetricType = "gauge"
	// TypeHistogram is a histogram with configurable buckets.
	TypeHistogram MetricType = "histogram"
)

// Metric is the interface for all metrics.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
}

// desc holds the name and help text shared by every metric kind.
type desc struct {
	name string
	help string
}

// Name returns the metric name.
func (d desc) Name() string { return d.name }

// Help returns the metric help text.
func (d desc) Help() string { return d.help }

// Counter is a thread-safe counter metric.
type Counter struct {
	desc
	value atomic.Uint64
}

// NewCounter creates a new counter metric.
func NewCounter(name, help string) *Counter {
	return &Counter{desc: desc{name, help}}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds delta to the counter.
func (c *Counter) Add(delta uint64) { c.value.Add(delta) }

// Value returns the current counter value.
func (c *Counter) Value() uint64 { return c.value.Load() }

// Type returns TypeCounter.
func (c *Counter) Type() MetricType { return TypeCounter }

// Gauge is a thread-safe gauge metric.
type Gauge struct {
	desc
	value atomic.Int64
}

// NewGauge creates a new gauge metric.
func NewGauge(name, help string) *Gauge {
	return &Gauge{desc: desc{name, help}}
}

// Set sets the gauge.
func (g *Gauge) Set(value int64) { g.value.Store(value) }

// SetUint64 sets the gauge to an unsigned value.
func (g *Gauge) SetUint64(value uint64) { g.value.Store(int64(value)) }

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.value.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.value.Add(-1) }

// Add adds delta to the gauge.
func (g *Gauge) Add(delta int64) { g.value.Add(delta) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }

// Type returns TypeGauge.
func (g *Gauge) Type() MetricType { return TypeGauge }

// DefaultHistogramBuckets are the default buckets for histograms, in seconds.
var DefaultHistogramBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0,
}

// Histogram is a thread-safe histogram metric.
type Histogram struct {
	desc

	mu      sync.RWMutex
	buckets []float64
	counts  []uint64 // per bucket, not cumulative
	sum     float64
	count   uint64
}

// NewHistogram creates a new histogram metric with the given buckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultHistogramBuckets
	}
	sorted := slices.Clone(buckets)
	slices.Sort(sorted)

	return &Histogram{
		desc:    desc{name, help},
		buckets: sorted,
		counts:  make([]uint64, len(sorted)),
	}
}

// Observe records a value.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++

	// Values above the last bound only land in +Inf.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

// ObserveDuration records a duration in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Type returns TypeHistogram.
func (h *Histogram) Type() MetricType { return TypeHistogram }

// HistogramBucket is one cumulative bucket of a snapshot.
type HistogramBucket struct {
	UpperBound float64
	Count      uint64
}

// HistogramSnapshot is a point-in-time copy of a histogram with cumulative
// bucket counts.
type HistogramSnapshot struct {
	Buckets []HistogramBucket
	Sum     float64
	Count   uint64
}

// Snapshot returns a snapshot of the histogram.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := HistogramSnapshot{
		Buckets: make([]HistogramBucket, len(h.buckets)),
		Sum:     h.sum,
		Count:   h.count,
	}

	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		snap.Buckets[i] = HistogramBucket{UpperBound: bound, Count: cumulative}
	}
	return snap
}

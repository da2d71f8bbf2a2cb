// Package metrics provides Prometheus-compatible execution metrics for
// Intcode runs.
package metrics

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// Metrics holds all Intcode execution metrics.
type Metrics struct {
	mu      sync.RWMutex
	metrics map[string]Metric

	// Counters
	Runs              *Counter
	Steps             *Counter
	Inputs            *Counter
	Outputs           *Counter
	Faults            *Counter
	Pipelines         *Counter
	PipelineRounds    *Counter
	CheckpointsSaved  *Counter
	CheckpointsLoaded *Counter

	// Gauges
	MemoryCells *Gauge
	HeapBytes   *Gauge
	Goroutines  *Gauge

	// Histograms
	RunDuration      *Histogram
	PipelineDuration *Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		metrics: make(map[string]Metric),

		Runs:              NewCounter("intcode_runs_total", "Total number of VM runs"),
		Steps:             NewCounter("intcode_steps_total", "Total number of instructions executed"),
		Inputs:            NewCounter("intcode_inputs_total", "Total number of input values consumed"),
		Outputs:           NewCounter("intcode_outputs_total", "Total number of output values produced"),
		Faults:            NewCounter("intcode_faults_total", "Total number of runs that ended in a fault"),
		Pipelines:         NewCounter("intcode_pipelines_total", "Total number of pipeline runs"),
		PipelineRounds:    NewCounter("intcode_pipeline_rounds_total", "Total number of feedback rounds driven"),
		CheckpointsSaved:  NewCounter("intcode_checkpoints_saved_total", "Total number of checkpoints saved"),
		CheckpointsLoaded: NewCounter("intcode_checkpoints_loaded_total", "Total number of checkpoints loaded"),

		MemoryCells: NewGauge("intcode_memory_cells", "Memory size of the last VM run, in cells"),
		HeapBytes:   NewGauge("intcode_heap_bytes", "Heap memory in use, in bytes"),
		Goroutines:  NewGauge("intcode_goroutines", "Number of active goroutines"),

		RunDuration:      NewHistogram("intcode_run_duration_seconds", "VM run duration in seconds", nil),
		PipelineDuration: NewHistogram("intcode_pipeline_duration_seconds", "Pipeline run duration in seconds", nil),
	}

	for _, metric := range []Metric{
		m.Runs, m.Steps, m.Inputs, m.Outputs, m.Faults,
		m.Pipelines, m.PipelineRounds, m.CheckpointsSaved, m.CheckpointsLoaded,
		m.MemoryCells, m.HeapBytes, m.Goroutines,
		m.RunDuration, m.PipelineDuration,
	} {
		m.register(metric)
	}

	return m
}

// register adds a metric to the internal registry.
func (m *Metrics) register(metric Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metric.Name()] = metric
}

// Get returns a metric by name.
func (m *Metrics) Get(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics[name]
}

// RecordRun records one VM run. stats are the VM's totals after the run and
// cells its memory size.
func (m *Metrics) RecordRun(stats intcode.Stats, cells int, err error, duration time.Duration) {
	m.Runs.Inc()
	m.Steps.Add(stats.Steps)
	m.Inputs.Add(stats.Inputs)
	m.Outputs.Add(stats.Outputs)
	m.MemoryCells.Set(int64(cells))
	m.RunDuration.ObserveDuration(duration)
	if err != nil && !errors.Is(err, intcode.ErrStepLimit) {
		m.Faults.Inc()
	}
}

// RecordPipeline records one pipeline run.
func (m *Metrics) RecordPipeline(rounds int, err error, duration time.Duration) {
	m.Pipelines.Inc()
	m.PipelineRounds.Add(uint64(rounds))
	m.PipelineDuration.ObserveDuration(duration)
	if err != nil {
		m.Faults.Inc()
	}
}

// CollectRuntime samples Go runtime statistics into the runtime gauges.
func (m *Metrics) CollectRuntime() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.HeapBytes.SetUint64(memStats.HeapAlloc)
	m.Goroutines.SetUint64(uint64(runtime.NumGoroutine()))
}

// Format formats all metrics in Prometheus text format, sorted by name.
func (m *Metrics) Format() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.metrics))
	for name := range m.metrics {
		names = append(names, name)
	}
	slices.Sort(names)

	var sb strings.Builder
	for _, name := range names {
		writeMetric(&sb, m.metrics[name])
		sb.WriteString("\n")
	}
	return sb.String()
}

// writeMetric writes a single metric in Prometheus text format.
func writeMetric(sb *strings.Builder, metric Metric) {
	name := metric.Name()
	fmt.Fprintf(sb, "# HELP %s %s\n", name, metric.Help())
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, metric.Type())

	switch mt := metric.(type) {
	case *Counter:
		fmt.Fprintf(sb, "%s %d\n", name, mt.Value())
	case *Gauge:
		fmt.Fprintf(sb, "%s %d\n", name, mt.Value())
	case *Histogram:
		snap := mt.Snapshot()
		for _, bucket := range snap.Buckets {
			le := strconv.FormatFloat(bucket.UpperBound, 'g', -1, 64)
			fmt.Fprintf(sb, "%s_bucket{le=%q} %d\n", name, le, bucket.Count)
		}
		fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.Count)
		fmt.Fprintf(sb, "%s_sum %.6f\n", name, snap.Sum)
		fmt.Fprintf(sb, "%s_count %d\n", name, snap.Count)
	}
}

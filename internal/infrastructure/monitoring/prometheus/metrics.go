package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// runDurationBuckets covers seconds through a full-population run.
var runDurationBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}

// RunMetrics counts batch outcomes and observes run duration. It satisfies
// the orchestrator's Metrics contract.
type RunMetrics struct {
	batchesProcessed prometheus.Counter
	batchesRetried   prometheus.Counter
	batchesFailed    prometheus.Counter
	graphDegraded    prometheus.Counter
	runDuration      prometheus.Histogram
}

// NewRunMetrics registers the run metrics on the registry.
func NewRunMetrics(registry *prometheus.Registry) *RunMetrics {
	m := &RunMetrics{
		batchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      "Batches scored and saved to the partition store.",
		}),
		batchesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_retried_total",
			Help:      "Batch attempts that failed and were retried.",
		}),
		batchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_failed_total",
			Help:      "Batches that exhausted retries and were skipped.",
		}),
		graphDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_degraded_total",
			Help:      "Partitions scored without ownership signals because the graph was unavailable.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a scoring run.",
			Buckets:   runDurationBuckets,
		}),
	}
	registry.MustRegister(
		m.batchesProcessed,
		m.batchesRetried,
		m.batchesFailed,
		m.graphDegraded,
		m.runDuration,
	)
	return m
}

func (m *RunMetrics) BatchProcessed() { m.batchesProcessed.Inc() }
func (m *RunMetrics) BatchRetried()   { m.batchesRetried.Inc() }
func (m *RunMetrics) BatchFailed()    { m.batchesFailed.Inc() }
func (m *RunMetrics) GraphDegraded()  { m.graphDegraded.Inc() }

func (m *RunMetrics) ObserveRunDuration(d time.Duration) {
	m.runDuration.Observe(d.Seconds())
}

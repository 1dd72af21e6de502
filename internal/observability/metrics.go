package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ingest pipeline.
type Metrics struct {
	RecordsReceived  prometheus.Counter
	RawTextPayloads  prometheus.Counter
	RowsRejected     prometheus.Counter
	RowsInserted     prometheus.Counter
	InsertFailures   prometheus.Counter
	PipelineRunning  prometheus.Gauge
	StoreConnections *prometheus.CounterVec // labels: outcome={success,failure}

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RecordsReceived,
		m.RawTextPayloads,
		m.RowsRejected,
		m.RowsInserted,
		m.InsertFailures,
		m.PipelineRunning,
		m.StoreConnections,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "records_received_total",
			Help:      "Total broker records received, including records without a value.",
		}),
		RawTextPayloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "raw_text_payloads_total",
			Help:      "Decoded payloads that were not JSON objects.",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "rows_rejected_total",
			Help:      "Payloads rejected by row validation.",
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "rows_inserted_total",
			Help:      "Rows CrateDB reported as inserted.",
		}),
		InsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "insert_failures_total",
			Help:      "Bulk inserts that failed or were skipped for lack of a connection.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_ingest",
			Name:      "pipeline_running",
			Help:      "1 when the Kafka loop is active, 0 when shut down.",
		}),
		StoreConnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "store_connection_attempts_total",
			Help:      "CrateDB connection attempts by outcome.",
		}, []string{"outcome"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_ingest",
			Name:      "batch_size",
			Help:      "Number of records per invocation batch.",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 250, 500, 1000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_ingest",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete decode-map-insert cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

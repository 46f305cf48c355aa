package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sep_etl"

// Metrics holds the Prometheus collectors for one catalog run.
type Metrics struct {
	RowsLoaded    prometheus.Counter
	ParseFailures *prometheus.CounterVec // labels: column

	// Validation metrics, labeled by delay family slug.
	DelaysComputed      *prometheus.CounterVec // labels: family
	DelayMismatches     *prometheus.CounterVec // labels: family, stage={source,derived}
	NegativeDelays      *prometheus.CounterVec // labels: family
	LongitudeOutOfRange prometheus.Counter

	SnapshotLoads   *prometheus.CounterVec   // labels: result={hit,miss,refresh,error}
	StageDuration   *prometheus.HistogramVec // labels: stage
	RecordsExported *prometheus.CounterVec   // labels: sink={parquet,kafka}
	FluxCache       *prometheus.CounterVec   // labels: result={hit,miss}

	gatherer prometheus.Gatherer
}

// NewMetrics creates the run metrics and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RowsLoaded,
		m.ParseFailures,
		m.DelaysComputed,
		m.DelayMismatches,
		m.NegativeDelays,
		m.LongitudeOutOfRange,
		m.SnapshotLoads,
		m.StageDuration,
		m.RecordsExported,
		m.FluxCache,
	)
	m.gatherer = reg
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// WriteTextfile writes every registered metric to path in the text exposition
// format, for collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.gatherer)
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Catalog rows read from the source file.",
		}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Cells coerced to null during normalization, by column.",
		}, []string{"column"}),
		DelaysComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delays_computed_total",
			Help:      "Non-null delay values produced, by family.",
		}, []string{"family"}),
		DelayMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delay_mismatches_total",
			Help:      "Stored delays that differ from recomputation, by family and stage.",
		}, []string{"family", "stage"}),
		NegativeDelays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negative_delays_total",
			Help:      "Negative delay values, by family.",
		}, []string{"family"}),
		LongitudeOutOfRange: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "longitude_out_of_range_total",
			Help:      "Event longitudes outside [-180, 180].",
		}),
		SnapshotLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_loads_total",
			Help:      "Dataset snapshot lookups by result.",
		}, []string{"result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		RecordsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_exported_total",
			Help:      "Delay records written, by sink.",
		}, []string{"sink"}),
		FluxCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flux_cache_total",
			Help:      "Flux series cache lookups by result.",
		}, []string{"result"}),
	}
}

// Package observability holds the Prometheus metrics recorded by unify runs.
// A CLI run is short-lived, so metrics are exported with WriteTextfile for
// the node exporter's textfile collector rather than served over HTTP.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const namespace = "water_unifier"

// Metrics holds the counters and histograms for a unify run.
type Metrics struct {
	RecordsTransformed *prometheus.CounterVec   // labels: source, kind
	RecordsSkipped     *prometheus.CounterVec   // labels: source, kind, failure
	FetchDuration      *prometheus.HistogramVec // labels: source
	RunDuration        prometheus.Histogram

	gatherer prometheus.Gatherer
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if !withHelp {
			return ""
		}
		return s
	}
	return &Metrics{
		RecordsTransformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_transformed_total",
			Help:      help("Records emitted after normalization, by source and kind."),
		}, []string{"source", "kind"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      help("Payloads skipped by a per-record failure, by source, kind and failure."),
		}, []string{"source", "kind", "failure"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      help("Duration of provider fetch calls in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete unify run."),
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
	}
}

// NewMetrics creates all metrics and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.RecordsTransformed,
		m.RecordsSkipped,
		m.FetchDuration,
		m.RunDuration,
	)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics(false)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m.RecordsTransformed,
		m.RecordsSkipped,
		m.FetchDuration,
		m.RunDuration,
	)
	m.gatherer = reg
	return m
}

// WriteTextfile writes the current metric values to path in the Prometheus
// text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return eris.Wrapf(err, "observability: write textfile %s", path)
	}
	return nil
}

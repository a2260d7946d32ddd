package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rain_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for forecast runs.
type Metrics struct {
	RunInProgress     prometheus.Gauge
	RunDuration       prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge

	UnitOutcomes *prometheus.CounterVec // labels: unit={raw,grid,blend}, outcome={success,error}
	FilesDecoded *prometheus.CounterVec // labels: kind={basin,grid}, outcome={success,error}

	// Per-model output and diagnostics.
	RecordsPublished   *prometheus.CounterVec // labels: model
	LookupMisses       *prometheus.CounterVec // labels: model, kind={name,coordinates}
	UncoveredSubBasins *prometheus.CounterVec // labels: model

	// Forecast service client.
	RegistryRequests *prometheus.CounterVec   // labels: operation, outcome={success,error}
	RegistryDuration *prometheus.HistogramVec // labels: operation

	NotificationErrors prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while an output run is executing, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete output run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LastSuccessfulRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last output run in which every unit succeeded.",
		}),
		UnitOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Units of work by kind and outcome.",
		}, []string{"unit", "outcome"}),
		FilesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_decoded_total",
			Help:      "Model files read by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RecordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Forecast records accepted by the forecast service.",
		}, []string{"model"}),
		LookupMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_misses_total",
			Help:      "Basin rows or grid points dropped for lack of a catalog match.",
		}, []string{"model", "kind"}),
		UncoveredSubBasins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uncovered_sub_basins_total",
			Help:      "Sub-basins whose single-model series leaves gaps before the blend cutoff.",
		}, []string{"model"}),
		RegistryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_requests_total",
			Help:      "Forecast service requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RegistryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_request_duration_seconds",
			Help:      "Forecast service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Batch notifications that could not be written to Kafka.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunInProgress,
		m.RunDuration,
		m.LastSuccessfulRun,
		m.UnitOutcomes,
		m.FilesDecoded,
		m.RecordsPublished,
		m.LookupMisses,
		m.UncoveredSubBasins,
		m.RegistryRequests,
		m.RegistryDuration,
		m.NotificationErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already registered"
// panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

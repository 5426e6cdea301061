package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds all Prometheus metrics for the harness.
// All Record* methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsEstablishedTotal prometheus.Counter
	SessionErrorsTotal       prometheus.Counter
	SessionsActive           prometheus.Gauge

	// Reseed metrics
	ReseedsTotal   *prometheus.CounterVec
	ReseedDuration prometheus.Histogram

	// Extraction metrics
	TableExtractionsTotal *prometheus.CounterVec
	TableRowsExtracted    prometheus.Counter

	// Scenario metrics
	ScenarioRunsTotal *prometheus.CounterVec
	ScenarioDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		SessionsEstablishedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "db_sessions_established_total",
				Help: "Total number of database sessions established",
			},
		),
		SessionErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "db_session_errors_total",
				Help: "Total number of failed session establishments",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_sessions_active",
				Help: "Number of currently open database sessions",
			},
		),

		ReseedsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixture_reseeds_total",
				Help: "Total number of fixture reseeds",
			},
			[]string{"status"},
		),
		ReseedDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fixture_reseed_duration_seconds",
				Help:    "Duration of fixture reseeds in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		TableExtractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "table_extractions_total",
				Help: "Total number of table extractions",
			},
			[]string{"status"},
		),
		TableRowsExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "table_rows_extracted_total",
				Help: "Total number of table rows extracted",
			},
		),

		ScenarioRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenario_runs_total",
				Help: "Total number of scenario runs",
			},
			[]string{"scenario", "status"},
		),
		ScenarioDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scenario_duration_seconds",
				Help:    "Duration of scenario runs in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"scenario"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.SessionsEstablishedTotal)
	m.registry.MustRegister(m.SessionErrorsTotal)
	m.registry.MustRegister(m.SessionsActive)

	m.registry.MustRegister(m.ReseedsTotal)
	m.registry.MustRegister(m.ReseedDuration)

	m.registry.MustRegister(m.TableExtractionsTotal)
	m.registry.MustRegister(m.TableRowsExtracted)

	m.registry.MustRegister(m.ScenarioRunsTotal)
	m.registry.MustRegister(m.ScenarioDuration)
}

// RecordSessionOpened records a newly established session
func (m *Metrics) RecordSessionOpened() {
	if m == nil {
		return
	}
	m.SessionsEstablishedTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionClosed records a released session
func (m *Metrics) RecordSessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// RecordSessionError records a failed session establishment
func (m *Metrics) RecordSessionError() {
	if m == nil {
		return
	}
	m.SessionErrorsTotal.Inc()
}

// RecordReseed records the outcome of a fixture reseed
func (m *Metrics) RecordReseed(err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.ReseedsTotal.WithLabelValues(statusOf(err)).Inc()
	m.ReseedDuration.Observe(duration.Seconds())
}

// RecordExtraction records a table extraction and the number of rows it produced
func (m *Metrics) RecordExtraction(rows int, err error) {
	if m == nil {
		return
	}
	m.TableExtractionsTotal.WithLabelValues(statusOf(err)).Inc()
	if err == nil {
		m.TableRowsExtracted.Add(float64(rows))
	}
}

// RecordScenario records a finished scenario
func (m *Metrics) RecordScenario(scenario, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ScenarioRunsTotal.WithLabelValues(scenario, status).Inc()
	if status != StatusSkipped {
		m.ScenarioDuration.WithLabelValues(scenario).Observe(duration.Seconds())
	}
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusOf(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

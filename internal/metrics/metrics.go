// Package metrics exposes run outcomes as Prometheus metrics, either over
// HTTP in serve mode or as a node_exporter textfile after one-shot runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/volwatch/internal/alert"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/monitor"
)

const namespace = "volwatch"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	alerts          *prometheus.GaugeVec
	alertsTotal     *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	categories      *prometheus.GaugeVec
	lastRunSuccess  prometheus.Gauge
	lastCheckedDate prometheus.Gauge
}

// New creates metrics registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		alerts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "alerts",
				Help:      "Alerts raised by the most recent check, by severity",
			},
			[]string{"severity"},
		),
		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Total number of alerts raised",
			},
			[]string{"severity", "alert_type"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of monitoring runs",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Monitoring run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		categories: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "categories",
				Help:      "Categories in the most recent check, by outcome",
			},
			[]string{"outcome"},
		),
		lastRunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
		),
		lastCheckedDate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_checked_period_timestamp_seconds",
				Help:      "Start of the most recently checked period as Unix time",
			},
		),
	}

	m.registry.MustRegister(
		m.alerts,
		m.alertsTotal,
		m.runsTotal,
		m.runDuration,
		m.categories,
		m.lastRunSuccess,
		m.lastCheckedDate,
	)
	return m
}

// ObserveCheck records a successful check.
func (m *Metrics) ObserveCheck(res *monitor.CheckResult, took time.Duration, now time.Time) {
	counts := alert.CountBySeverity(res.Alerts)
	for _, sev := range models.Severities {
		m.alerts.WithLabelValues(string(sev)).Set(float64(counts[sev]))
	}
	for _, a := range res.Alerts {
		m.alertsTotal.WithLabelValues(string(a.Severity), string(a.Type)).Inc()
	}

	m.categories.WithLabelValues("evaluated").Set(float64(res.Evaluated))
	m.categories.WithLabelValues("skipped").Set(float64(res.Skipped))
	m.runsTotal.WithLabelValues("success").Inc()
	m.runDuration.Observe(took.Seconds())
	m.lastRunSuccess.Set(float64(now.Unix()))
	m.lastCheckedDate.Set(float64(res.Date.Unix()))
}

// ObserveFailure records a run that did not complete.
func (m *Metrics) ObserveFailure(took time.Duration) {
	m.runsTotal.WithLabelValues("failure").Inc()
	m.runDuration.Observe(took.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

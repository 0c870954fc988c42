package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	refreshInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	refreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinegraph",
			Subsystem: "worker",
			Name:      "model_refresh_total",
			Help:      "Total model refresh events by artifact and status.",
		},
		[]string{"service", "artifact", "status"},
	)
	refreshDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinegraph",
			Subsystem: "worker",
			Name:      "model_refresh_duration_seconds",
			Help:      "Model refresh duration in seconds by artifact and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "artifact", "status"},
	)
	refreshInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cinegraph",
			Subsystem: "worker",
			Name:      "model_refresh_in_flight",
			Help:      "Number of in-flight model refreshes.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(refreshTotal, refreshDuration, refreshInFlight)

	return &WorkerMetrics{
		registry:        registry,
		refreshTotal:    refreshTotal,
		refreshDuration: refreshDuration,
		refreshInFlight: refreshInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRefresh() {
	m.refreshInFlight.Inc()
}

func (m *WorkerMetrics) FinishRefresh(service, artifact string, duration time.Duration, err error) {
	m.refreshInFlight.Dec()

	if artifact == "" {
		artifact = "all"
	}
	status := "success"
	if err != nil {
		status = "error"
	}

	m.refreshTotal.WithLabelValues(service, artifact, status).Inc()
	m.refreshDuration.WithLabelValues(service, artifact, status).Observe(duration.Seconds())
}

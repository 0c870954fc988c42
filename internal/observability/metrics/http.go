package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchRequestsTotal    *prometheus.CounterVec
	searchResults          *prometheus.HistogramVec
	searchDuration         *prometheus.HistogramVec
	recommendRequestsTotal *prometheus.CounterVec
	recommendCandidates    *prometheus.HistogramVec
	recommendDuration      *prometheus.HistogramVec
	strategyFailuresTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinegraph",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinegraph",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cinegraph",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinegraph",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful smart-search requests by routed search type.",
		},
		[]string{"service", "search_type"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinegraph",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of result counts per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "search_type"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinegraph",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Smart-search execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "search_type"},
	)
	recommendRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinegraph",
			Subsystem: "recommend",
			Name:      "requests_total",
			Help:      "Total hybrid recommendation requests.",
		},
		[]string{"service"},
	)
	recommendCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinegraph",
			Subsystem: "recommend",
			Name:      "fused_candidates",
			Help:      "Distribution of fused candidate counts per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	recommendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinegraph",
			Subsystem: "recommend",
			Name:      "duration_seconds",
			Help:      "Hybrid recommendation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	strategyFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinegraph",
			Subsystem: "recommend",
			Name:      "strategy_failures_total",
			Help:      "Total failed strategy dispatches during fusion.",
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchRequestsTotal,
		searchResults,
		searchDuration,
		recommendRequestsTotal,
		recommendCandidates,
		recommendDuration,
		strategyFailuresTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		searchRequestsTotal:    searchRequestsTotal,
		searchResults:          searchResults,
		searchDuration:         searchDuration,
		recommendRequestsTotal: recommendRequestsTotal,
		recommendCandidates:    recommendCandidates,
		recommendDuration:      recommendDuration,
		strategyFailuresTotal:  strategyFailuresTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordSearch(service, searchType string, resultCount int, duration time.Duration) {
	if searchType == "" {
		searchType = "unknown"
	}
	m.searchRequestsTotal.WithLabelValues(service, searchType).Inc()
	m.searchResults.WithLabelValues(service, searchType).Observe(float64(resultCount))
	m.searchDuration.WithLabelValues(service, searchType).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRecommendation(service string, candidateCount int, duration time.Duration) {
	m.recommendRequestsTotal.WithLabelValues(service).Inc()
	m.recommendCandidates.WithLabelValues(service).Observe(float64(candidateCount))
	m.recommendDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordStrategyFailure(service, strategy string) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.strategyFailuresTotal.WithLabelValues(service, strategy).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	renderDuration      *prometheus.HistogramVec
	picks               *prometheus.CounterVec
	loadDuration        prometheus.Histogram
	features            prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zipheat",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zipheat",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	renderDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zipheat",
		Name:      "render_duration_seconds",
		Help:      "Time spent rasterizing and encoding one map image",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"format"})

	picks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zipheat",
		Name:      "picks_total",
		Help:      "Hit tests resolved, by outcome",
	}, []string{"result"})

	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zipheat",
		Name:      "dataset_load_duration_seconds",
		Help:      "Duration of dataset loads from first fetch to merged features",
		Buckets:   []float64{.1, .5, 1, 2, 5, 10, 30, 60},
	})

	features := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zipheat",
		Name:      "dataset_features",
		Help:      "Number of features in the loaded dataset",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		renderDuration,
		picks,
		loadDuration,
		features,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		renderDuration:      renderDuration,
		picks:               picks,
		loadDuration:        loadDuration,
		features:            features,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRender(format string, duration time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.WithLabelValues(format).Observe(duration.Seconds())
}

func (m *Metrics) IncPick(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.picks.WithLabelValues(result).Inc()
}

// ObserveLoad records a completed dataset load.
func (m *Metrics) ObserveLoad(duration time.Duration, features int) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(duration.Seconds())
	m.features.Set(float64(features))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

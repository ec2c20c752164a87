package blogimageeditor

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Hamzashehzad1/blogimageeditor/apperr"
)

const metricsNamespace = "blogimageeditor"

// Metrics holds the editor's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	assetBytes    prometheus.Histogram
	assetQuality  prometheus.Histogram
}

// NewMetrics registers the pipeline collectors plus Go and process metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of suggestion and publishing stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stage_failures_total",
			Help:      "Failures by stage and error kind.",
		}, []string{"stage", "kind"}),
		assetBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "asset_bytes",
			Help:      "Size of stored reduced images.",
			Buckets:   prometheus.LinearBuckets(10*1024, 10*1024, 10),
		}),
		assetQuality: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "asset_quality",
			Help:      "Encoder quality accepted for stored images.",
			Buckets:   []float64{15, 25, 35, 45, 55, 65, 75, 85},
		}),
	}
	reg.MustRegister(
		m.stageDuration, m.stageFailures, m.assetBytes, m.assetQuality,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records request counts and latencies.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metricsNamespace,
		Registerer: m.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == metricsEndpoint
		},
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: m.Registry})
}

// Observe records one stage run. A non-nil err is counted by its kind.
func (m *Metrics) Observe(stage string, started time.Time, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(stage, apperr.KindOf(err).String()).Inc()
	}
}

// ObserveAsset records a stored image's size and quality.
func (m *Metrics) ObserveAsset(bytes, quality int) {
	m.assetBytes.Observe(float64(bytes))
	m.assetQuality.Observe(float64(quality))
}

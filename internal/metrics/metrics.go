package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the service on its own
// registry, so several collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	Predictions      *prometheus.CounterVec
	ReviewsDeleted   prometheus.Counter
	AnalysisDuration prometheus.Histogram
}

// NewCollector creates and registers all metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Total number of scored review lines",
			},
			[]string{"sentiment"},
		),
		ReviewsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_deleted_total",
				Help:      "Total number of stored reviews removed",
			},
		),
		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Time to score and persist one submission",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(c.HTTPRequests, c.Predictions, c.ReviewsDeleted, c.AnalysisDuration)
	return c
}

// ObservePrediction counts one scored line.
func (c *Collector) ObservePrediction(sentiment string) {
	c.Predictions.WithLabelValues(sentiment).Inc()
}

// ObserveAnalysis records how long a submission took.
func (c *Collector) ObserveAnalysis(d time.Duration) {
	c.AnalysisDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

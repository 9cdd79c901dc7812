// Package metrics exposes prometheus collectors for the summary service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

type Provider struct {
	registry           *prometheus.Registry
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	insertCollisions   prometheus.Counter
	generationFallback prometheus.Counter
	generationDuration prometheus.Histogram
	rateLimited        prometheus.Counter
	summariesTotal     prometheus.Gauge
	viewsTotal         prometheus.Gauge
}

// New registers all collectors on a fresh registry so that several
// providers can live in one process (tests, serverless warm starts).
func New() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Provider{
		registry: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tinyread_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tinyread_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "tinyread_summary_cache_hits_total",
			Help: "Resolves that found an existing summary",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "tinyread_summary_cache_misses_total",
			Help: "Resolves that had to generate a summary",
		}),

		insertCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "tinyread_summary_insert_collisions_total",
			Help: "Inserts that lost the race to a concurrent writer",
		}),

		generationFallback: f.NewCounter(prometheus.CounterOpts{
			Name: "tinyread_generation_fallbacks_total",
			Help: "Generations that returned fallback text",
		}),

		generationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tinyread_generation_duration_seconds",
			Help:    "Duration of summary generation in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}),

		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "tinyread_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),

		summariesTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "tinyread_summaries",
			Help: "Stored summaries at the last stats refresh",
		}),

		viewsTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "tinyread_views",
			Help: "Recorded views at the last stats refresh",
		}),
	}
}

func (m *Provider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *Provider) ObserveRequestDuration(endpoint string, d time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Provider) IncSummaryCacheHit() { m.cacheHits.Inc() }
func (m *Provider) IncSummaryCacheMiss() { m.cacheMisses.Inc() }
func (m *Provider) IncInsertCollision() { m.insertCollisions.Inc() }
func (m *Provider) IncGenerationFallback() { m.generationFallback.Inc() }
func (m *Provider) IncRateLimited() { m.rateLimited.Inc() }

func (m *Provider) ObserveGeneration(d time.Duration) {
	m.generationDuration.Observe(d.Seconds())
}

func (m *Provider) SetGlobalStats(stats *domain.GlobalStats) {
	m.summariesTotal.Set(float64(stats.TotalSummaries))
	m.viewsTotal.Set(float64(stats.TotalViews))
}

// Handler serves this provider's registry.
func (m *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Provider) Registry() *prometheus.Registry {
	return m.registry
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) IncRequestsTotal(string, int) {}
func (Noop) ObserveRequestDuration(string, time.Duration) {}
func (Noop) IncSummaryCacheHit() {}
func (Noop) IncSummaryCacheMiss() {}
func (Noop) IncInsertCollision() {}
func (Noop) IncGenerationFallback() {}
func (Noop) IncRateLimited() {}
func (Noop) ObserveGeneration(time.Duration) {}
func (Noop) SetGlobalStats(*domain.GlobalStats) {}

var (
	_ ports.Metrics = (*Provider)(nil)
	_ ports.Metrics = Noop{}
)

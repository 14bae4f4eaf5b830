// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperFetchesTotal        *prometheus.CounterVec
	scraperRetriesTotal        prometheus.Counter
	scraperProxyRotationsTotal prometheus.Counter
	scraperPublicationsTotal   *prometheus.CounterVec
	scraperRunsTotal           *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetches_total",
				Help: "Total number of page fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scraperRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_fetch_retries_total",
				Help: "Total number of fetch retry attempts.",
			},
		)

		scraperProxyRotationsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_proxy_rotations_total",
				Help: "Total number of proxy pool rotations.",
			},
		)

		scraperPublicationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_publications_total",
				Help: "Total number of publications extracted, labeled by category.",
			},
			[]string{"category"},
		)

		scraperRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Total number of scrape runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch increments the fetch counter for the given outcome.
func ObserveFetch(outcome string) {
	if scraperFetchesTotal == nil {
		return
	}
	scraperFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRetry increments the retry counter.
func ObserveRetry() {
	if scraperRetriesTotal == nil {
		return
	}
	scraperRetriesTotal.Inc()
}

// ObserveProxyRotation increments the proxy rotation counter.
func ObserveProxyRotation() {
	if scraperProxyRotationsTotal == nil {
		return
	}
	scraperProxyRotationsTotal.Inc()
}

// ObservePublication increments the publication counter for the given category.
func ObservePublication(category string) {
	if scraperPublicationsTotal == nil {
		return
	}
	if category == "" {
		category = "unknown"
	}
	scraperPublicationsTotal.WithLabelValues(category).Inc()
}

// ObserveRun increments the run counter for the given outcome.
func ObserveRun(outcome string) {
	if scraperRunsTotal == nil {
		return
	}
	scraperRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

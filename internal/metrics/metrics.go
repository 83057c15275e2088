// Package metrics exposes Prometheus collectors for the acquisition service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesAcquiredTotal         *prometheus.CounterVec
	fetchRetriesTotal          *prometheus.CounterVec
	artifactUploadsTotal       *prometheus.CounterVec
	documentsProcessedTotal    *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesAcquiredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docharvest_pages_acquired_total",
				Help: "Total number of URLs acquired, labeled by site and fetch method.",
			},
			[]string{"site", "method"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docharvest_fetch_retries_total",
				Help: "Total number of rendered fetch retries, labeled by site.",
			},
			[]string{"site"},
		)

		artifactUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docharvest_artifact_uploads_total",
				Help: "Total number of artifact uploads, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		documentsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docharvest_documents_processed_total",
				Help: "Total number of stored documents reprocessed, labeled by outcome.",
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAcquisition increments the page acquisition counter.
func ObserveAcquisition(site, method string) {
	Init()
	pagesAcquiredTotal.WithLabelValues(SanitizeSite(site), method).Inc()
}

// ObserveFetchRetry increments the rendered fetch retry counter.
func ObserveFetchRetry(site string) {
	Init()
	fetchRetriesTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// ObserveUpload increments the artifact upload counter for the given outcome.
func ObserveUpload(outcome string) {
	Init()
	artifactUploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReprocess increments the reprocessing counter for the given outcome.
func ObserveReprocess(outcome string) {
	Init()
	documentsProcessedTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

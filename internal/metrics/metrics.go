// Package metrics exposes Prometheus collectors for the catalog service.
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
	scrapePagesTotal           *prometheus.CounterVec
	scrapeRunsTotal            *prometheus.CounterVec
	institutionsTotal          *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	botEventsTotal             *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapePagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eduscan_pages_total",
				Help: "Total number of pages fetched during crawls, labeled by result.",
			},
			[]string{"result"},
		)

		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eduscan_scrape_runs_total",
				Help: "Total number of crawl runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		institutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eduscan_institutions_total",
				Help: "Institution listing outcomes, labeled by branch result.",
			},
			[]string{"result"},
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

		botEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eduscan_bot_events_total",
				Help: "Total number of conversational events, labeled by kind.",
			},
			[]string{"kind"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePageFetch counts one page fetch with the given result.
func ObservePageFetch(result string) {
	if scrapePagesTotal != nil {
		scrapePagesTotal.WithLabelValues(result).Inc()
	}
}

// ObserveScrapeRun counts one crawl run with the given outcome.
func ObserveScrapeRun(outcome string) {
	if scrapeRunsTotal != nil {
		scrapeRunsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveInstitution counts one listing branch result
// (discovered, skipped, failed).
func ObserveInstitution(result string) {
	if institutionsTotal != nil {
		institutionsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveBotEvent counts one inbound conversational event.
func ObserveBotEvent(kind string) {
	if botEventsTotal != nil {
		botEventsTotal.WithLabelValues(kind).Inc()
	}
}

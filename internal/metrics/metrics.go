// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results recorded by FeedFetches.
const (
	FetchFresh       = "fresh"
	FetchNotModified = "not_modified"
	FetchCached      = "cache_fallback"
	FetchFailed      = "failed"
)

var (
	// Registry is private to the process so tests get a clean slate.
	Registry = prometheus.NewRegistry()

	FeedFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctlcal",
		Name:      "feed_fetches_total",
		Help:      "Feed fetch attempts by result.",
	}, []string{"result"})

	EventsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctlcal",
		Name:      "events_loaded",
		Help:      "Events in the current snapshot.",
	})

	LastRefresh = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctlcal",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix time of the last successful snapshot swap.",
	})

	FilterRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctlcal",
		Name:      "filter_requests_total",
		Help:      "Filtered views served, by outcome.",
	}, []string{"outcome"})

	FilterDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ctlcal",
		Name:      "filter_duration_seconds",
		Help:      "Time spent in the filter pipeline.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		FeedFetches,
		EventsLoaded,
		LastRefresh,
		FilterRequests,
		FilterDuration,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterdesk_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})

	// ViewDuration observes how long each clustering view takes.
	ViewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clusterdesk_view_duration_seconds",
		Help:    "Clustering view latency.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"view"})

	// MetadataCache counts large-cluster metadata lookups by outcome.
	MetadataCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterdesk_metadata_cache_total",
		Help: "Large cluster metadata cache lookups by result (hit, miss).",
	}, []string{"result"})

	// TeaserSkipped counts nodes skipped because a tree jumped past a cutoff.
	TeaserSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clusterdesk_teaser_skipped_nodes_total",
		Help: "Hierarchy nodes finer than the requested teaser cutoff under a coarser parent.",
	})
)

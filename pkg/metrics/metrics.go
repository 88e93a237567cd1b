package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookexplorer_catalog_requests_total",
		Help: "Total number of requests sent to the catalog, by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	CatalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookexplorer_catalog_request_duration_seconds",
		Help:    "Duration of catalog requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	StaleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookexplorer_stale_responses_total",
		Help: "Catalog responses discarded because a newer query superseded them",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookexplorer_http_requests_total",
		Help: "Total number of HTTP requests served by the API",
	}, []string{"method", "route", "status"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookexplorer_active_sessions",
		Help: "Number of live API sessions",
	})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookexplorer_events_dropped_total",
		Help: "Session events replaced before a slow listener consumed them",
	})
)

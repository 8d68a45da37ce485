package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry metrics
	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_links_created_total",
			Help: "Total number of links created",
		},
		[]string{"source"}, // "custom" or "generated"
	)

	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_redirects_total",
			Help: "Total number of resolve attempts by result",
		},
		[]string{"result"}, // "ok", "not_found", "expired"
	)

	CodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_code_collisions_total",
			Help: "Generated short codes that hit a live link and were retried",
		},
	)

	LinksStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortlink_links_stored",
			Help: "Current number of records held by the registry, expired included",
		},
	)

	// Sweeper metrics
	LinksSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_links_swept_total",
			Help: "Expired links removed by the sweeper",
		},
	)

	ArchiveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_archive_failures_total",
			Help: "Sweeps whose evicted links could not be archived",
		},
	)

	// Log sink metrics
	LogSinkDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_log_sink_dropped_total",
			Help: "Log entries not delivered to the remote sink",
		},
		[]string{"reason"}, // "queue_full", "send_failed"
	)

	// Request metrics
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortlink_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_requests_total",
			Help: "Total number of requests",
		},
		[]string{"method", "route", "status"},
	)
)

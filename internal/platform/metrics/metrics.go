package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PostingsCreated   prometheus.Counter
	PostingsSolved    prometheus.Counter
	PostingsTakenDown prometheus.Counter
	ClaimsFiled       prometheus.Counter
	ClaimsApproved    prometheus.Counter
	ClaimsRejected    prometheus.Counter
	Conflicts         prometheus.Counter

	NotificationsPublished prometheus.Counter
	NotificationsDropped   prometheus.Counter

	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		PostingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_postings_created_total",
			Help: "Total number of postings created.",
		}),
		PostingsSolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_postings_solved_total",
			Help: "Total number of postings closed directly by their reporter.",
		}),
		PostingsTakenDown: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_postings_taken_down_total",
			Help: "Total number of postings force-closed by an administrator.",
		}),
		ClaimsFiled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_claims_filed_total",
			Help: "Total number of ownership claims filed.",
		}),
		ClaimsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_claims_approved_total",
			Help: "Total number of claims approved.",
		}),
		ClaimsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_claims_rejected_total",
			Help: "Total number of claims rejected.",
		}),
		Conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_lifecycle_conflicts_total",
			Help: "Total number of operations lost to optimistic concurrency.",
		}),
		NotificationsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_notifications_published_total",
			Help: "Total number of notification events handed to the sink.",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lofo_notifications_dropped_total",
			Help: "Total number of notification events the sink failed to deliver.",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lofo_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	PostsCreated         prometheus.Counter
	PostsExpired         prometheus.Counter
	MatchesFound         prometheus.Counter
	NotificationsQueued  prometheus.Counter
	DuplicatesSuppressed prometheus.Counter
	MatchTime            prometheus.Histogram
	ErrorsCount          *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PostsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_created_total",
			Help:      "The total number of published ride posts",
		}),
		PostsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_expired_total",
			Help:      "The total number of posts expired by the lifecycle worker",
		}),
		MatchesFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_found_total",
			Help:      "The total number of route matches found",
		}),
		NotificationsQueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueued_total",
			Help:      "The total number of match notifications enqueued for dispatch",
		}),
		DuplicatesSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_notifications_suppressed_total",
			Help:      "The total number of notifications suppressed by the dedup ledger",
		}),
		MatchTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_time_seconds",
			Help:      "Time taken to run the matching fan-out for a post",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

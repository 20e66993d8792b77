// Package metrics holds the domain counters exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_emitted_total",
			Help: "Total number of match candidates emitted by the matching engine",
		},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of match notifications by outcome",
		},
		[]string{"status"},
	)

	fanoutSubqueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_subqueries_total",
			Help: "Total number of listing sub-queries issued by the search fan-out",
		},
		[]string{"status"},
	)

	storeFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_flush_total",
			Help: "Total number of client store flushes by outcome",
		},
		[]string{"status"},
	)
)

func RecordMatches(n int) {
	matchesEmitted.Add(float64(n))
}

// RecordNotification status: sent, failed, stale, skipped.
func RecordNotification(status string) {
	notificationsSent.WithLabelValues(status).Inc()
}

func RecordSubquery(status string) {
	fanoutSubqueries.WithLabelValues(status).Inc()
}

func RecordFlush(status string) {
	storeFlushes.WithLabelValues(status).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsReplayedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickbook",
			Name:      "events_replayed_total",
			Help:      "Total number of replayed exchange events.",
		},
		[]string{"run", "kind"}, // kind: snap/order
	)

	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickbook",
			Name:      "reconcile_total",
			Help:      "Total number of snapshot reconciliation cycles.",
		},
		[]string{"run"},
	)

	OwnFillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickbook",
			Name:      "own_fills_total",
			Help:      "Total number of own-order fills booked.",
		},
		[]string{"run", "side"},
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tickbook",
			Name:      "reconcile_duration_seconds",
			Help:      "Wall time of one snapshot reconciliation cycle.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"run"},
	)
)

func MustRegister() {
	prometheus.MustRegister(EventsReplayedTotal, ReconcileTotal, OwnFillsTotal, ReconcileDuration)
}

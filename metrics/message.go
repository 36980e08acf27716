package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "Total inbound packets dispatched, by command.",
		},
		[]string{"command"},
	)

	MessagesSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Total outbound packets framed, by command.",
		},
		[]string{"command"},
	)

	MisbehaviorScored = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "misbehavior_total",
			Help:      "Total misbehavior-score increments, by reason.",
		},
		[]string{"reason"},
	)

	PingRTT = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "ping_rtt_seconds",
			Help:      "Observed round-trip time for ping/pong exchanges.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		},
	)
)

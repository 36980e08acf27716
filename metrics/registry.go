// Package metrics exposes Prometheus instrumentation for the peer
// session: connection lifecycle, handshake outcomes, message counts,
// ping latency, and the two reconstruction paths (compact blocks and
// merkleblocks). Every metric lives on a private registry rather than
// the global default, so a process embedding multiple peer sessions
// can register and scrape this package's metrics independently.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "peer"

// Registry is this package's private Prometheus registry. Metrics
// below are all registered against it via promauto.With(Registry).
var Registry = prometheus.NewRegistry()

// Handler returns an http.Handler serving this package's metrics in
// the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var (
	SessionsCreated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of peer sessions created.",
		},
	)

	SessionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of currently active peer sessions.",
		},
	)

	SessionsClosed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Total number of peer sessions closed, by reason.",
		},
		[]string{"reason"}, // transport, protocol, handshake, local
	)

	BanScore = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "ban_score",
			Help:      "Final misbehavior score observed at session close.",
			Buckets:   []float64{0, 1, 10, 20, 50, 100},
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CompactBlockFills = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compactblock",
			Name:      "fills_total",
			Help:      "Compact block reconstructions, by outcome.",
		},
		[]string{"outcome"}, // mempool_complete, getblocktxn_complete, failed, evicted
	)

	CompactBlockShortIDRetries = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compactblock",
			Name:      "short_id_retries_total",
			Help:      "Total short-ID collision retries while building a compact block to serve.",
		},
	)

	MerkleBlocksReassembled = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merkleblock",
			Name:      "reassembled_total",
			Help:      "Merkleblock reassemblies, by outcome.",
		},
		[]string{"outcome"}, // complete, root_mismatch, truncated
	)
)

// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package node

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the node's prometheus collectors (SPEC_FULL.md §9.5).
// Observability sits outside the consensus core's Non-goals but the
// collectors themselves never influence consensus decisions.
type Metrics struct {
	BlocksSealed      prometheus.Counter
	OptimaeAccepted   prometheus.Counter
	OptimaeRejected   prometheus.Counter
	QuorumTimeouts    prometheus.Counter
	MempoolSize       prometheus.Gauge
	BaseFee           prometheus.Gauge
	Threshold         prometheus.Gauge
	BlockSealLatency  prometheus.Histogram
}

// NewMetrics creates and registers a fresh Metrics set against registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		BlocksSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doin",
			Name:      "blocks_sealed_total",
			Help:      "Total number of blocks sealed by this node's PoO accumulator.",
		}),
		OptimaeAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doin",
			Name:      "optimae_accepted_total",
			Help:      "Total number of optimae accepted by a verification quorum.",
		}),
		OptimaeRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doin",
			Name:      "optimae_rejected_total",
			Help:      "Total number of optimae rejected by a verification quorum.",
		}),
		QuorumTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doin",
			Name:      "quorum_timeouts_total",
			Help:      "Total number of verification quorums abandoned on timeout.",
		}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "doin",
			Name:      "mempool_size",
			Help:      "Current number of pending transactions in the mempool.",
		}),
		BaseFee: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "doin",
			Name:      "base_fee",
			Help:      "Current fee market base fee.",
		}),
		Threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "doin",
			Name:      "poo_threshold",
			Help:      "Current proof-of-optimization acceptance threshold.",
		}),
		BlockSealLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "doin",
			Name:      "block_seal_latency_seconds",
			Help:      "Time elapsed between successive sealed blocks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.BlocksSealed, m.OptimaeAccepted, m.OptimaeRejected, m.QuorumTimeouts,
		m.MempoolSize, m.BaseFee, m.Threshold, m.BlockSealLatency,
	)
	return m
}

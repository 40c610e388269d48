package mpt

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring trie storage usage.
var (
	// nodesResolved prometheus metric.
	nodesResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie nodes read and decoded from the store",
			Name:      "nodes_resolved_total",
			Namespace: "mptrie",
		},
	)
	// nodeCacheHits prometheus metric.
	nodeCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie nodes served from the decoded node cache",
			Name:      "node_cache_hits_total",
			Namespace: "mptrie",
		},
	)
	// nodesCommitted prometheus metric.
	nodesCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of trie nodes written to the store",
			Name:      "nodes_committed_total",
			Namespace: "mptrie",
		},
	)
	// lastCommitSize prometheus metric.
	lastCommitSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of nodes in the last committed change set",
			Name:      "last_commit_size",
			Namespace: "mptrie",
		},
	)
)

func init() {
	prometheus.MustRegister(
		nodesResolved,
		nodeCacheHits,
		nodesCommitted,
		lastCommitSize,
	)
}

func updateCommitMetrics(nodes int) {
	nodesCommitted.Add(float64(nodes))
	lastCommitSize.Set(float64(nodes))
}

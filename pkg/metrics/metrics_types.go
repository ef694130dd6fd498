package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for a graph store
type Registry struct {
	// Transaction Metrics
	TransactionsTotal  *prometheus.CounterVec
	CommitDuration     prometheus.Histogram
	ActiveTransactions prometheus.Gauge

	// Storage Metrics
	StorageNodesTotal         prometheus.Gauge
	StorageRelationshipsTotal prometheus.Gauge

	// Index Metrics
	IndexOperationsTotal *prometheus.CounterVec
	IndexEntriesRemoved  prometheus.Counter

	// WAL Metrics
	WALAppendsTotal prometheus.Counter
	WALBytesTotal   prometheus.Counter

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// Transaction outcome label values
const (
	StatusCommitted  = "committed"
	StatusRolledBack = "rolled_back"
	StatusFailed     = "failed"
)

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultRegistry returns the process-wide metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initTransactionMetrics()
	r.initStorageMetrics()
	r.initIndexMetrics()
	r.initWALMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordTransaction records the outcome of a transaction. Duration is only
// observed for commits that reached the store.
func (r *Registry) RecordTransaction(status string, duration time.Duration) {
	r.TransactionsTotal.WithLabelValues(status).Inc()
	if status == StatusCommitted {
		r.CommitDuration.Observe(duration.Seconds())
	}
}

// TransactionStarted tracks a newly opened transaction
func (r *Registry) TransactionStarted() {
	r.ActiveTransactions.Inc()
}

// TransactionEnded tracks a transaction reaching a terminal state
func (r *Registry) TransactionEnded() {
	r.ActiveTransactions.Dec()
}

// UpdateStorageCounts sets the committed node and relationship gauges
func (r *Registry) UpdateStorageCounts(nodes, relationships int) {
	r.StorageNodesTotal.Set(float64(nodes))
	r.StorageRelationshipsTotal.Set(float64(relationships))
}

// RecordIndexOperation counts an index call (add, remove, get or query)
func (r *Registry) RecordIndexOperation(operation string) {
	r.IndexOperationsTotal.WithLabelValues(operation).Inc()
}

// RecordIndexCleanup counts entries dropped because their entity was deleted
func (r *Registry) RecordIndexCleanup(entries int) {
	r.IndexEntriesRemoved.Add(float64(entries))
}

// RecordWALAppend records one appended WAL entry of the given payload size
func (r *Registry) RecordWALAppend(bytes int) {
	r.WALAppendsTotal.Inc()
	r.WALBytesTotal.Add(float64(bytes))
}

func (r *Registry) initTransactionMetrics() {
	r.TransactionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdb_transactions_total",
			Help: "Total number of finished transactions by outcome",
		},
		[]string{"status"},
	)

	r.CommitDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphdb_commit_duration_seconds",
			Help:    "Time from begin to successful commit of a transaction",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	r.ActiveTransactions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdb_active_transactions",
			Help: "Number of open top-level transactions",
		},
	)
}

func (r *Registry) initStorageMetrics() {
	r.StorageNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdb_storage_nodes_total",
			Help: "Total number of committed nodes",
		},
	)

	r.StorageRelationshipsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdb_storage_relationships_total",
			Help: "Total number of committed relationships",
		},
	)
}

func (r *Registry) initIndexMetrics() {
	r.IndexOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdb_index_operations_total",
			Help: "Index operations by kind",
		},
		[]string{"operation"},
	)

	r.IndexEntriesRemoved = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphdb_index_entries_removed_on_delete_total",
			Help: "Index entries removed automatically because their entity was deleted",
		},
	)
}

func (r *Registry) initWALMetrics() {
	r.WALAppendsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphdb_wal_appends_total",
			Help: "Total number of commit records appended to the WAL",
		},
	)

	r.WALBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphdb_wal_bytes_total",
			Help: "Uncompressed bytes of commit records appended to the WAL",
		},
	)
}

package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.TransactionsTotal == nil || r.CommitDuration == nil {
		t.Error("transaction metrics not initialized")
	}
	if r.StorageNodesTotal == nil || r.StorageRelationshipsTotal == nil {
		t.Error("storage metrics not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordTransaction(t *testing.T) {
	r := NewRegistry()

	r.RecordTransaction(StatusCommitted, 2*time.Millisecond)
	r.RecordTransaction(StatusCommitted, 3*time.Millisecond)
	r.RecordTransaction(StatusFailed, time.Millisecond)

	counter, err := r.TransactionsTotal.GetMetricWithLabelValues(StatusCommitted)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("committed counter = %v, want 2", metric.Counter.GetValue())
	}

	var hist dto.Metric
	if err := r.CommitDuration.Write(&hist); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if hist.Histogram.GetSampleCount() != 2 {
		t.Errorf("commit duration samples = %d, want 2", hist.Histogram.GetSampleCount())
	}
}

func TestActiveTransactions(t *testing.T) {
	r := NewRegistry()
	r.TransactionStarted()
	r.TransactionStarted()
	r.TransactionEnded()

	var metric dto.Metric
	if err := r.ActiveTransactions.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 1 {
		t.Errorf("active transactions = %v, want 1", metric.Gauge.GetValue())
	}
}

func TestUpdateStorageCounts(t *testing.T) {
	r := NewRegistry()
	r.UpdateStorageCounts(12, 7)

	var metric dto.Metric
	if err := r.StorageRelationshipsTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 7 {
		t.Errorf("relationships gauge = %v, want 7", metric.Gauge.GetValue())
	}
}

func TestGatherIncludesAllFamilies(t *testing.T) {
	r := NewRegistry()
	r.RecordTransaction(StatusRolledBack, 0)
	r.RecordIndexOperation("add")
	r.RecordIndexCleanup(2)
	r.RecordWALAppend(128)

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"graphdb_transactions_total",
		"graphdb_index_operations_total",
		"graphdb_index_entries_removed_on_delete_total",
		"graphdb_wal_appends_total",
		"graphdb_wal_bytes_total",
	} {
		if !names[want] {
			t.Errorf("metric family %s missing from Gather()", want)
		}
	}
}

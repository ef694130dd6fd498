package storage

import (
	"testing"
)

// testGraphStorage creates a durable GraphStorage in a temp dir and closes it
// when the test ends
func testGraphStorage(t *testing.T, config ...StorageConfig) *GraphStorage {
	t.Helper()

	var cfg StorageConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}

	gs, err := NewGraphStorageWithConfig(cfg)
	if err != nil {
		t.Fatalf("Failed to create GraphStorage: %v", err)
	}

	t.Cleanup(func() {
		if err := gs.Close(); err != nil {
			t.Logf("Warning: Close() failed during cleanup: %v", err)
		}
	})

	return gs
}

// beginTx starts a transaction or fails the test
func beginTx(t *testing.T, gs *GraphStorage) *Transaction {
	t.Helper()

	tx, err := gs.BeginTransaction()
	if err != nil {
		t.Fatalf("BeginTransaction failed: %v", err)
	}
	return tx
}

// testNode commits a node with the given properties and returns its ID
func testNode(t *testing.T, gs *GraphStorage, properties map[string]Value) uint64 {
	t.Helper()

	var id uint64
	err := gs.Update(func(tx *Transaction) error {
		n, err := tx.CreateNodeWithProperties(properties)
		if err != nil {
			return err
		}
		id = n.ID
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to create test node: %v", err)
	}
	return id
}

// testRelationship commits a relationship and returns its ID
func testRelationship(t *testing.T, gs *GraphStorage, fromID, toID uint64, relType RelationshipType) uint64 {
	t.Helper()

	var id uint64
	err := gs.Update(func(tx *Transaction) error {
		r, err := tx.CreateRelationship(fromID, toID, relType)
		if err != nil {
			return err
		}
		id = r.ID
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to create test relationship: %v", err)
	}
	return id
}

// testIndexNode commits an index entry for a node
func testIndexNode(t *testing.T, gs *GraphStorage, index string, id uint64, key string, value Value) {
	t.Helper()

	err := gs.Update(func(tx *Transaction) error {
		return tx.NodeIndex(index).Add(id, key, value)
	})
	if err != nil {
		t.Fatalf("Failed to index node %d: %v", id, err)
	}
}

func stringProps(kv ...string) map[string]Value {
	props := make(map[string]Value, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		props[kv[i]] = StringValue(kv[i+1])
	}
	return props
}

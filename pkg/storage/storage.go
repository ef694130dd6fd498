package storage

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/dd0wney/koan-graphdb/pkg/metrics"
	"github.com/dd0wney/koan-graphdb/pkg/wal"
)

// NewGraphStorage creates a graph store persisted under dataDir. An empty
// dataDir gives a memory-only store.
func NewGraphStorage(dataDir string) (*GraphStorage, error) {
	return NewGraphStorageWithConfig(StorageConfig{DataDir: dataDir})
}

// NewInMemoryGraphStorage creates a store without a WAL
func NewInMemoryGraphStorage() *GraphStorage {
	gs, _ := NewGraphStorageWithConfig(StorageConfig{})
	return gs
}

// NewGraphStorageWithConfig creates a graph store with custom config. When a
// data directory is configured, the last snapshot is loaded and the WAL is
// replayed before the store is returned.
func NewGraphStorageWithConfig(config StorageConfig) (*GraphStorage, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	registry := config.Metrics
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	gs := &GraphStorage{
		nodes:         make(map[uint64]*Node),
		relationships: make(map[uint64]*Relationship),
		nodeIndexes:   make(map[string]*propertyIndex),
		relIndexes:    make(map[string]*propertyIndex),
		dataDir:       config.DataDir,
		logger:        logger.With(logging.Component("storage")),
		metrics:       registry,
	}

	if config.DataDir == "" {
		return gs, nil
	}

	if err := os.MkdirAll(config.DataDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := gs.loadSnapshot(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	walLog, err := wal.Open(config.DataDir, config.EnableCompression, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize WAL: %w", err)
	}
	gs.wal = walLog

	replayed, err := gs.replayWAL()
	if err != nil {
		walLog.Close()
		return nil, fmt.Errorf("failed to replay WAL: %w", err)
	}

	gs.metrics.UpdateStorageCounts(len(gs.nodes), len(gs.relationships))
	gs.logger.Info("graph storage opened",
		logging.Path(config.DataDir),
		logging.Int("nodes", len(gs.nodes)),
		logging.Int("relationships", len(gs.relationships)),
		logging.Int("replayed_commits", replayed),
		logging.Bool("compressed_wal", config.EnableCompression),
	)

	return gs, nil
}

// Close releases the WAL. Transactions still open afterwards can no longer
// stage or commit.
func (gs *GraphStorage) Close() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return nil
	}
	gs.closed = true

	if gs.wal != nil {
		if err := gs.wal.Close(); err != nil {
			return fmt.Errorf("failed to close WAL: %w", err)
		}
	}

	gs.logger.Info("graph storage closed")
	return nil
}

// Metrics returns the registry this store reports to
func (gs *GraphStorage) Metrics() *metrics.Registry {
	return gs.metrics
}

func (gs *GraphStorage) allocateNodeID() (uint64, error) {
	id := gs.lastNodeID.Add(1)
	if id == 0 {
		return 0, fmt.Errorf("node ID space exhausted")
	}
	return id, nil
}

func (gs *GraphStorage) allocateRelationshipID() (uint64, error) {
	id := gs.lastRelID.Add(1)
	if id == 0 {
		return 0, fmt.Errorf("relationship ID space exhausted")
	}
	return id, nil
}

// raiseCounter moves c up to at least v
func raiseCounter(c *atomic.Uint64, v uint64) {
	for {
		cur := c.Load()
		if cur >= v || c.CompareAndSwap(cur, v) {
			return
		}
	}
}

// GetNode returns a copy of a committed node
func (gs *GraphStorage) GetNode(nodeID uint64) (*Node, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	n, ok := gs.nodes[nodeID]
	if !ok {
		return nil, NodeNotFoundError("GetNode", nodeID)
	}
	return n.Clone(), nil
}

// GetRelationship returns a copy of a committed relationship
func (gs *GraphStorage) GetRelationship(relID uint64) (*Relationship, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	r, ok := gs.relationships[relID]
	if !ok {
		return nil, RelationshipNotFoundError("GetRelationship", relID)
	}
	return r.Clone(), nil
}

// RelationshipsOf returns the committed relationships of a node in
// insertion order, filtered by direction and (optionally) type.
func (gs *GraphStorage) RelationshipsOf(nodeID uint64, dir Direction, types ...RelationshipType) ([]*Relationship, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	return relationshipsOf(newWorkingSet(gs), nodeID, dir, types)
}

func relationshipsOf(ws *workingSet, nodeID uint64, dir Direction, types []RelationshipType) ([]*Relationship, error) {
	n, ok := ws.node(nodeID)
	if !ok {
		return nil, NodeNotFoundError("RelationshipsOf", nodeID)
	}

	result := make([]*Relationship, 0, len(n.Relationships))
	for _, relID := range n.Relationships {
		r, ok := ws.rel(relID)
		if !ok || !r.matches(nodeID, dir, types) {
			continue
		}
		result = append(result, r.Clone())
	}
	return result, nil
}

// GetNodeProperty reads a committed node property
func (gs *GraphStorage) GetNodeProperty(nodeID uint64, key string) (Value, error) {
	return gs.getProperty(KindNode, nodeID, key)
}

// HasNodeProperty reports whether a committed node has key
func (gs *GraphStorage) HasNodeProperty(nodeID uint64, key string) (bool, error) {
	return gs.hasProperty(KindNode, nodeID, key)
}

// GetRelationshipProperty reads a committed relationship property
func (gs *GraphStorage) GetRelationshipProperty(relID uint64, key string) (Value, error) {
	return gs.getProperty(KindRelationship, relID, key)
}

// HasRelationshipProperty reports whether a committed relationship has key
func (gs *GraphStorage) HasRelationshipProperty(relID uint64, key string) (bool, error) {
	return gs.hasProperty(KindRelationship, relID, key)
}

func (gs *GraphStorage) getProperty(kind EntityKind, id uint64, key string) (Value, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return getProperty(newWorkingSet(gs), kind, id, key)
}

func (gs *GraphStorage) hasProperty(kind EntityKind, id uint64, key string) (bool, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return hasProperty(newWorkingSet(gs), kind, id, key)
}

func getProperty(ws *workingSet, kind EntityKind, id uint64, key string) (Value, error) {
	if key == "" {
		return Value{}, NewError("GetProperty").Entity(kind, id).Cause(ErrInvalidPropertyKey).Err()
	}
	props, ok := ws.properties(kind, id)
	if !ok {
		return Value{}, entityNotFoundError("GetProperty", kind, id)
	}
	v, ok := props[key]
	if !ok {
		return Value{}, NewError("GetProperty").Entity(kind, id).Field(key).Cause(ErrPropertyNotFound).Err()
	}
	return v.clone(), nil
}

func hasProperty(ws *workingSet, kind EntityKind, id uint64, key string) (bool, error) {
	if key == "" {
		return false, NewError("HasProperty").Entity(kind, id).Cause(ErrInvalidPropertyKey).Err()
	}
	props, ok := ws.properties(kind, id)
	if !ok {
		return false, entityNotFoundError("HasProperty", kind, id)
	}
	_, ok = props[key]
	return ok, nil
}

// NodeCount returns the number of committed nodes
func (gs *GraphStorage) NodeCount() int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return len(gs.nodes)
}

// RelationshipCount returns the number of committed relationships
func (gs *GraphStorage) RelationshipCount() int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return len(gs.relationships)
}

// AllNodes returns copies of every committed node ordered by ID
func (gs *GraphStorage) AllNodes() []*Node {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	ids := make(map[uint64]struct{}, len(gs.nodes))
	for id := range gs.nodes {
		ids[id] = struct{}{}
	}
	nodes := make([]*Node, 0, len(ids))
	for _, id := range sortedIDs(ids) {
		nodes = append(nodes, gs.nodes[id].Clone())
	}
	return nodes
}

// GetStatistics returns a summary of the committed state
func (gs *GraphStorage) GetStatistics() Statistics {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	stats := Statistics{
		NodeCount:         len(gs.nodes),
		RelationshipCount: len(gs.relationships),
		NodeIndexes:       len(gs.nodeIndexes),
		RelIndexes:        len(gs.relIndexes),
		LastNodeID:        gs.lastNodeID.Load(),
		LastRelID:         gs.lastRelID.Load(),
		CommitSeq:         gs.commitSeq,
	}
	if gs.wal != nil && !gs.closed {
		stats.WALLSN = gs.wal.GetCurrentLSN()
	}
	return stats
}

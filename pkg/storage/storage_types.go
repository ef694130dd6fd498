package storage

import (
	"sync"
	"sync/atomic"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/dd0wney/koan-graphdb/pkg/metrics"
	"github.com/dd0wney/koan-graphdb/pkg/wal"
)

const (
	dirPermissions  = 0755
	filePermissions = 0644
)

// GraphStorage is an embedded graph store. It holds the committed state;
// all mutations go through a Transaction.
type GraphStorage struct {
	// Committed state, guarded by mu
	nodes         map[uint64]*Node
	relationships map[uint64]*Relationship
	nodeIndexes   map[string]*propertyIndex
	relIndexes    map[string]*propertyIndex

	// ID generators hold the last allocated ID. IDs are handed out at
	// staging time and never reused, even when the transaction rolls back.
	lastNodeID  atomic.Uint64
	lastRelID   atomic.Uint64
	txIDCounter atomic.Uint64

	// commitSeq numbers published commits. Snapshots record it so WAL
	// records already folded into a snapshot are skipped on replay.
	commitSeq uint64

	mu     sync.RWMutex
	closed bool

	// Persistence (nil wal means memory-only)
	dataDir string
	wal     wal.WriteAheadLog

	logger  logging.Logger
	metrics *metrics.Registry
}

// StorageConfig holds configuration for GraphStorage
type StorageConfig struct {
	// DataDir is where the WAL and snapshot live. Empty means memory-only.
	DataDir string
	// EnableCompression selects the snappy-compressed WAL.
	EnableCompression bool
	// Logger defaults to a no-op logger.
	Logger logging.Logger
	// Metrics defaults to a private registry.
	Metrics *metrics.Registry
}

// Statistics is a point-in-time summary of the committed state
type Statistics struct {
	NodeCount         int
	RelationshipCount int
	NodeIndexes       int
	RelIndexes        int
	LastNodeID        uint64
	LastRelID         uint64
	CommitSeq         uint64
	WALLSN            uint64
}

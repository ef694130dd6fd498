package storage

import (
	"sync"
	"time"
)

// TxStatus is the lifecycle state of a transaction
type TxStatus uint8

const (
	TxActive TxStatus = iota
	TxCommitted
	TxRolledBack
)

func (s TxStatus) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Transaction groups mutations into an atomic unit. Staged changes are
// visible to the transaction itself and to nothing else until Commit.
//
// A nested transaction (see Begin) shares the staged state of its
// top-level transaction; root points at that top-level transaction, or at
// the transaction itself.
type Transaction struct {
	gs     *GraphStorage
	id     uint64
	root   *Transaction
	status TxStatus

	// Fields below are only used on the root, guarded by root.mu
	mu           sync.Mutex
	rollbackOnly bool
	ops          []Mutation
	ws           *workingSet
	startedAt    time.Time
}

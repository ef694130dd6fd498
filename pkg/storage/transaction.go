// Transaction support for GraphDB storage.
//
// The implementation is split across:
//   - transaction_types.go: Transaction struct and status
//   - transaction_ops.go: graph and property operations within a transaction
//   - transaction_commit.go: commit and rollback
//   - index_handle.go: index operations within a transaction
package storage

import (
	"fmt"
	"time"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
)

// BeginTransaction starts a new top-level transaction. Transactions may run
// concurrently; each one must be used by a single caller at a time.
func (gs *GraphStorage) BeginTransaction() (*Transaction, error) {
	gs.mu.RLock()
	if gs.closed {
		gs.mu.RUnlock()
		return nil, NewError("BeginTransaction").Cause(ErrStorageClosed).Err()
	}
	ws := newWorkingSet(gs)
	gs.mu.RUnlock()

	tx := &Transaction{
		gs:        gs,
		id:        gs.txIDCounter.Add(1),
		status:    TxActive,
		ws:        ws,
		startedAt: time.Now(),
	}
	tx.root = tx

	gs.metrics.TransactionStarted()
	return tx, nil
}

// Begin opens a nested scope that joins tx. Work done through the nested
// transaction is part of tx. Committing the nested transaction only ends
// the scope; rolling it back marks tx rollback-only, so tx.Commit will roll
// back and return ErrRollbackOnly.
func (tx *Transaction) Begin() (*Transaction, error) {
	root := tx.root
	root.mu.Lock()
	defer root.mu.Unlock()

	if err := tx.checkActive("Begin"); err != nil {
		return nil, err
	}
	return &Transaction{
		gs:     tx.gs,
		id:     root.id,
		root:   root,
		status: TxActive,
	}, nil
}

// ID returns the transaction ID. Nested scopes share their parent's ID.
func (tx *Transaction) ID() uint64 {
	return tx.id
}

// IsNested reports whether tx joined an enclosing transaction
func (tx *Transaction) IsNested() bool {
	return tx.root != tx
}

// Status returns the current lifecycle state
func (tx *Transaction) Status() TxStatus {
	tx.root.mu.Lock()
	defer tx.root.mu.Unlock()
	return tx.status
}

// Mutations returns a copy of the ordered list of staged mutations
func (tx *Transaction) Mutations() []Mutation {
	root := tx.root
	root.mu.Lock()
	defer root.mu.Unlock()

	out := make([]Mutation, len(root.ops))
	copy(out, root.ops)
	return out
}

// checkActive must be called with root.mu held
func (tx *Transaction) checkActive(op string) error {
	if tx.status != TxActive || tx.root.status != TxActive {
		return NewError(op).Transaction(tx.id).Cause(ErrNoActiveTransaction).Err()
	}
	return nil
}

// Update runs fn inside a new transaction. The transaction is committed if
// fn returns nil and rolled back if fn returns an error or panics; exactly
// one of the two happens on every path.
func (gs *GraphStorage) Update(fn func(tx *Transaction) error) (err error) {
	tx, err := gs.BeginTransaction()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.rollbackIfActive()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.rollbackIfActive()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back. Useful for
// reads that want a consistent own-writes view, or for dry runs.
func (gs *GraphStorage) View(fn func(tx *Transaction) error) error {
	tx, err := gs.BeginTransaction()
	if err != nil {
		return err
	}
	defer tx.rollbackIfActive()

	return fn(tx)
}

func (tx *Transaction) rollbackIfActive() {
	if tx.Status() != TxActive {
		return
	}
	if err := tx.Rollback(); err != nil {
		tx.gs.logger.Warn("rollback failed", logging.TxID(tx.id), logging.Error(err))
	}
}

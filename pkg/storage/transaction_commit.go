package storage

import (
	"time"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/dd0wney/koan-graphdb/pkg/metrics"
)

// Commit validates the staged mutations against the latest committed state
// and publishes them atomically. On any failure nothing is published and the
// transaction ends rolled back.
//
// On a nested transaction Commit only ends the nested scope.
func (tx *Transaction) Commit() error {
	root := tx.root
	root.mu.Lock()
	defer root.mu.Unlock()

	if tx.status != TxActive {
		return NewError("Commit").Transaction(tx.id).Cause(ErrTransactionTerminal).Err()
	}

	if tx != root {
		if root.status != TxActive {
			tx.status = TxRolledBack
			return NewError("Commit").Transaction(tx.id).Cause(ErrNoActiveTransaction).Err()
		}
		tx.status = TxCommitted
		return nil
	}

	if root.rollbackOnly {
		root.abort()
		root.gs.logger.Debug("transaction rolled back at commit",
			logging.TxID(root.id), logging.String("reason", "rollback-only"))
		return NewError("Commit").Transaction(root.id).Cause(ErrRollbackOnly).Err()
	}

	timer := logging.StartTimer(root.gs.logger, "transaction commit",
		logging.TxID(root.id), logging.Count(len(root.ops)))

	res, err := root.gs.commit(root.id, root.ops)
	if err != nil {
		root.gs.metrics.RecordTransaction(metrics.StatusFailed, time.Since(root.startedAt))
		root.finishStatus(TxRolledBack)
		timer.EndError(err)
		return err
	}

	root.gs.metrics.RecordTransaction(metrics.StatusCommitted, time.Since(root.startedAt))
	if res.indexCleaned > 0 {
		root.gs.metrics.RecordIndexCleanup(res.indexCleaned)
	}
	root.finishStatus(TxCommitted)
	timer.End()
	return nil
}

// Rollback discards the staged mutations. On a nested transaction it ends
// the nested scope and marks the enclosing transaction rollback-only.
func (tx *Transaction) Rollback() error {
	root := tx.root
	root.mu.Lock()
	defer root.mu.Unlock()

	if tx.status != TxActive {
		return NewError("Rollback").Transaction(tx.id).Cause(ErrTransactionTerminal).Err()
	}

	if tx != root {
		tx.status = TxRolledBack
		if root.status == TxActive {
			root.rollbackOnly = true
		}
		return nil
	}

	root.abort()
	root.gs.logger.Debug("transaction rolled back",
		logging.TxID(root.id), logging.Count(len(root.ops)))
	return nil
}

// abort ends a root transaction without publishing. Caller holds mu.
func (tx *Transaction) abort() {
	tx.gs.metrics.RecordTransaction(metrics.StatusRolledBack, time.Since(tx.startedAt))
	tx.finishStatus(TxRolledBack)
}

func (tx *Transaction) finishStatus(status TxStatus) {
	tx.status = status
	tx.ws = nil
	tx.gs.metrics.TransactionEnded()
}

// commit replays ops on top of the committed state, validates the result,
// logs it and publishes it, all under the write lock.
func (gs *GraphStorage) commit(txID uint64, ops []Mutation) (flushResult, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return flushResult{}, NewError("Commit").Transaction(txID).Cause(ErrStorageClosed).Err()
	}
	if len(ops) == 0 {
		return flushResult{}, nil
	}

	ws, err := gs.prepare(ops)
	if err != nil {
		gs.logger.Warn("commit rejected", logging.TxID(txID), logging.Error(err))
		return flushResult{}, err
	}

	if err := gs.logCommit(txID, ops); err != nil {
		gs.logger.Error("failed to write commit to WAL", logging.TxID(txID), logging.Error(err))
		return flushResult{}, NewError("Commit").Transaction(txID).Cause(err).Err()
	}

	res := ws.flush()
	gs.commitSeq++
	gs.metrics.UpdateStorageCounts(len(gs.nodes), len(gs.relationships))
	return res, nil
}

// prepare builds a working set from the committed state with ops applied
// and validated. Caller holds the write lock.
func (gs *GraphStorage) prepare(ops []Mutation) (*workingSet, error) {
	ws := newWorkingSet(gs)
	for _, m := range ops {
		if err := ws.apply(m); err != nil {
			return nil, err
		}
	}
	if err := ws.validate(); err != nil {
		return nil, err
	}
	return ws, nil
}

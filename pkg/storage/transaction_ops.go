package storage

// withState runs fn against the transaction's staged view of the graph. The
// transaction must be active and the store open. fn runs with the
// transaction mutex and the store read lock held.
func (tx *Transaction) withState(op string, fn func(ws *workingSet) error) error {
	root := tx.root
	root.mu.Lock()
	defer root.mu.Unlock()

	if err := tx.checkActive(op); err != nil {
		return err
	}

	gs := tx.gs
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return NewError(op).Transaction(tx.id).Cause(ErrStorageClosed).Err()
	}
	if root.ws.seq != gs.commitSeq {
		root.refresh()
	}
	return fn(root.ws)
}

// refresh rebuilds the staged view on top of the latest committed state so
// that commits made by other transactions become visible. If the staged
// mutations no longer apply, the old view is kept and Commit reports the
// conflict. Caller holds root.mu and the store read lock.
func (tx *Transaction) refresh() {
	ws := newWorkingSet(tx.gs)
	for _, m := range tx.ops {
		if err := ws.apply(m); err != nil {
			return
		}
	}
	tx.ws = ws
}

// stage applies m to ws and, if it was accepted, appends it to the
// transaction's mutation list. Only valid inside withState.
func (tx *Transaction) stage(ws *workingSet, m Mutation) error {
	if err := ws.apply(m); err != nil {
		return err
	}
	tx.root.ops = append(tx.root.ops, m)
	return nil
}

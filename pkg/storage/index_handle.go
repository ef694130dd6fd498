package storage

import (
	"errors"
)

// Index metric operation labels
const (
	indexOpAdd    = "add"
	indexOpRemove = "remove"
	indexOpGet    = "get"
	indexOpQuery  = "query"
)

var errEmptyIndexName = errors.New("index name must not be empty")

// Index is a handle on a named secondary index mapping (key, value) pairs to
// entity IDs. A handle obtained from a Transaction reads the transaction's
// own index changes and can stage new ones; a handle obtained from
// GraphStorage reads committed state only.
//
// Indexes are created implicitly by their first committed entry.
type Index struct {
	gs   *GraphStorage
	tx   *Transaction
	name string
	kind EntityKind
}

// NodeIndex returns a read-only handle on the committed node index name
func (gs *GraphStorage) NodeIndex(name string) *Index {
	return &Index{gs: gs, name: name, kind: KindNode}
}

// RelationshipIndex returns a read-only handle on the committed
// relationship index name
func (gs *GraphStorage) RelationshipIndex(name string) *Index {
	return &Index{gs: gs, name: name, kind: KindRelationship}
}

// NodeIndex returns a handle on the node index name bound to tx
func (tx *Transaction) NodeIndex(name string) *Index {
	return &Index{gs: tx.gs, tx: tx, name: name, kind: KindNode}
}

// RelationshipIndex returns a handle on the relationship index name bound
// to tx
func (tx *Transaction) RelationshipIndex(name string) *Index {
	return &Index{gs: tx.gs, tx: tx, name: name, kind: KindRelationship}
}

// Name returns the index name
func (idx *Index) Name() string {
	return idx.name
}

// Kind returns the kind of entity the index holds
func (idx *Index) Kind() EntityKind {
	return idx.kind
}

// Add stages an entry mapping (key, value) to id. Whether id exists is
// checked when the transaction commits.
func (idx *Index) Add(id uint64, key string, value Value) error {
	return idx.stage("IndexAdd", OpIndexAdd, id, key, value)
}

// Remove stages the removal of the entry (key, value) -> id. Removing an
// entry that does not exist is a no-op.
func (idx *Index) Remove(id uint64, key string, value Value) error {
	return idx.stage("IndexRemove", OpIndexRemove, id, key, value)
}

func (idx *Index) stage(op string, mop MutationOp, id uint64, key string, value Value) error {
	if idx.tx == nil {
		return NewError(op).Index(idx.name).Cause(ErrNoActiveTransaction).Err()
	}
	if idx.name == "" {
		return NewError(op).Index(idx.name).Cause(errEmptyIndexName).Err()
	}

	v := value.clone()
	m := Mutation{Op: mop, Kind: idx.kind, ID: id, Key: key, Value: &v, Index: idx.name}
	err := idx.tx.withState(op, func(ws *workingSet) error {
		return idx.tx.stage(ws, m)
	})
	if err != nil {
		return err
	}

	if mop == OpIndexAdd {
		idx.gs.metrics.RecordIndexOperation(indexOpAdd)
	} else {
		idx.gs.metrics.RecordIndexOperation(indexOpRemove)
	}
	return nil
}

// Get returns the IDs indexed under exactly (key, value), sorted ascending
func (idx *Index) Get(key string, value Value) ([]uint64, error) {
	idx.gs.metrics.RecordIndexOperation(indexOpGet)
	return idx.lookup("IndexGet", key, value.Equal)
}

// GetSingle returns the only ID indexed under (key, value). It fails with
// ErrIndexEntryNotFound when there is none and ErrMultipleHits when there is
// more than one.
func (idx *Index) GetSingle(key string, value Value) (uint64, error) {
	ids, err := idx.Get(key, value)
	if err != nil {
		return 0, err
	}
	switch len(ids) {
	case 0:
		return 0, NewError("IndexGetSingle").Index(idx.name).Context(key + "=" + value.String()).Cause(ErrIndexEntryNotFound).Err()
	case 1:
		return ids[0], nil
	default:
		return 0, NewError("IndexGetSingle").Index(idx.name).Context(key + "=" + value.String()).Cause(ErrMultipleHits).Err()
	}
}

// Query returns the IDs whose value under key matches pattern. In the
// pattern '*' matches any run of characters and '?' exactly one; values are
// compared through their canonical string form.
func (idx *Index) Query(key, pattern string) ([]uint64, error) {
	idx.gs.metrics.RecordIndexOperation(indexOpQuery)
	return idx.lookup("IndexQuery", key, func(v Value) bool {
		return matchWildcard(pattern, v.String())
	})
}

func (idx *Index) lookup(op, key string, match func(Value) bool) ([]uint64, error) {
	if key == "" {
		return nil, NewError(op).Index(idx.name).Cause(ErrInvalidPropertyKey).Err()
	}

	if idx.tx == nil {
		idx.gs.mu.RLock()
		defer idx.gs.mu.RUnlock()
		return newWorkingSet(idx.gs).indexLookup(idx.kind, idx.name, key, match), nil
	}

	var ids []uint64
	err := idx.tx.withState(op, func(ws *workingSet) error {
		ids = ws.indexLookup(idx.kind, idx.name, key, match)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

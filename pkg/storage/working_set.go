package storage

import (
	"fmt"
	"sort"
)

// workingSet is a copy-on-write view over the committed state. A
// transaction keeps one while staging so it can read its own writes, and
// Commit builds a fresh one from the latest committed state to replay and
// validate the staged mutations before publishing them.
//
// Callers must hold GraphStorage.mu: the read lock while staging, the write
// lock while committing.
type workingSet struct {
	gs *GraphStorage
	// seq is the commit sequence the clones in nodes and rels were taken at
	seq uint64

	// Touched entities: created here or cloned from the committed state on
	// first write. Deleted nodes stay in nodes so their adjacency can be
	// checked at commit.
	nodes map[uint64]*Node
	rels  map[uint64]*Relationship

	deletedNodes map[uint64]struct{}
	deletedRels  map[uint64]struct{}
	createdRels  map[uint64]struct{}

	indexOps []Mutation
}

func newWorkingSet(gs *GraphStorage) *workingSet {
	return &workingSet{
		gs:           gs,
		seq:          gs.commitSeq,
		nodes:        make(map[uint64]*Node),
		rels:         make(map[uint64]*Relationship),
		deletedNodes: make(map[uint64]struct{}),
		deletedRels:  make(map[uint64]struct{}),
		createdRels:  make(map[uint64]struct{}),
	}
}

// node returns the visible version of a node (read-only)
func (ws *workingSet) node(id uint64) (*Node, bool) {
	if _, deleted := ws.deletedNodes[id]; deleted {
		return nil, false
	}
	if n, ok := ws.nodes[id]; ok {
		return n, true
	}
	n, ok := ws.gs.nodes[id]
	return n, ok
}

// rel returns the visible version of a relationship (read-only)
func (ws *workingSet) rel(id uint64) (*Relationship, bool) {
	if _, deleted := ws.deletedRels[id]; deleted {
		return nil, false
	}
	if r, ok := ws.rels[id]; ok {
		return r, true
	}
	r, ok := ws.gs.relationships[id]
	return r, ok
}

// nodeCopy returns a writable copy of a node, including one deleted in
// this working set.
func (ws *workingSet) nodeCopy(id uint64) (*Node, bool) {
	if n, ok := ws.nodes[id]; ok {
		return n, true
	}
	n, ok := ws.gs.nodes[id]
	if !ok {
		return nil, false
	}
	clone := n.Clone()
	ws.nodes[id] = clone
	return clone, true
}

func (ws *workingSet) nodeForWrite(id uint64) (*Node, bool) {
	if _, deleted := ws.deletedNodes[id]; deleted {
		return nil, false
	}
	return ws.nodeCopy(id)
}

func (ws *workingSet) relForWrite(id uint64) (*Relationship, bool) {
	if _, deleted := ws.deletedRels[id]; deleted {
		return nil, false
	}
	if r, ok := ws.rels[id]; ok {
		return r, true
	}
	r, ok := ws.gs.relationships[id]
	if !ok {
		return nil, false
	}
	clone := r.Clone()
	ws.rels[id] = clone
	return clone, true
}

func (ws *workingSet) exists(kind EntityKind, id uint64) bool {
	if kind == KindRelationship {
		_, ok := ws.rel(id)
		return ok
	}
	_, ok := ws.node(id)
	return ok
}

func (ws *workingSet) deletedHere(kind EntityKind, id uint64) bool {
	if kind == KindRelationship {
		_, ok := ws.deletedRels[id]
		return ok
	}
	_, ok := ws.deletedNodes[id]
	return ok
}

// properties returns the visible property map of an entity
func (ws *workingSet) properties(kind EntityKind, id uint64) (map[string]Value, bool) {
	if kind == KindRelationship {
		if r, ok := ws.rel(id); ok {
			return r.Properties, true
		}
		return nil, false
	}
	if n, ok := ws.node(id); ok {
		return n.Properties, true
	}
	return nil, false
}

func (ws *workingSet) propertiesForWrite(kind EntityKind, id uint64) (map[string]Value, bool) {
	if kind == KindRelationship {
		if r, ok := ws.relForWrite(id); ok {
			return r.Properties, true
		}
		return nil, false
	}
	if n, ok := ws.nodeForWrite(id); ok {
		return n.Properties, true
	}
	return nil, false
}

// apply stages one mutation. It only rejects mutations whose target is not
// visible; integrity checks are left to validate. A rejected mutation
// leaves the working set unchanged.
func (ws *workingSet) apply(m Mutation) error {
	switch m.Op {
	case OpCreateNode:
		if _, taken := ws.node(m.ID); taken || ws.deletedHere(KindNode, m.ID) {
			return NewError("CreateNode").Node(m.ID).Cause(fmt.Errorf("id already in use: %w", ErrInvariantViolation)).Err()
		}
		ws.nodes[m.ID] = &Node{ID: m.ID, Properties: make(map[string]Value)}

	case OpCreateRelationship:
		if err := m.Type.Validate(); err != nil {
			return NewError("CreateRelationship").Relationship(m.ID).Cause(err).Err()
		}
		if _, taken := ws.rel(m.ID); taken || ws.deletedHere(KindRelationship, m.ID) {
			return NewError("CreateRelationship").Relationship(m.ID).Cause(fmt.Errorf("id already in use: %w", ErrInvariantViolation)).Err()
		}
		ws.rels[m.ID] = &Relationship{
			ID:          m.ID,
			StartNodeID: m.StartNodeID,
			EndNodeID:   m.EndNodeID,
			Type:        m.Type,
			Properties:  make(map[string]Value),
		}
		ws.createdRels[m.ID] = struct{}{}
		// Missing endpoints are tolerated here and rejected by validate
		if n, ok := ws.nodeCopy(m.StartNodeID); ok {
			n.Relationships = append(n.Relationships, m.ID)
		}
		if m.EndNodeID != m.StartNodeID {
			if n, ok := ws.nodeCopy(m.EndNodeID); ok {
				n.Relationships = append(n.Relationships, m.ID)
			}
		}

	case OpDeleteNode:
		if _, ok := ws.nodeForWrite(m.ID); !ok {
			return NodeNotFoundError("DeleteNode", m.ID)
		}
		ws.deletedNodes[m.ID] = struct{}{}

	case OpDeleteRelationship:
		r, ok := ws.rel(m.ID)
		if !ok {
			return RelationshipNotFoundError("DeleteRelationship", m.ID)
		}
		ws.deletedRels[m.ID] = struct{}{}
		for _, endpoint := range []uint64{r.StartNodeID, r.EndNodeID} {
			if n, ok := ws.nodeCopy(endpoint); ok {
				n.removeRelationship(m.ID)
			}
		}

	case OpSetProperty, OpRemoveProperty:
		op := "SetProperty"
		if m.Op == OpRemoveProperty {
			op = "RemoveProperty"
		}
		if m.Key == "" {
			return NewError(op).Entity(m.Kind, m.ID).Cause(ErrInvalidPropertyKey).Err()
		}
		if m.Op == OpSetProperty {
			if m.Value == nil {
				return NewError(op).Entity(m.Kind, m.ID).Field(m.Key).Cause(fmt.Errorf("nil value")).Err()
			}
			if err := m.Value.validate(); err != nil {
				return NewError(op).Entity(m.Kind, m.ID).Field(m.Key).Cause(err).Err()
			}
		}
		props, ok := ws.propertiesForWrite(m.Kind, m.ID)
		if !ok {
			return entityNotFoundError(op, m.Kind, m.ID)
		}
		if m.Op == OpSetProperty {
			props[m.Key] = m.Value.clone()
		} else {
			delete(props, m.Key)
		}

	case OpIndexAdd, OpIndexRemove:
		if m.Value == nil || m.Key == "" {
			return NewError(m.Op.String()).Index(m.Index).Cause(ErrInvalidPropertyKey).Err()
		}
		if err := m.Value.validate(); err != nil {
			return NewError(m.Op.String()).Index(m.Index).Context("key=" + m.Key).Cause(err).Err()
		}
		ws.indexOps = append(ws.indexOps, m)

	default:
		return NewError("apply").Cause(fmt.Errorf("unknown mutation %s", m.Op)).Err()
	}
	return nil
}

// validate enforces the commit-time invariants: no deleted node keeps a
// live relationship, every new relationship has existing endpoints, and
// every index addition refers to an entity that exists (or was deleted in
// this same transaction, in which case the entry is dropped on flush).
func (ws *workingSet) validate() error {
	for _, id := range sortedIDs(ws.deletedNodes) {
		for _, relID := range ws.nodes[id].Relationships {
			if _, deleted := ws.deletedRels[relID]; !deleted {
				return NewError("Commit").Node(id).
					Cause(fmt.Errorf("relationship %d still attached: %w", relID, ErrDanglingRelationships)).Err()
			}
		}
	}

	for _, id := range sortedIDs(ws.createdRels) {
		if _, deleted := ws.deletedRels[id]; deleted {
			continue
		}
		r := ws.rels[id]
		for _, endpoint := range []uint64{r.StartNodeID, r.EndNodeID} {
			if _, ok := ws.node(endpoint); !ok {
				return NewError("Commit").Relationship(id).
					Cause(fmt.Errorf("node %d: %w", endpoint, ErrMissingEndpoint)).Err()
			}
		}
	}

	for _, m := range ws.indexOps {
		if m.Op != OpIndexAdd {
			continue
		}
		if !ws.exists(m.Kind, m.ID) && !ws.deletedHere(m.Kind, m.ID) {
			return NewError("Commit").Entity(m.Kind, m.ID).Field(m.Index).Cause(ErrIndexedEntityMissing).Err()
		}
	}
	return nil
}

// flushResult summarises what a flush changed, for metrics and logging
type flushResult struct {
	indexAdds    int
	indexRemoves int
	indexCleaned int
}

// flush publishes the working set into the committed state. The caller
// holds the write lock and has already validated.
func (ws *workingSet) flush() flushResult {
	gs := ws.gs
	var res flushResult

	for id, n := range ws.nodes {
		if _, deleted := ws.deletedNodes[id]; deleted {
			continue
		}
		gs.nodes[id] = n
	}
	for id, r := range ws.rels {
		if _, deleted := ws.deletedRels[id]; deleted {
			continue
		}
		gs.relationships[id] = r
	}
	for id := range ws.deletedNodes {
		delete(gs.nodes, id)
	}
	for id := range ws.deletedRels {
		delete(gs.relationships, id)
	}

	for _, m := range ws.indexOps {
		indexes := gs.indexesFor(m.Kind)
		idx := indexes[m.Index]
		switch m.Op {
		case OpIndexAdd:
			if ws.deletedHere(m.Kind, m.ID) {
				continue
			}
			if idx == nil {
				idx = newPropertyIndex(m.Index, m.Kind)
				indexes[m.Index] = idx
			}
			if idx.insert(m.ID, m.Key, *m.Value) {
				res.indexAdds++
			}
		case OpIndexRemove:
			if idx != nil && idx.remove(m.ID, m.Key, *m.Value) {
				res.indexRemoves++
			}
		}
	}

	for id := range ws.deletedNodes {
		for _, idx := range gs.nodeIndexes {
			res.indexCleaned += idx.removeEntity(id)
		}
	}
	for id := range ws.deletedRels {
		for _, idx := range gs.relIndexes {
			res.indexCleaned += idx.removeEntity(id)
		}
	}

	return res
}

// pairSet tracks (id, value) pairs so that removing one matching value
// does not hide an entity that still matches through another value.
type pairSet map[uint64]map[string]struct{}

func (p pairSet) add(id uint64, valueKey string) {
	vals, ok := p[id]
	if !ok {
		vals = make(map[string]struct{})
		p[id] = vals
	}
	vals[valueKey] = struct{}{}
}

func (p pairSet) remove(id uint64, valueKey string) {
	if vals, ok := p[id]; ok {
		delete(vals, valueKey)
		if len(vals) == 0 {
			delete(p, id)
		}
	}
}

// indexLookup resolves an index read against the committed index, the
// staged index operations and the staged deletions.
func (ws *workingSet) indexLookup(kind EntityKind, name, key string, match func(Value) bool) []uint64 {
	pairs := make(pairSet)
	if idx := ws.gs.indexesFor(kind)[name]; idx != nil {
		for vk, bucket := range idx.entries[key] {
			if !match(bucket.value) {
				continue
			}
			for id := range bucket.ids {
				pairs.add(id, vk)
			}
		}
	}

	for _, m := range ws.indexOps {
		if m.Kind != kind || m.Index != name || m.Key != key || !match(*m.Value) {
			continue
		}
		if m.Op == OpIndexAdd {
			pairs.add(m.ID, m.Value.valueKey())
		} else {
			pairs.remove(m.ID, m.Value.valueKey())
		}
	}

	ids := make([]uint64, 0, len(pairs))
	for id := range pairs {
		if ws.exists(kind, id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

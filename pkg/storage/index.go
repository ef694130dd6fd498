package storage

import (
	"sort"
)

// indexBucket holds the entity IDs indexed under one (key, value) pair
type indexBucket struct {
	value Value
	ids   map[uint64]struct{}
}

type entryRef struct {
	key      string
	valueKey string
}

// propertyIndex is the committed form of a named index. It is only touched
// while holding GraphStorage.mu.
type propertyIndex struct {
	name string
	kind EntityKind

	// key -> value key -> bucket
	entries map[string]map[string]*indexBucket

	// Reverse map used to drop every entry of a deleted entity
	byEntity map[uint64]map[entryRef]struct{}
}

func newPropertyIndex(name string, kind EntityKind) *propertyIndex {
	return &propertyIndex{
		name:     name,
		kind:     kind,
		entries:  make(map[string]map[string]*indexBucket),
		byEntity: make(map[uint64]map[entryRef]struct{}),
	}
}

// insert adds id under (key, value). Returns false if it was already there.
func (idx *propertyIndex) insert(id uint64, key string, value Value) bool {
	vk := value.valueKey()
	byValue, ok := idx.entries[key]
	if !ok {
		byValue = make(map[string]*indexBucket)
		idx.entries[key] = byValue
	}
	bucket, ok := byValue[vk]
	if !ok {
		bucket = &indexBucket{value: value.clone(), ids: make(map[uint64]struct{})}
		byValue[vk] = bucket
	}
	if _, exists := bucket.ids[id]; exists {
		return false
	}
	bucket.ids[id] = struct{}{}

	refs, ok := idx.byEntity[id]
	if !ok {
		refs = make(map[entryRef]struct{})
		idx.byEntity[id] = refs
	}
	refs[entryRef{key: key, valueKey: vk}] = struct{}{}
	return true
}

// remove drops id from (key, value). Returns false if it was not indexed.
func (idx *propertyIndex) remove(id uint64, key string, value Value) bool {
	return idx.removeRef(id, entryRef{key: key, valueKey: value.valueKey()})
}

func (idx *propertyIndex) removeRef(id uint64, ref entryRef) bool {
	byValue, ok := idx.entries[ref.key]
	if !ok {
		return false
	}
	bucket, ok := byValue[ref.valueKey]
	if !ok {
		return false
	}
	if _, exists := bucket.ids[id]; !exists {
		return false
	}

	delete(bucket.ids, id)
	if len(bucket.ids) == 0 {
		delete(byValue, ref.valueKey)
		if len(byValue) == 0 {
			delete(idx.entries, ref.key)
		}
	}

	if refs, ok := idx.byEntity[id]; ok {
		delete(refs, ref)
		if len(refs) == 0 {
			delete(idx.byEntity, id)
		}
	}
	return true
}

// removeEntity drops every entry of id and returns how many were removed
func (idx *propertyIndex) removeEntity(id uint64) int {
	refs, ok := idx.byEntity[id]
	if !ok {
		return 0
	}
	removed := 0
	for ref := range refs {
		if idx.removeRef(id, ref) {
			removed++
		}
	}
	return removed
}

// size returns the number of (id, key, value) entries
func (idx *propertyIndex) size() int {
	n := 0
	for _, refs := range idx.byEntity {
		n += len(refs)
	}
	return n
}

func sortedIDs(set map[uint64]struct{}) []uint64 {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// indexesFor returns the committed index namespace of kind
func (gs *GraphStorage) indexesFor(kind EntityKind) map[string]*propertyIndex {
	if kind == KindRelationship {
		return gs.relIndexes
	}
	return gs.nodeIndexes
}

// IndexNames returns the names of committed indexes of the given kind
func (gs *GraphStorage) IndexNames(kind EntityKind) []string {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	indexes := gs.indexesFor(kind)
	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

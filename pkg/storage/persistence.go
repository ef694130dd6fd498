package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/dd0wney/koan-graphdb/pkg/wal"
)

const snapshotFile = "snapshot.json"

// commitRecord is the WAL payload of one committed transaction
type commitRecord struct {
	Seq        uint64     `json:"seq"`
	TxID       uint64     `json:"tx_id"`
	TxUUID     uuid.UUID  `json:"tx_uuid"`
	LastNodeID uint64     `json:"last_node_id"`
	LastRelID  uint64     `json:"last_rel_id"`
	Mutations  []Mutation `json:"mutations"`
}

type indexEntrySnapshot struct {
	ID    uint64 `json:"id"`
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

type indexSnapshot struct {
	Name    string               `json:"name"`
	Entries []indexEntrySnapshot `json:"entries"`
}

type snapshot struct {
	CommitSeq     uint64          `json:"commit_seq"`
	LastNodeID    uint64          `json:"last_node_id"`
	LastRelID     uint64          `json:"last_rel_id"`
	Nodes         []*Node         `json:"nodes"`
	Relationships []*Relationship `json:"relationships"`
	NodeIndexes   []indexSnapshot `json:"node_indexes"`
	RelIndexes    []indexSnapshot `json:"rel_indexes"`
}

// logCommit appends ops as one WAL record. Caller holds the write lock.
func (gs *GraphStorage) logCommit(txID uint64, ops []Mutation) error {
	if gs.wal == nil {
		return nil
	}

	rec := commitRecord{
		Seq:        gs.commitSeq + 1,
		TxID:       txID,
		TxUUID:     uuid.New(),
		LastNodeID: gs.lastNodeID.Load(),
		LastRelID:  gs.lastRelID.Load(),
		Mutations:  ops,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode commit record: %w", err)
	}

	lsn, err := gs.wal.Append(wal.OpCommit, data)
	if err != nil {
		return err
	}

	gs.metrics.RecordWALAppend(len(data))
	gs.logger.Debug("commit logged",
		logging.TxID(txID),
		logging.Uint64("lsn", lsn),
		logging.String("tx_uuid", rec.TxUUID.String()),
	)
	return nil
}

// replayWAL re-applies every commit record newer than the loaded snapshot.
// It returns the number of commits applied.
func (gs *GraphStorage) replayWAL() (int, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	replayed := 0
	err := gs.wal.Replay(func(entry *wal.Entry) error {
		if entry.OpType != wal.OpCommit {
			return fmt.Errorf("unexpected WAL op type %d", entry.OpType)
		}

		var rec commitRecord
		if err := json.Unmarshal(entry.Data, &rec); err != nil {
			return fmt.Errorf("failed to decode commit record: %w", err)
		}

		raiseCounter(&gs.lastNodeID, rec.LastNodeID)
		raiseCounter(&gs.lastRelID, rec.LastRelID)
		if rec.Seq <= gs.commitSeq {
			return nil
		}

		ws, err := gs.prepare(rec.Mutations)
		if err != nil {
			return fmt.Errorf("commit %s (tx %d): %w", rec.TxUUID, rec.TxID, err)
		}
		ws.flush()
		gs.commitSeq = rec.Seq
		replayed++
		return nil
	})
	return replayed, err
}

// Snapshot writes the committed state to the data directory and truncates
// the WAL. Commits are blocked while it runs.
func (gs *GraphStorage) Snapshot() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return NewError("Snapshot").Cause(ErrStorageClosed).Err()
	}
	if gs.dataDir == "" {
		return NewError("Snapshot").Cause(errors.New("memory-only storage has no data directory")).Err()
	}

	snap := snapshot{
		CommitSeq:   gs.commitSeq,
		LastNodeID:  gs.lastNodeID.Load(),
		LastRelID:   gs.lastRelID.Load(),
		NodeIndexes: snapshotIndexes(gs.nodeIndexes),
		RelIndexes:  snapshotIndexes(gs.relIndexes),
	}

	nodeIDs := make(map[uint64]struct{}, len(gs.nodes))
	for id := range gs.nodes {
		nodeIDs[id] = struct{}{}
	}
	for _, id := range sortedIDs(nodeIDs) {
		snap.Nodes = append(snap.Nodes, gs.nodes[id])
	}

	relIDs := make(map[uint64]struct{}, len(gs.relationships))
	for id := range gs.relationships {
		relIDs[id] = struct{}{}
	}
	for _, id := range sortedIDs(relIDs) {
		snap.Relationships = append(snap.Relationships, gs.relationships[id])
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(gs.dataDir, snapshotFile)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if gs.wal != nil {
		if err := gs.wal.Truncate(); err != nil {
			return fmt.Errorf("failed to truncate WAL after snapshot: %w", err)
		}
	}

	gs.logger.Info("snapshot written",
		logging.Path(path),
		logging.Int("nodes", len(snap.Nodes)),
		logging.Int("relationships", len(snap.Relationships)),
		logging.Uint64("commit_seq", snap.CommitSeq),
	)
	return nil
}

func snapshotIndexes(indexes map[string]*propertyIndex) []indexSnapshot {
	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]indexSnapshot, 0, len(names))
	for _, name := range names {
		idx := indexes[name]
		is := indexSnapshot{Name: name}
		for _, id := range sortedIDs(idxEntities(idx)) {
			for ref := range idx.byEntity[id] {
				bucket := idx.entries[ref.key][ref.valueKey]
				is.Entries = append(is.Entries, indexEntrySnapshot{ID: id, Key: ref.key, Value: bucket.value})
			}
		}
		out = append(out, is)
	}
	return out
}

func idxEntities(idx *propertyIndex) map[uint64]struct{} {
	ids := make(map[uint64]struct{}, len(idx.byEntity))
	for id := range idx.byEntity {
		ids[id] = struct{}{}
	}
	return ids
}

// writeFileAtomic writes data to a temporary file and renames it over path
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissions)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// loadSnapshot restores the committed state from the data directory. The
// returned error satisfies os.IsNotExist when there is no snapshot.
func (gs *GraphStorage) loadSnapshot() error {
	data, err := os.ReadFile(filepath.Join(gs.dataDir, snapshotFile))
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	for _, n := range snap.Nodes {
		if n.Properties == nil {
			n.Properties = make(map[string]Value)
		}
		gs.nodes[n.ID] = n
	}
	for _, r := range snap.Relationships {
		if r.Properties == nil {
			r.Properties = make(map[string]Value)
		}
		gs.relationships[r.ID] = r
	}
	restoreIndexes(gs.nodeIndexes, KindNode, snap.NodeIndexes)
	restoreIndexes(gs.relIndexes, KindRelationship, snap.RelIndexes)

	raiseCounter(&gs.lastNodeID, snap.LastNodeID)
	raiseCounter(&gs.lastRelID, snap.LastRelID)
	gs.commitSeq = snap.CommitSeq

	gs.logger.Info("snapshot loaded",
		logging.Int("nodes", len(snap.Nodes)),
		logging.Int("relationships", len(snap.Relationships)),
		logging.Uint64("commit_seq", snap.CommitSeq),
	)
	return nil
}

func restoreIndexes(indexes map[string]*propertyIndex, kind EntityKind, snaps []indexSnapshot) {
	for _, is := range snaps {
		idx := newPropertyIndex(is.Name, kind)
		for _, e := range is.Entries {
			idx.insert(e.ID, e.Key, e.Value)
		}
		indexes[is.Name] = idx
	}
}

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSpecies commits one node per name and indexes it in "species"
func seedSpecies(t *testing.T, gs *GraphStorage, names ...string) map[string]uint64 {
	t.Helper()

	ids := make(map[string]uint64, len(names))
	err := gs.Update(func(tx *Transaction) error {
		species := tx.NodeIndex("species")
		for _, name := range names {
			n, err := tx.CreateNodeWithProperties(stringProps("species", name))
			if err != nil {
				return err
			}
			if err := species.Add(n.ID, "species", StringValue(name)); err != nil {
				return err
			}
			ids[name] = n.ID
		}
		return nil
	})
	require.NoError(t, err)
	return ids
}

func TestIndex_AddAndGet(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	ids := seedSpecies(t, gs, "Dalek", "Cyberman", "Dalek")

	hits, err := gs.NodeIndex("species").Get("species", StringValue("Cyberman"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{ids["Cyberman"]}, hits)

	// Both Dalek nodes, sorted
	hits, err = gs.NodeIndex("species").Get("species", StringValue("Dalek"))
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Less(t, hits[0], hits[1])

	hits, err = gs.NodeIndex("species").Get("species", StringValue("Ood"))
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = gs.NodeIndex("unknown").Get("species", StringValue("Dalek"))
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Equal(t, []string{"species"}, gs.IndexNames(KindNode))
	assert.Empty(t, gs.IndexNames(KindRelationship))
}

func TestIndex_ValuesAreTyped(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, nil)

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		return tx.NodeIndex("episodes").Add(id, "number", IntValue(1))
	}))

	hits, err := gs.NodeIndex("episodes").Get("number", StringValue("1"))
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = gs.NodeIndex("episodes").Get("number", IntValue(1))
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, hits)

	// Query compares the canonical string form
	hits, err = gs.NodeIndex("episodes").Query("number", "1")
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, hits)
}

func TestIndex_DuplicateAddIsDeduplicated(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, nil)

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		idx := tx.NodeIndex("characters")
		if err := idx.Add(id, "character", StringValue("Jack Harkness")); err != nil {
			return err
		}
		return idx.Add(id, "character", StringValue("Jack Harkness"))
	}))

	hits, err := gs.NodeIndex("characters").Get("character", StringValue("Jack Harkness"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, hits)
}

func TestIndex_Remove(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, nil)
	testIndexNode(t, gs, "characters", id, "character", StringValue("Abigail Pettigrew"))
	testIndexNode(t, gs, "characters", id, "character", StringValue("Abigail"))

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		idx := tx.NodeIndex("characters")
		if err := idx.Remove(id, "character", StringValue("Abigail")); err != nil {
			return err
		}
		// Removing an absent entry is a no-op
		return idx.Remove(id, "character", StringValue("Kazran Sardick"))
	}))

	hits, err := gs.NodeIndex("characters").Get("character", StringValue("Abigail"))
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Still reachable through its other value
	hits, err = gs.NodeIndex("characters").Query("character", "Abigail*")
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, hits)
}

func TestIndex_TransactionSeesOwnChanges(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	ids := seedSpecies(t, gs, "Sontaran")

	tx := beginTx(t, gs)
	defer tx.Rollback()
	idx := tx.NodeIndex("species")

	n, err := tx.CreateNode()
	require.NoError(t, err)
	require.NoError(t, idx.Add(n.ID, "species", StringValue("Sycorax")))
	require.NoError(t, idx.Remove(ids["Sontaran"], "species", StringValue("Sontaran")))

	hits, err := idx.Query("species", "S*")
	require.NoError(t, err)
	assert.Equal(t, []uint64{n.ID}, hits)

	// Committed handle sees none of it
	hits, err = gs.NodeIndex("species").Query("species", "S*")
	require.NoError(t, err)
	assert.Equal(t, []uint64{ids["Sontaran"]}, hits)

	// A staged delete hides the entity from index reads
	require.NoError(t, tx.DeleteNode(n.ID))
	hits, err = idx.Get("species", StringValue("Sycorax"))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_CommittedHandleIsReadOnly(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, nil)

	err := gs.NodeIndex("characters").Add(id, "character", StringValue("Rory Williams"))
	assert.ErrorIs(t, err, ErrNoActiveTransaction)
	err = gs.NodeIndex("characters").Remove(id, "character", StringValue("Rory Williams"))
	assert.ErrorIs(t, err, ErrNoActiveTransaction)
}

func TestIndex_AddForMissingEntityFailsAtCommit(t *testing.T) {
	gs := NewInMemoryGraphStorage()

	tx := beginTx(t, gs)
	require.NoError(t, tx.NodeIndex("characters").Add(404, "character", StringValue("Nobody")))
	err := tx.Commit()
	assert.ErrorIs(t, err, ErrIndexedEntityMissing)
	assert.True(t, IsInvariantViolation(err))
	assert.Empty(t, gs.IndexNames(KindNode))
}

func TestIndex_InvalidArguments(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, nil)

	tx := beginTx(t, gs)
	defer tx.Rollback()

	assert.ErrorIs(t, tx.NodeIndex("characters").Add(id, "", StringValue("x")), ErrInvalidPropertyKey)
	assert.Error(t, tx.NodeIndex("").Add(id, "character", StringValue("x")))

	_, err := tx.NodeIndex("characters").Get("", StringValue("x"))
	assert.ErrorIs(t, err, ErrInvalidPropertyKey)
}

func TestIndex_DeletedEntityRemovedFromEveryIndex(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, stringProps("character", "Cyberleader"))
	other := testNode(t, gs, stringProps("character", "Cyberman"))

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		if err := tx.NodeIndex("characters").Add(id, "character", StringValue("Cyberleader")); err != nil {
			return err
		}
		if err := tx.NodeIndex("characters").Add(other, "character", StringValue("Cyberman")); err != nil {
			return err
		}
		return tx.NodeIndex("villains").Add(id, "name", StringValue("Cyberleader"))
	}))

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		return tx.DeleteNode(id)
	}))

	for _, q := range []struct{ index, key string }{{"characters", "character"}, {"villains", "name"}} {
		hits, err := gs.NodeIndex(q.index).Query(q.key, "*")
		require.NoError(t, err)
		assert.NotContains(t, hits, id, "index %s", q.index)
	}

	hits, err := gs.NodeIndex("characters").Query("character", "Cyber*")
	require.NoError(t, err)
	assert.Equal(t, []uint64{other}, hits)
}

func TestIndex_AddAndDeleteInSameTransaction(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, nil)

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		if err := tx.NodeIndex("characters").Add(id, "character", StringValue("Adric")); err != nil {
			return err
		}
		return tx.DeleteNode(id)
	}))

	hits, err := gs.NodeIndex("characters").Get("character", StringValue("Adric"))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_RelationshipNamespace(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	a := testNode(t, gs, nil)
	b := testNode(t, gs, nil)
	relID := testRelationship(t, gs, a, b, enemyOf)

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		return tx.RelationshipIndex("feuds").Add(relID, "since", IntValue(1963))
	}))

	hits, err := gs.RelationshipIndex("feuds").Get("since", IntValue(1963))
	require.NoError(t, err)
	assert.Equal(t, []uint64{relID}, hits)

	// Same name in the node namespace is a different index
	hits, err = gs.NodeIndex("feuds").Get("since", IntValue(1963))
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, gs.Update(func(tx *Transaction) error {
		return tx.DeleteRelationship(relID)
	}))
	hits, err = gs.RelationshipIndex("feuds").Get("since", IntValue(1963))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_GetSingle(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	ids := seedSpecies(t, gs, "Judoon", "Ood", "Ood")
	idx := gs.NodeIndex("species")

	id, err := idx.GetSingle("species", StringValue("Judoon"))
	require.NoError(t, err)
	assert.Equal(t, ids["Judoon"], id)

	_, err = idx.GetSingle("species", StringValue("Zygon"))
	assert.ErrorIs(t, err, ErrIndexEntryNotFound)
	assert.True(t, IsNotFound(err))

	_, err = idx.GetSingle("species", StringValue("Ood"))
	assert.ErrorIs(t, err, ErrMultipleHits)
}

func TestIndex_WildcardQuery(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	ids := seedSpecies(t, gs, "Silurian", "Slitheen", "Sontaran", "Skarasen", "Cyberleader")

	hits, err := gs.NodeIndex("species").Query("species", "S*n")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{ids["Silurian"], ids["Slitheen"], ids["Sontaran"], ids["Skarasen"]}, hits)
	assert.NotContains(t, hits, ids["Cyberleader"])
}

func TestIndex_Metrics(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	seedSpecies(t, gs, "Dalek")

	_, err := gs.NodeIndex("species").Query("species", "D*")
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterVecValue(t, gs.Metrics().IndexOperationsTotal, indexOpAdd))
	assert.Equal(t, 1.0, counterVecValue(t, gs.Metrics().IndexOperationsTotal, indexOpQuery))
}

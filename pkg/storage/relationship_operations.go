package storage

// CreateRelationship stages a directed relationship from one node to
// another. Endpoint existence is checked when tx commits, so a
// relationship may be staged before (or without) its nodes.
func (tx *Transaction) CreateRelationship(fromNodeID, toNodeID uint64, relType RelationshipType) (*Relationship, error) {
	if err := relType.Validate(); err != nil {
		return nil, NewError("CreateRelationship").Cause(err).Err()
	}

	var rel *Relationship
	err := tx.withState("CreateRelationship", func(ws *workingSet) error {
		id, err := tx.gs.allocateRelationshipID()
		if err != nil {
			return NewError("CreateRelationship").Cause(err).Err()
		}
		m := Mutation{
			Op:          OpCreateRelationship,
			Kind:        KindRelationship,
			ID:          id,
			StartNodeID: fromNodeID,
			EndNodeID:   toNodeID,
			Type:        relType,
		}
		if err := tx.stage(ws, m); err != nil {
			return err
		}
		r, _ := ws.rel(id)
		rel = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// DeleteRelationship stages the deletion of a relationship
func (tx *Transaction) DeleteRelationship(relID uint64) error {
	return tx.withState("DeleteRelationship", func(ws *workingSet) error {
		return tx.stage(ws, Mutation{Op: OpDeleteRelationship, Kind: KindRelationship, ID: relID})
	})
}

// GetRelationship returns a copy of the relationship as seen by tx
func (tx *Transaction) GetRelationship(relID uint64) (*Relationship, error) {
	var rel *Relationship
	err := tx.withState("GetRelationship", func(ws *workingSet) error {
		r, ok := ws.rel(relID)
		if !ok {
			return RelationshipNotFoundError("GetRelationship", relID)
		}
		rel = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// RelationshipsOf returns the relationships of a node as seen by tx, in
// insertion order, filtered by direction and (optionally) type.
func (tx *Transaction) RelationshipsOf(nodeID uint64, dir Direction, types ...RelationshipType) ([]*Relationship, error) {
	var rels []*Relationship
	err := tx.withState("RelationshipsOf", func(ws *workingSet) error {
		var err error
		rels, err = relationshipsOf(ws, nodeID, dir, types)
		return err
	})
	return rels, err
}

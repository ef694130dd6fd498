package storage

// SetNodeProperty stages key=value on a node, overwriting any previous value
func (tx *Transaction) SetNodeProperty(nodeID uint64, key string, value Value) error {
	return tx.setProperty("SetNodeProperty", KindNode, nodeID, key, value)
}

// GetNodeProperty reads a node property as seen by tx
func (tx *Transaction) GetNodeProperty(nodeID uint64, key string) (Value, error) {
	return tx.getProperty("GetNodeProperty", KindNode, nodeID, key)
}

// RemoveNodeProperty stages the removal of key. Removing a missing key is a
// no-op.
func (tx *Transaction) RemoveNodeProperty(nodeID uint64, key string) error {
	return tx.removeProperty("RemoveNodeProperty", KindNode, nodeID, key)
}

// HasNodeProperty reports whether the node has key, as seen by tx
func (tx *Transaction) HasNodeProperty(nodeID uint64, key string) (bool, error) {
	return tx.hasProperty("HasNodeProperty", KindNode, nodeID, key)
}

// SetRelationshipProperty stages key=value on a relationship
func (tx *Transaction) SetRelationshipProperty(relID uint64, key string, value Value) error {
	return tx.setProperty("SetRelationshipProperty", KindRelationship, relID, key, value)
}

// GetRelationshipProperty reads a relationship property as seen by tx
func (tx *Transaction) GetRelationshipProperty(relID uint64, key string) (Value, error) {
	return tx.getProperty("GetRelationshipProperty", KindRelationship, relID, key)
}

// RemoveRelationshipProperty stages the removal of key
func (tx *Transaction) RemoveRelationshipProperty(relID uint64, key string) error {
	return tx.removeProperty("RemoveRelationshipProperty", KindRelationship, relID, key)
}

// HasRelationshipProperty reports whether the relationship has key
func (tx *Transaction) HasRelationshipProperty(relID uint64, key string) (bool, error) {
	return tx.hasProperty("HasRelationshipProperty", KindRelationship, relID, key)
}

func (tx *Transaction) setProperty(op string, kind EntityKind, id uint64, key string, value Value) error {
	v := value.clone()
	return tx.withState(op, func(ws *workingSet) error {
		return tx.stage(ws, Mutation{Op: OpSetProperty, Kind: kind, ID: id, Key: key, Value: &v})
	})
}

func (tx *Transaction) removeProperty(op string, kind EntityKind, id uint64, key string) error {
	return tx.withState(op, func(ws *workingSet) error {
		return tx.stage(ws, Mutation{Op: OpRemoveProperty, Kind: kind, ID: id, Key: key})
	})
}

func (tx *Transaction) getProperty(op string, kind EntityKind, id uint64, key string) (Value, error) {
	var v Value
	err := tx.withState(op, func(ws *workingSet) error {
		var err error
		v, err = getProperty(ws, kind, id, key)
		return err
	})
	return v, err
}

func (tx *Transaction) hasProperty(op string, kind EntityKind, id uint64, key string) (bool, error) {
	var has bool
	err := tx.withState(op, func(ws *workingSet) error {
		var err error
		has, err = hasProperty(ws, kind, id, key)
		return err
	})
	return has, err
}

package storage

import "sort"

// CreateNode stages a new node with no properties. The ID is allocated
// immediately and is not handed out again, even if tx rolls back.
func (tx *Transaction) CreateNode() (*Node, error) {
	return tx.CreateNodeWithProperties(nil)
}

// CreateNodeWithProperties stages a new node and sets its initial
// properties, in key order.
func (tx *Transaction) CreateNodeWithProperties(properties map[string]Value) (*Node, error) {
	var node *Node
	err := tx.withState("CreateNode", func(ws *workingSet) error {
		for key := range properties {
			if key == "" {
				return NewError("CreateNode").Cause(ErrInvalidPropertyKey).Err()
			}
		}

		id, err := tx.gs.allocateNodeID()
		if err != nil {
			return NewError("CreateNode").Cause(err).Err()
		}
		if err := tx.stage(ws, Mutation{Op: OpCreateNode, Kind: KindNode, ID: id}); err != nil {
			return err
		}

		keys := make([]string, 0, len(properties))
		for key := range properties {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			v := properties[key].clone()
			if err := tx.stage(ws, Mutation{Op: OpSetProperty, Kind: KindNode, ID: id, Key: key, Value: &v}); err != nil {
				return err
			}
		}

		n, _ := ws.node(id)
		node = n.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteNode stages the deletion of a node. The node must be visible to tx.
// Whether it still has relationships is checked when tx commits.
func (tx *Transaction) DeleteNode(nodeID uint64) error {
	return tx.withState("DeleteNode", func(ws *workingSet) error {
		return tx.stage(ws, Mutation{Op: OpDeleteNode, Kind: KindNode, ID: nodeID})
	})
}

// GetNode returns a copy of the node as seen by tx
func (tx *Transaction) GetNode(nodeID uint64) (*Node, error) {
	var node *Node
	err := tx.withState("GetNode", func(ws *workingSet) error {
		n, ok := ws.node(nodeID)
		if !ok {
			return NodeNotFoundError("GetNode", nodeID)
		}
		node = n.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

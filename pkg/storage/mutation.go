package storage

import "fmt"

// MutationOp identifies a staged change
type MutationOp uint8

const (
	OpCreateNode MutationOp = iota + 1
	OpDeleteNode
	OpCreateRelationship
	OpDeleteRelationship
	OpSetProperty
	OpRemoveProperty
	OpIndexAdd
	OpIndexRemove
)

func (op MutationOp) String() string {
	switch op {
	case OpCreateNode:
		return "create_node"
	case OpDeleteNode:
		return "delete_node"
	case OpCreateRelationship:
		return "create_relationship"
	case OpDeleteRelationship:
		return "delete_relationship"
	case OpSetProperty:
		return "set_property"
	case OpRemoveProperty:
		return "remove_property"
	case OpIndexAdd:
		return "index_add"
	case OpIndexRemove:
		return "index_remove"
	default:
		return fmt.Sprintf("MutationOp(%d)", uint8(op))
	}
}

// Mutation is one entry in a transaction's ordered list of pending changes.
// It is also the unit written to the WAL, so fields are tagged for JSON.
type Mutation struct {
	Op          MutationOp       `json:"op"`
	Kind        EntityKind       `json:"kind,omitempty"`
	ID          uint64           `json:"id"`
	StartNodeID uint64           `json:"start,omitempty"`
	EndNodeID   uint64           `json:"end,omitempty"`
	Type        RelationshipType `json:"type,omitempty"`
	Key         string           `json:"key,omitempty"`
	Value       *Value           `json:"value,omitempty"`
	Index       string           `json:"index,omitempty"`
}

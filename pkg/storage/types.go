package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// ValueType represents the type of a property value
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeInt
	TypeFloat
	TypeBool
)

// String returns the name of the value type
func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Value represents a typed property value
type Value struct {
	Type ValueType
	Data []byte
}

// Helper functions to create typed values
func StringValue(s string) Value {
	return Value{Type: TypeString, Data: []byte(s)}
}

func IntValue(i int64) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, uint64(i))
	return Value{Type: TypeInt, Data: data}
}

func FloatValue(f float64) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.Float64bits(f))
	return Value{Type: TypeFloat, Data: data}
}

func BoolValue(b bool) Value {
	data := []byte{0}
	if b {
		data[0] = 1
	}
	return Value{Type: TypeBool, Data: data}
}

// Decode methods
func (v Value) AsString() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("value is not a string")
	}
	return string(v.Data), nil
}

func (v Value) AsInt() (int64, error) {
	if v.Type != TypeInt || len(v.Data) != 8 {
		return 0, fmt.Errorf("value is not an int")
	}
	return int64(binary.LittleEndian.Uint64(v.Data)), nil
}

func (v Value) AsFloat() (float64, error) {
	if v.Type != TypeFloat || len(v.Data) != 8 {
		return 0, fmt.Errorf("value is not a float")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.Data)), nil
}

func (v Value) AsBool() (bool, error) {
	if v.Type != TypeBool || len(v.Data) != 1 {
		return false, fmt.Errorf("value is not a bool")
	}
	return v.Data[0] == 1, nil
}

// validate checks that v is one of the four value types and that its data
// has the encoded length of that type
func (v Value) validate() error {
	switch v.Type {
	case TypeString:
		return nil
	case TypeInt, TypeFloat:
		if len(v.Data) == 8 {
			return nil
		}
	case TypeBool:
		if len(v.Data) == 1 && v.Data[0] <= 1 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s with %d data bytes", ErrInvalidValue, v.Type, len(v.Data))
}

// Equal reports whether two values have the same type and content
func (v Value) Equal(other Value) bool {
	return v.Type == other.Type && bytes.Equal(v.Data, other.Data)
}

// String returns the canonical text form of the value. Index pattern
// queries match against this form.
func (v Value) String() string {
	switch v.Type {
	case TypeString:
		return string(v.Data)
	case TypeInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10)
	case TypeFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case TypeBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	default:
		return string(v.Data)
	}
}

// Interface returns the value as a native Go value
func (v Value) Interface() any {
	switch v.Type {
	case TypeString:
		return string(v.Data)
	case TypeInt:
		i, _ := v.AsInt()
		return i
	case TypeFloat:
		f, _ := v.AsFloat()
		return f
	case TypeBool:
		b, _ := v.AsBool()
		return b
	default:
		return nil
	}
}

// valueKey is the map key used for exact index lookups. The type tag keeps
// IntValue(1) and StringValue("1") apart.
func (v Value) valueKey() string {
	return strconv.Itoa(int(v.Type)) + ":" + string(v.Data)
}

func (v Value) clone() Value {
	data := make([]byte, len(v.Data))
	copy(data, v.Data)
	return Value{Type: v.Type, Data: data}
}

// RelationshipType is the type tag of a relationship. Any name accepted by
// NewRelationshipType can be created at runtime.
type RelationshipType string

const maxRelationshipTypeLength = 64

var (
	relTypePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	validate       = validator.New()
)

// NewRelationshipType validates name and returns it as a RelationshipType
func NewRelationshipType(name string) (RelationshipType, error) {
	if err := validate.Var(name, "required,max=64"); err != nil {
		return "", fmt.Errorf("%w: %q must be 1-%d characters", ErrInvalidRelationshipType, name, maxRelationshipTypeLength)
	}
	if !relTypePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q contains invalid characters", ErrInvalidRelationshipType, name)
	}
	return RelationshipType(name), nil
}

// MustRelationshipType is like NewRelationshipType but panics on an invalid name.
// Intended for package-level declarations of well-known types.
func MustRelationshipType(name string) RelationshipType {
	t, err := NewRelationshipType(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks that the tag is well formed
func (t RelationshipType) Validate() error {
	_, err := NewRelationshipType(string(t))
	return err
}

func (t RelationshipType) String() string {
	return string(t)
}

// Direction selects which incident relationships of a node are returned
type Direction uint8

const (
	DirectionBoth Direction = iota
	DirectionOutgoing
	DirectionIncoming
)

// EntityKind distinguishes nodes from relationships
type EntityKind uint8

const (
	KindNode EntityKind = iota
	KindRelationship
)

func (k EntityKind) String() string {
	if k == KindRelationship {
		return "relationship"
	}
	return "node"
}

// Node represents a vertex in the graph
type Node struct {
	ID         uint64
	Properties map[string]Value
	// Relationships holds incident relationship IDs (both directions) in
	// insertion order.
	Relationships []uint64
}

// Relationship represents a directed, typed edge between two nodes
type Relationship struct {
	ID          uint64
	StartNodeID uint64
	EndNodeID   uint64
	Type        RelationshipType
	Properties  map[string]Value
}

// Clone creates a deep copy of a node
func (n *Node) Clone() *Node {
	clone := &Node{
		ID:            n.ID,
		Properties:    make(map[string]Value, len(n.Properties)),
		Relationships: make([]uint64, len(n.Relationships)),
	}
	copy(clone.Relationships, n.Relationships)
	for k, v := range n.Properties {
		clone.Properties[k] = v.clone()
	}
	return clone
}

// GetProperty gets a property value
func (n *Node) GetProperty(key string) (Value, bool) {
	val, ok := n.Properties[key]
	return val, ok
}

func (n *Node) removeRelationship(relID uint64) {
	for i, id := range n.Relationships {
		if id == relID {
			n.Relationships = append(n.Relationships[:i], n.Relationships[i+1:]...)
			return
		}
	}
}

// Clone creates a deep copy of a relationship
func (r *Relationship) Clone() *Relationship {
	clone := &Relationship{
		ID:          r.ID,
		StartNodeID: r.StartNodeID,
		EndNodeID:   r.EndNodeID,
		Type:        r.Type,
		Properties:  make(map[string]Value, len(r.Properties)),
	}
	for k, v := range r.Properties {
		clone.Properties[k] = v.clone()
	}
	return clone
}

// GetProperty gets a property value
func (r *Relationship) GetProperty(key string) (Value, bool) {
	val, ok := r.Properties[key]
	return val, ok
}

// OtherNode returns the endpoint opposite to nodeID
func (r *Relationship) OtherNode(nodeID uint64) uint64 {
	if r.StartNodeID == nodeID {
		return r.EndNodeID
	}
	return r.StartNodeID
}

// IsType reports whether the relationship has the given type
func (r *Relationship) IsType(t RelationshipType) bool {
	return r.Type == t
}

// matches reports whether the relationship is visible from nodeID in the
// given direction and carries one of types (any type when types is empty).
func (r *Relationship) matches(nodeID uint64, dir Direction, types []RelationshipType) bool {
	switch dir {
	case DirectionOutgoing:
		if r.StartNodeID != nodeID {
			return false
		}
	case DirectionIncoming:
		if r.EndNodeID != nodeID {
			return false
		}
	}
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if r.Type == t {
			return true
		}
	}
	return false
}

package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_CanonicalString(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"string", StringValue("Sea Devil"), "Sea Devil"},
		{"int", IntValue(-42), "-42"},
		{"float", FloatValue(2.5), "2.5"},
		{"float whole", FloatValue(3), "3"},
		{"bool true", BoolValue(true), "true"},
		{"bool false", BoolValue(false), "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestValue_Accessors(t *testing.T) {
	s, err := StringValue("Skaro").AsString()
	require.NoError(t, err)
	assert.Equal(t, "Skaro", s)

	i, err := IntValue(1963).AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(1963), i)

	f, err := FloatValue(0.25).AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	b, err := BoolValue(true).AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	_, err = StringValue("x").AsInt()
	assert.Error(t, err)
	_, err = IntValue(1).AsBool()
	assert.Error(t, err)

	assert.Equal(t, int64(7), IntValue(7).Interface())
	assert.Equal(t, "seven", StringValue("seven").Interface())
}

func TestValue_Validate(t *testing.T) {
	valid := []Value{StringValue(""), StringValue("Gallifrey"), IntValue(-1), FloatValue(1.5), BoolValue(false), BoolValue(true)}
	for _, v := range valid {
		assert.NoError(t, v.validate(), "%s %q", v.Type, v.Data)
	}

	invalid := []Value{
		{Type: 42, Data: []byte{1, 2, 3}},
		{Type: TypeInt, Data: []byte{1, 2, 3}},
		{Type: TypeFloat},
		{Type: TypeBool, Data: []byte{2}},
		{Type: TypeBool, Data: []byte{1, 0}},
	}
	for _, v := range invalid {
		assert.ErrorIs(t, v.validate(), ErrInvalidValue, "%s %q", v.Type, v.Data)
	}
}

func TestSetProperty_RejectsMalformedValue(t *testing.T) {
	gs := NewInMemoryGraphStorage()
	id := testNode(t, gs, nil)

	err := gs.Update(func(tx *Transaction) error {
		return tx.SetNodeProperty(id, "k", Value{Type: 42, Data: []byte{1, 2, 3}})
	})
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = gs.Update(func(tx *Transaction) error {
		return tx.NodeIndex("species").Add(id, "species", Value{Type: TypeInt, Data: []byte{1}})
	})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = gs.GetNodeProperty(id, "k")
	assert.ErrorIs(t, err, ErrPropertyNotFound)
	ids, err := gs.NodeIndex("species").Query("species", "*")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, StringValue("Ood").Equal(StringValue("Ood")))
	assert.False(t, StringValue("1").Equal(IntValue(1)))
	assert.False(t, IntValue(1).Equal(IntValue(2)))
	assert.NotEqual(t, StringValue("1").valueKey(), IntValue(1).valueKey())
}

func TestNewRelationshipType(t *testing.T) {
	valid := []string{"COMPANION_OF", "ENEMY_OF", "_private", "a", "Type2", strings.Repeat("X", 64)}
	for _, name := range valid {
		rt, err := NewRelationshipType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, rt.String())
	}

	invalid := []string{"", "2NDS", "HAS SPACE", "DASH-ED", "ÜBER", strings.Repeat("X", 65)}
	for _, name := range invalid {
		_, err := NewRelationshipType(name)
		assert.ErrorIs(t, err, ErrInvalidRelationshipType, name)
	}

	assert.Panics(t, func() { MustRelationshipType("no good") })
	assert.NoError(t, MustRelationshipType("PLAYED").Validate())
}

func TestTxStatusString(t *testing.T) {
	assert.Equal(t, "active", TxActive.String())
	assert.Equal(t, "committed", TxCommitted.String())
	assert.Equal(t, "rolled back", TxRolledBack.String())
	assert.Equal(t, "delete_node", OpDeleteNode.String())
}

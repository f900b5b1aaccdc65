package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHorizons_Apply(t *testing.T) {
	cur := Horizons{FrozenXID: 700, MinMulti: 3}

	assert.Equal(t, cur, Horizons{}.Apply(cur))
	assert.Equal(t, Horizons{FrozenXID: 900, MinMulti: 3}, Horizons{FrozenXID: 900}.Apply(cur))
	assert.Equal(t, Horizons{FrozenXID: 700, MinMulti: 9}, Horizons{MinMulti: 9}.Apply(cur))
}

func TestRelationInfo_AttributeLookup(t *testing.T) {
	rel := &RelationInfo{
		Oid:  16384,
		Name: "orders",
		Attributes: []Attribute{
			{Number: 1, Name: "id", TypeName: "int4", AvgWidth: 4},
			{Number: 2, Name: "note", TypeName: "text", AvgWidth: 32},
		},
	}

	a, ok := rel.AttributeByName("note")
	assert.True(t, ok)
	assert.Equal(t, AttrNumber(2), a.Number)

	_, ok = rel.AttributeByName("missing")
	assert.False(t, ok)

	a, ok = rel.AttributeByNumber(1)
	assert.True(t, ok)
	assert.Equal(t, "id", a.Name)

	_, ok = rel.AttributeByNumber(InvalidAttrNumber)
	assert.False(t, ok)
}

func TestClone_DoesNotShareSlices(t *testing.T) {
	rel := &RelationInfo{Attributes: []Attribute{{Number: 1, Name: "id"}}}
	relCopy := rel.Clone()
	relCopy.Attributes[0].Name = "changed"
	assert.Equal(t, "id", rel.Attributes[0].Name)

	cs := ColumnStats{Slots: []StatSlot{{Kind: 1, Numbers: []float32{0.5}, Values: []string{"a"}}}}
	csCopy := cs.Clone()
	csCopy.Slots[0].Numbers[0] = 0.9
	csCopy.Slots[0].Values[0] = "b"
	assert.Equal(t, float32(0.5), cs.Slots[0].Numbers[0])
	assert.Equal(t, "a", cs.Slots[0].Values[0])

	ext := ExtendedStats{Keys: []AttrNumber{1, 2}, Kinds: []string{"d"}}
	extCopy := ext.Clone()
	extCopy.Keys[0] = 5
	assert.Equal(t, AttrNumber(1), ext.Keys[0])

	assert.Nil(t, (*RelationInfo)(nil).Clone())
}

func TestColumnStats_Key(t *testing.T) {
	cs := ColumnStats{Relation: 10, AttNum: 3, Inherit: true}
	assert.Equal(t, StatKey{Relation: 10, AttNum: 3, Inherit: true}, cs.Key())
}

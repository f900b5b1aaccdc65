package keyrange

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/protocol"
)

func threePartIndex() *Index {
	return &Index{
		Name: "idx_c",
		Parts: []KeyPart{
			{Column: "col0", Type: FieldInt, Nullable: true, StoreLength: 5},
			{Column: "col1", Type: FieldInt, StoreLength: 4},
			{Column: "col2", Type: FieldString, Nullable: true, StoreLength: 13},
		},
	}
}

func buildKey(t *testing.T, idx *Index, values map[int]interface{}, bits ...int) []byte {
	t.Helper()
	var buf []byte
	var err error
	for _, b := range bits {
		buf, err = AppendValue(buf, idx.Parts[b], values[b])
		require.NoError(t, err)
	}
	return buf
}

func TestSerialize_NullAndString(t *testing.T) {
	idx := threePartIndex()
	key := buildKey(t, idx, map[int]interface{}{0: nil, 2: "7"}, 0, 2)
	b := &Bound{Key: key, KeypartMap: 1<<0 | 1<<2, Flag: ReadKeyExact}

	node := protocol.NewItem(MinKeyItem)
	display, err := Serialize(b, idx, node)
	require.NoError(t, err)
	assert.Equal(t, "= col0(NULL), col2('7')", display)

	op, _ := node.Property("operator")
	assert.Equal(t, "=", op)
	length, _ := node.Property("length")
	assert.Equal(t, "18", length)
	name, _ := node.Property("index_name")
	assert.Equal(t, "idx_c", name)

	require.Len(t, node.Data, 2)
	col, _ := node.Data[0].Property("column")
	val, _ := node.Data[0].Property("value")
	assert.Equal(t, "col0", col)
	assert.Equal(t, "NULL", val)
	col, _ = node.Data[1].Property("column")
	val, _ = node.Data[1].Property("value")
	assert.Equal(t, "col2", col)
	assert.Equal(t, "'7'", val)
	assert.Equal(t, ColumnAndBoundItem, node.Data[1].ItemType)
}

func TestSerialize_ValueRendering(t *testing.T) {
	tests := []struct {
		name  string
		part  KeyPart
		value interface{}
		want  string
	}{
		{"int negative", KeyPart{Column: "a", Type: FieldInt, StoreLength: 4}, -42, "-42"},
		{"int8", KeyPart{Column: "a", Type: FieldInt, StoreLength: 1}, -1, "-1"},
		{"bigint nullable", KeyPart{Column: "a", Type: FieldInt, Nullable: true, StoreLength: 9}, int64(1) << 40, "1099511627776"},
		{"uint", KeyPart{Column: "a", Type: FieldUint, StoreLength: 2}, 65535, "65535"},
		{"double", KeyPart{Column: "a", Type: FieldFloat, StoreLength: 8}, 1.5, "1.5"},
		{"float", KeyPart{Column: "a", Type: FieldFloat, StoreLength: 4}, 0.25, "0.25"},
		{"binary hex", KeyPart{Column: "a", Type: FieldBinary, StoreLength: 3}, []byte{0xde, 0xAD, 0x01}, "0xdead01"},
		{"bit unquoted", KeyPart{Column: "a", Type: FieldBit, StoreLength: 2}, 513, "513"},
		{"geometry", KeyPart{Column: "a", Type: FieldGeometry, Nullable: true, StoreLength: 5}, []byte{1, 2}, "unprintable_geometry_value"},
		{"geometry null", KeyPart{Column: "a", Type: FieldGeometry, Nullable: true, StoreLength: 5}, nil, "NULL"},
		{"string escaped", KeyPart{Column: "a", Type: FieldString, StoreLength: 12}, "it's\n\\", `'it\'s\n\\'`},
		{"empty string", KeyPart{Column: "a", Type: FieldString, StoreLength: 4}, "", "''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &Index{Name: "i", Parts: []KeyPart{tt.part}}
			key, err := AppendValue(nil, tt.part, tt.value)
			require.NoError(t, err)
			r, err := Decode(&Bound{Key: key, KeypartMap: 1, Flag: ReadKeyOrNext}, idx)
			require.NoError(t, err)
			require.Len(t, r.Columns, 1)
			assert.Equal(t, tt.want, r.Columns[0].Value)
			assert.Equal(t, ">= a("+tt.want+")", r.Display())
		})
	}
}

func TestDecode_AbsentBound(t *testing.T) {
	r, err := Decode(nil, threePartIndex())
	require.NoError(t, err)
	assert.Equal(t, NoKeyRange, r.Display())

	node := protocol.NewItem(MaxKeyItem)
	r.Fill(node)
	assert.Empty(t, node.Properties)
	assert.Empty(t, node.Data)
}

func TestDecode_Errors(t *testing.T) {
	idx := threePartIndex()

	_, err := Decode(&Bound{Key: make([]byte, 5), KeypartMap: 1 << 5}, idx)
	assert.Error(t, err, "bit beyond index parts")

	_, err = Decode(&Bound{Key: make([]byte, 3), KeypartMap: 1}, idx)
	assert.Error(t, err, "short key buffer")

	_, err = Decode(&Bound{KeypartMap: 0}, nil)
	assert.Error(t, err)
}

func TestDecode_AdvancesByStoreLength(t *testing.T) {
	idx := threePartIndex()
	key := buildKey(t, idx, map[int]interface{}{0: 3, 1: 9, 2: "ab"}, 0, 1, 2)
	r, err := Decode(&Bound{Key: key, KeypartMap: 0b111, Flag: ReadAfterKey}, idx)
	require.NoError(t, err)
	assert.Equal(t, "> col0(3), col1(9), col2('ab')", r.Display())
	assert.Equal(t, []int{0, 1, 2}, []int{r.Columns[0].KeyPart, r.Columns[1].KeyPart, r.Columns[2].KeyPart})
}

func TestBitsSetIn(t *testing.T) {
	assert.Nil(t, BitsSetIn(0))
	assert.Equal(t, []int{0, 2}, BitsSetIn(5))
	assert.Equal(t, []int{63}, BitsSetIn(1<<63))
}

func TestReadFunction_Symbol(t *testing.T) {
	tests := map[ReadFunction]string{
		ReadKeyExact:         "=",
		ReadKeyOrNext:        ">=",
		ReadKeyOrPrev:        "<=",
		ReadAfterKey:         ">",
		ReadBeforeKey:        "<",
		ReadPrefix:           "=x%",
		ReadPrefixLast:       "last_x%",
		ReadPrefixLastOrPrev: "<=last_x%",
		ReadMBRWithin:        "HA_READ_MBR_WITHIN",
		ReadFunction(99):     "Unknown ha_rkey_function",
	}
	for f, want := range tests {
		assert.Equal(t, want, f.Symbol())
	}

	f, err := ParseSymbol("<=last_x%")
	require.NoError(t, err)
	assert.Equal(t, ReadPrefixLastOrPrev, f)
	_, err = ParseSymbol("~")
	assert.Error(t, err)
}

func TestNewRecordsInRangeRequest(t *testing.T) {
	idx := threePartIndex()
	minKey := buildKey(t, idx, map[int]interface{}{0: 10}, 0)
	req, summary, err := NewRecordsInRangeRequest("db", "public", "t", "", idx,
		&Bound{Key: minKey, KeypartMap: 1, Flag: ReadAfterKey}, nil)
	require.NoError(t, err)

	assert.Equal(t, "KEY: idx_c   MIN_KEY: {> col0(10)}, MAX_KEY: {<NO_KEY_RANGE>}", summary)
	fn, _ := req.Property("function")
	assert.Equal(t, RecordsInRangeFunction, fn)
	require.Len(t, req.Data, 2)
	assert.Equal(t, MinKeyItem, req.Data[0].ItemType)
	assert.Equal(t, MaxKeyItem, req.Data[1].ItemType)
	assert.Empty(t, req.Data[1].Properties)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.ToJSON()), &decoded))
}

func TestAppendValue_Errors(t *testing.T) {
	_, err := AppendValue(nil, KeyPart{Column: "a", Type: FieldInt, StoreLength: 4}, nil)
	assert.Error(t, err)
	_, err = AppendValue(nil, KeyPart{Column: "a", Type: FieldString, StoreLength: 3}, "long")
	assert.Error(t, err)
	_, err = AppendValue(nil, KeyPart{Column: "a", Type: FieldInt, StoreLength: 4}, "x")
	assert.Error(t, err)
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, `'a\0b\Z\"\r'`, QuoteString("a\x00b\x1a\"\r"))
}

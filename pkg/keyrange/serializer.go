package keyrange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kasuganosora/videx/pkg/protocol"
)

const (
	// NoKeyRange 缺失一端边界时的显示文本
	NoKeyRange = "<NO_KEY_RANGE>"

	// RecordsInRangeFunction 范围行数估算的请求函数名
	RecordsInRangeFunction = "records_in_range"

	MinKeyItem         = "min_key"
	MaxKeyItem         = "max_key"
	ColumnAndBoundItem = "column_and_bound"
)

// ColumnBound 一个参与范围的键列及其边界值
type ColumnBound struct {
	KeyPart int
	Column  string
	Value   string
}

// Range 一端边界的解码结果
type Range struct {
	Operator string
	Length   int
	Index    string
	Columns  []ColumnBound
	// Absent 边界不存在（开区间一端）
	Absent bool
}

// Display 返回 "<op> col0(v0), col1(v1)" 形式的显示文本
func (r *Range) Display() string {
	if r.Absent {
		return NoKeyRange
	}
	if len(r.Columns) == 0 {
		return r.Operator
	}
	cols := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = c.Column + "(" + c.Value + ")"
	}
	return r.Operator + " " + strings.Join(cols, ", ")
}

// Fill 把边界写入协议节点：operator/length/index_name 属性，
// 每个参与的键列一个 column_and_bound 子节点
func (r *Range) Fill(node *protocol.Item) {
	if r.Absent {
		return
	}
	node.AddProperty("operator", r.Operator)
	node.AddProperty("length", strconv.Itoa(r.Length))
	node.AddProperty("index_name", r.Index)
	for _, c := range r.Columns {
		node.Create(ColumnAndBoundItem).
			AddProperty("column", c.Column).
			AddProperty("value", c.Value)
	}
}

// Decode 按位图解码一端边界
// 位图按 0..63 升序检查，键值按同样的顺序从缓冲区读取，每次前进该键列的 StoreLength
func Decode(b *Bound, idx *Index) (*Range, error) {
	if b == nil {
		return &Range{Absent: true}, nil
	}
	if idx == nil {
		return nil, fmt.Errorf("index descriptor is required")
	}

	length := b.Length
	if length == 0 {
		length = len(b.Key)
	}
	r := &Range{
		Operator: b.Flag.Symbol(),
		Length:   length,
		Index:    idx.Name,
	}

	pos := 0
	for _, bit := range BitsSetIn(b.KeypartMap) {
		if bit >= len(idx.Parts) {
			return nil, fmt.Errorf("key part %d out of range for index %s with %d parts", bit, idx.Name, len(idx.Parts))
		}
		part := idx.Parts[bit]
		if part.StoreLength <= 0 || (part.Nullable && part.StoreLength < 2) {
			return nil, fmt.Errorf("invalid store length %d for key part %s", part.StoreLength, part.Column)
		}
		if pos+part.StoreLength > len(b.Key) {
			return nil, fmt.Errorf("key buffer too short for key part %s: need %d bytes at offset %d, have %d",
				part.Column, part.StoreLength, pos, len(b.Key))
		}
		value, err := renderValue(part, b.Key[pos:pos+part.StoreLength])
		if err != nil {
			return nil, err
		}
		r.Columns = append(r.Columns, ColumnBound{KeyPart: bit, Column: part.Column, Value: value})
		pos += part.StoreLength
	}
	return r, nil
}

// Serialize 解码边界并填充协议节点，返回显示文本
func Serialize(b *Bound, idx *Index, node *protocol.Item) (string, error) {
	r, err := Decode(b, idx)
	if err != nil {
		return "", err
	}
	if node != nil {
		r.Fill(node)
	}
	return r.Display(), nil
}

// NewRecordsInRangeRequest 构造范围行数估算请求，附带 min_key 与 max_key 子节点
// 返回请求以及 "KEY: idx   MIN_KEY: {...}, MAX_KEY: {...}" 形式的摘要
func NewRecordsInRangeRequest(db, schema, table, engine string, idx *Index, min, max *Bound) (*protocol.Item, string, error) {
	if idx == nil {
		return nil, "", fmt.Errorf("index descriptor is required")
	}
	req := protocol.NewRequest(db, schema, table, RecordsInRangeFunction, engine)

	minText, err := Serialize(min, idx, req.Create(MinKeyItem))
	if err != nil {
		return nil, "", fmt.Errorf("min key: %w", err)
	}
	maxText, err := Serialize(max, idx, req.Create(MaxKeyItem))
	if err != nil {
		return nil, "", fmt.Errorf("max key: %w", err)
	}

	summary := fmt.Sprintf("KEY: %s   MIN_KEY: {%s}, MAX_KEY: {%s}", idx.Name, minText, maxText)
	return req, summary, nil
}

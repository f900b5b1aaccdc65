package keyrange

import "fmt"

// ReadFunction 范围读取函数
type ReadFunction int

const (
	ReadKeyExact ReadFunction = iota
	ReadKeyOrNext
	ReadKeyOrPrev
	ReadAfterKey
	ReadBeforeKey
	ReadPrefix
	ReadPrefixLast
	ReadPrefixLastOrPrev
	ReadMBRContain
	ReadMBRIntersect
	ReadMBRWithin
	ReadMBRDisjoint
	ReadMBREqual
)

var readSymbols = map[ReadFunction]string{
	ReadKeyExact:         "=",
	ReadKeyOrNext:        ">=",
	ReadKeyOrPrev:        "<=",
	ReadAfterKey:         ">",
	ReadBeforeKey:        "<",
	ReadPrefix:           "=x%",
	ReadPrefixLast:       "last_x%",
	ReadPrefixLastOrPrev: "<=last_x%",
	ReadMBRContain:       "HA_READ_MBR_CONTAIN",
	ReadMBRIntersect:     "HA_READ_MBR_INTERSECT",
	ReadMBRWithin:        "HA_READ_MBR_WITHIN",
	ReadMBRDisjoint:      "HA_READ_MBR_DISJOINT",
	ReadMBREqual:         "HA_READ_MBR_EQUAL",
}

// Symbol 返回操作符符号
func (f ReadFunction) Symbol() string {
	if s, ok := readSymbols[f]; ok {
		return s
	}
	return "Unknown ha_rkey_function"
}

// ParseSymbol 由符号反查读取函数
func ParseSymbol(s string) (ReadFunction, error) {
	for f, sym := range readSymbols {
		if sym == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown range operator: %s", s)
}

// FieldType 键列的存储类型，决定键值的解码与显示方式
type FieldType int

const (
	// FieldString 2 字节小端长度前缀加内容，显示时加引号并转义
	FieldString FieldType = iota
	// FieldInt 小端有符号整数，宽度为 1/2/4/8
	FieldInt
	// FieldUint 小端无符号整数
	FieldUint
	// FieldFloat 小端 IEEE 754，宽度为 4 或 8
	FieldFloat
	// FieldBinary 二进制串，显示为 0x 加小写十六进制
	FieldBinary
	// FieldBit 大端无符号整数，显示为不带引号的十进制
	FieldBit
	// FieldGeometry 几何类型，值不可打印
	FieldGeometry
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInt:
		return "int"
	case FieldUint:
		return "uint"
	case FieldFloat:
		return "float"
	case FieldBinary:
		return "binary"
	case FieldBit:
		return "bit"
	case FieldGeometry:
		return "geometry"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// KeyPart 索引的一个键列
type KeyPart struct {
	Column   string
	Type     FieldType
	Nullable bool
	// StoreLength 在键缓冲区中占用的字节数，可空列包含开头的空标志字节
	StoreLength int
}

// valueLength 去掉空标志字节后的长度
func (p KeyPart) valueLength() int {
	if p.Nullable {
		return p.StoreLength - 1
	}
	return p.StoreLength
}

// Index 索引描述
type Index struct {
	Name  string
	Parts []KeyPart
}

// Bound 范围的一端
type Bound struct {
	Key        []byte
	Length     int
	KeypartMap uint64
	Flag       ReadFunction
}

// BitsSetIn 按升序返回 0..63 中被置位的位
func BitsSetIn(bitmap uint64) []int {
	var bits []int
	for i := 0; i < 64; i++ {
		if bitmap&(uint64(1)<<uint(i)) != 0 {
			bits = append(bits, i)
		}
	}
	return bits
}

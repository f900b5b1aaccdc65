package keyrange

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	nullText     = "NULL"
	geometryText = "unprintable_geometry_value"
	lengthPrefix = 2
)

var mysqlEscaper = strings.NewReplacer(
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	`\`, `\\`,
	"'", `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

// QuoteString 加单引号并按 MySQL 规则转义
func QuoteString(s string) string {
	return "'" + mysqlEscaper.Replace(s) + "'"
}

// renderValue 把一个键列的键值渲染成文本
// key 从该键列的起始位置开始，长度至少为 StoreLength
func renderValue(part KeyPart, key []byte) (string, error) {
	if part.Nullable {
		if key[0] != 0 {
			return nullText, nil
		}
		key = key[1:]
	}
	data := key[:part.valueLength()]

	switch part.Type {
	case FieldGeometry:
		return geometryText, nil
	case FieldBinary:
		return "0x" + hex.EncodeToString(data), nil
	case FieldBit:
		return new(big.Int).SetBytes(data).String(), nil
	case FieldInt:
		v, err := readInt(data)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case FieldUint:
		v, err := readUint(data)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(v, 10), nil
	case FieldFloat:
		switch len(data) {
		case 4:
			f := math.Float32frombits(binary.LittleEndian.Uint32(data))
			return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
		case 8:
			f := math.Float64frombits(binary.LittleEndian.Uint64(data))
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}
		return "", fmt.Errorf("unsupported float width %d", len(data))
	case FieldString:
		if len(data) < lengthPrefix {
			return "", fmt.Errorf("string key part %s shorter than its length prefix", part.Column)
		}
		n := int(binary.LittleEndian.Uint16(data))
		body := data[lengthPrefix:]
		if n > len(body) {
			n = len(body)
		}
		return QuoteString(string(body[:n])), nil
	default:
		return "", fmt.Errorf("unsupported field type %s", part.Type)
	}
}

func readUint(data []byte) (uint64, error) {
	switch len(data) {
	case 1:
		return uint64(data[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	case 8:
		return binary.LittleEndian.Uint64(data), nil
	}
	return 0, fmt.Errorf("unsupported integer width %d", len(data))
}

func readInt(data []byte) (int64, error) {
	u, err := readUint(data)
	if err != nil {
		return 0, err
	}
	switch len(data) {
	case 1:
		return int64(int8(u)), nil
	case 2:
		return int64(int16(u)), nil
	case 4:
		return int64(int32(u)), nil
	}
	return int64(u), nil
}

// AppendValue 按键列的存储格式把值追加到键缓冲区
// v 为 nil 表示 NULL，只允许用于可空列
func AppendValue(buf []byte, part KeyPart, v interface{}) ([]byte, error) {
	slot := make([]byte, part.StoreLength)
	data := slot
	if part.Nullable {
		if v == nil {
			slot[0] = 1
			return append(buf, slot...), nil
		}
		data = slot[1:]
	} else if v == nil {
		return nil, fmt.Errorf("key part %s is not nullable", part.Column)
	}

	switch part.Type {
	case FieldString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("key part %s expects string, got %T", part.Column, v)
		}
		if len(s)+lengthPrefix > len(data) {
			return nil, fmt.Errorf("value for key part %s exceeds store length", part.Column)
		}
		binary.LittleEndian.PutUint16(data, uint16(len(s)))
		copy(data[lengthPrefix:], s)
	case FieldBinary, FieldGeometry:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("key part %s expects []byte, got %T", part.Column, v)
		}
		if len(b) > len(data) {
			return nil, fmt.Errorf("value for key part %s exceeds store length", part.Column)
		}
		copy(data, b)
	case FieldInt, FieldUint, FieldBit:
		u, err := toUint64(v)
		if err != nil {
			return nil, fmt.Errorf("key part %s: %w", part.Column, err)
		}
		if part.Type == FieldBit {
			var full [8]byte
			binary.BigEndian.PutUint64(full[:], u)
			if len(data) > 8 {
				return nil, fmt.Errorf("bit key part %s wider than 8 bytes", part.Column)
			}
			copy(data, full[8-len(data):])
			break
		}
		switch len(data) {
		case 1:
			data[0] = byte(u)
		case 2:
			binary.LittleEndian.PutUint16(data, uint16(u))
		case 4:
			binary.LittleEndian.PutUint32(data, uint32(u))
		case 8:
			binary.LittleEndian.PutUint64(data, u)
		default:
			return nil, fmt.Errorf("unsupported integer width %d", len(data))
		}
	case FieldFloat:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("key part %s expects float64, got %T", part.Column, v)
		}
		switch len(data) {
		case 4:
			binary.LittleEndian.PutUint32(data, math.Float32bits(float32(f)))
		case 8:
			binary.LittleEndian.PutUint64(data, math.Float64bits(f))
		default:
			return nil, fmt.Errorf("unsupported float width %d", len(data))
		}
	default:
		return nil, fmt.Errorf("unsupported field type %s", part.Type)
	}
	return append(buf, slot...), nil
}

func toUint64(v interface{}) (uint64, error) {
	switch x := v.(type) {
	case int:
		return uint64(x), nil
	case int8:
		return uint64(x), nil
	case int16:
		return uint64(x), nil
	case int32:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	default:
		return 0, fmt.Errorf("expects integer, got %T", v)
	}
}

package protocol

import (
	"fmt"
	"strconv"

	"github.com/kasuganosora/videx/pkg/domain"
)

// MessageOK 表示统计信息可用的响应消息
const MessageOK = "OK"

// Response 响应信封
// Data 只能是扁平的字符串映射
type Response struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

// OK 消息是否恰好为 "OK"
func (r *Response) OK() bool {
	return r != nil && r.Message == MessageOK
}

// Get 读取数据字段
func (r *Response) Get(key string) (string, bool) {
	if r == nil || r.Data == nil {
		return "", false
	}
	v, ok := r.Data[key]
	return v, ok
}

// Float 读取并解析浮点字段
func (r *Response) Float(key string) (float64, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, domain.NewErrProtocol(fmt.Sprintf("missing data key %q", key), "")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, domain.NewErrProtocol(fmt.Sprintf("data key %q is not numeric: %q", key, v), "")
	}
	return f, nil
}

// ResponseParser 响应解析器
type ResponseParser interface {
	Parse(body []byte) (*Response, error)
	Name() string
}

const (
	ParserScan       = "scan"
	ParserStructured = "structured"
)

// NewParser 按名称创建解析器，空名称使用结构化解析器
func NewParser(name string) (ResponseParser, error) {
	switch name {
	case "", ParserStructured:
		return StructuredParser{}, nil
	case ParserScan:
		return ScanParser{}, nil
	default:
		return nil, fmt.Errorf("unknown response parser: %s", name)
	}
}

// truncateBody 错误信息中最多保留的响应体长度
func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

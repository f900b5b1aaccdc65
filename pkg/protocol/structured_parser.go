package protocol

import (
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/kasuganosora/videx/pkg/domain"
)

// StructuredParser 基于 jsonparser 的结构化解析器
// 与 ScanParser 契约相同：data 必须是扁平对象，嵌套值返回协议错误
type StructuredParser struct{}

// Name 解析器名称
func (StructuredParser) Name() string { return ParserStructured }

// Parse 解析响应信封
func (StructuredParser) Parse(body []byte) (*Response, error) {
	code, err := parseCode(body)
	if err != nil {
		return nil, domain.NewErrProtocol(err.Error(), truncateBody(body))
	}

	msg, err := jsonparser.GetString(body, "message")
	if err != nil {
		return nil, domain.NewErrProtocol(fmt.Sprintf("message: %v", err), truncateBody(body))
	}

	raw, typ, _, err := jsonparser.Get(body, "data")
	if err != nil {
		return nil, domain.NewErrProtocol(fmt.Sprintf("data: %v", err), truncateBody(body))
	}
	if typ != jsonparser.Object {
		return nil, domain.NewErrProtocol(fmt.Sprintf("data is %s, expected object", typ), truncateBody(body))
	}

	data := make(map[string]string)
	err = jsonparser.ObjectEach(raw, func(key []byte, value []byte, vt jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		switch vt {
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				return err
			}
			data[k] = s
		case jsonparser.Number, jsonparser.Boolean:
			data[k] = string(value)
		case jsonparser.Null:
			data[k] = ""
		default:
			return fmt.Errorf("nested data is not supported (key %q)", k)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewErrProtocol(err.Error(), truncateBody(body))
	}

	return &Response{Code: code, Message: msg, Data: data}, nil
}

// parseCode code 可以是数字或数字字符串
func parseCode(body []byte) (int, error) {
	raw, typ, _, err := jsonparser.Get(body, "code")
	if err != nil {
		return 0, fmt.Errorf("code: %v", err)
	}
	switch typ {
	case jsonparser.Number, jsonparser.String:
		code, err := strconv.Atoi(string(raw))
		if err != nil {
			return 0, fmt.Errorf("code is not an integer: %q", raw)
		}
		return code, nil
	default:
		return 0, fmt.Errorf("code is %s, expected number", typ)
	}
}

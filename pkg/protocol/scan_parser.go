package protocol

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/kasuganosora/videx/pkg/domain"
)

var (
	codeMarker    = []byte(`"code":`)
	messageMarker = []byte(`"message":`)
	dataMarker    = []byte(`"data":`)
)

// ScanParser 子串扫描解析器
// 定位 "code":、"message":、"data": 三个标记（顺序无关，缺一不可），
// 不是通用 JSON 解析器：data 中不支持嵌套结构
type ScanParser struct{}

// Name 解析器名称
func (ScanParser) Name() string { return ParserScan }

// Parse 解析响应信封
func (ScanParser) Parse(body []byte) (*Response, error) {
	codePos := bytes.Index(body, codeMarker)
	msgPos := bytes.Index(body, messageMarker)
	dataPos := bytes.Index(body, dataMarker)
	if codePos < 0 || msgPos < 0 || dataPos < 0 {
		return nil, domain.NewErrProtocol("missing code, message or data field", truncateBody(body))
	}

	code, err := scanCode(body[codePos+len(codeMarker):])
	if err != nil {
		return nil, domain.NewErrProtocol(err.Error(), truncateBody(body))
	}
	msg, err := scanQuoted(body[msgPos+len(messageMarker):])
	if err != nil {
		return nil, domain.NewErrProtocol(err.Error(), truncateBody(body))
	}
	data, err := scanData(body[dataPos+len(dataMarker):])
	if err != nil {
		return nil, domain.NewErrProtocol(err.Error(), truncateBody(body))
	}

	return &Response{Code: code, Message: msg, Data: data}, nil
}

type scanError string

func (e scanError) Error() string { return string(e) }

// scanCode 取标记后的第一段数字
func scanCode(b []byte) (int, error) {
	start := -1
	end := len(b)
	for i, c := range b {
		isDigit := c >= '0' && c <= '9'
		if start < 0 {
			if isDigit {
				start = i
			}
			continue
		}
		if !isDigit {
			end = i
			break
		}
	}
	if start < 0 {
		return 0, scanError("code has no digits")
	}
	code, err := strconv.Atoi(string(b[start:end]))
	if err != nil {
		return 0, scanError("code out of range")
	}
	return code, nil
}

// scanQuoted 取标记后的第一个带引号字符串
func scanQuoted(b []byte) (string, error) {
	open := bytes.IndexByte(b, '"')
	if open < 0 {
		return "", scanError("message is not a quoted string")
	}
	rest := b[open+1:]
	closing := bytes.IndexByte(rest, '"')
	if closing < 0 {
		return "", scanError("unterminated message string")
	}
	return string(rest[:closing]), nil
}

// scanData 取标记后第一个花括号块，并按顶层逗号拆成键值对
func scanData(b []byte) (map[string]string, error) {
	open := bytes.IndexByte(b, '{')
	if open < 0 {
		return nil, scanError("data is not an object")
	}

	depth := 0
	inQuote := false
	closing := -1
	for i := open; i < len(b) && closing < 0; i++ {
		switch c := b[i]; {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '{':
			depth++
			if depth > 1 {
				return nil, scanError("nested data is not supported")
			}
		case c == '[':
			return nil, scanError("nested data is not supported")
		case c == '}':
			depth--
			if depth == 0 {
				closing = i
			}
		}
	}
	if closing < 0 {
		return nil, scanError("unbalanced data block")
	}

	data := make(map[string]string)
	for _, pair := range splitTopLevel(string(b[open+1:closing]), ',') {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		kv := splitTopLevel(pair, ':')
		if len(kv) < 2 {
			return nil, scanError("malformed data pair: " + pair)
		}
		key := trimToken(kv[0])
		value := trimToken(strings.Join(kv[1:], ":"))
		data[key] = value
	}
	return data, nil
}

// splitTopLevel 按引号外的分隔符拆分
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	inQuote := false
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

func trimToken(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

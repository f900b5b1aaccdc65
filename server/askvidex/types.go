package askvidex

import (
	"bytes"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/kasuganosora/videx/pkg/protocol"
)

// Reply 响应信封
type Reply struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

// ErrorResponse HTTP 层错误
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"`
}

// decodeItem 把请求体还原为请求树
func decodeItem(b []byte) (*protocol.Item, error) {
	itemType, err := jsonparser.GetString(b, "item_type")
	if err != nil {
		return nil, fmt.Errorf("item_type: %w", err)
	}
	item := protocol.NewItem(itemType)

	err = jsonparser.ObjectEach(b, func(key []byte, value []byte, vt jsonparser.ValueType, _ int) error {
		if vt != jsonparser.String {
			return fmt.Errorf("property %q is %s, expected string", key, vt)
		}
		// 值已按请求格式转义，原样保存
		item.Properties[string(key)] = string(value)
		return nil
	}, "properties")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return nil, fmt.Errorf("properties: %w", err)
	}

	raw, typ, _, err := jsonparser.Get(b, "data")
	if err == jsonparser.KeyPathNotFoundError {
		return item, nil
	}
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	if typ != jsonparser.Array {
		return nil, fmt.Errorf("data is %s, expected array", typ)
	}
	if len(bytes.TrimSpace(raw[1:len(raw)-1])) == 0 {
		return item, nil
	}

	var childErr error
	_, err = jsonparser.ArrayEach(raw, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
		if childErr != nil {
			return
		}
		if vt != jsonparser.Object {
			childErr = fmt.Errorf("data element is %s, expected object", vt)
			return
		}
		c, err := decodeItem(value)
		if err != nil {
			childErr = err
			return
		}
		item.AddChild(c)
	})
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	if childErr != nil {
		return nil, childErr
	}
	return item, nil
}

// unescape 还原 EscapeString 转义过的属性值
func unescape(s string) string {
	v, err := jsonparser.ParseString([]byte(s))
	if err != nil {
		return s
	}
	return v
}

// prop 读取并还原属性
func prop(item *protocol.Item, key string) string {
	v, _ := item.Property(key)
	return unescape(v)
}

// child 第一个指定类型的子节点
func child(item *protocol.Item, itemType string) *protocol.Item {
	for _, c := range item.Data {
		if c.ItemType == itemType {
			return c
		}
	}
	return nil
}

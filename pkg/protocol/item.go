package protocol

import (
	"sort"
	"strings"
)

const (
	// RequestItemType 顶层请求节点类型
	RequestItemType = "videx_request"
	// DefaultStorageEngine 默认目标存储引擎
	DefaultStorageEngine = "PG"
	// NullValue 空值的序列化形式
	NullValue = "NULL"
)

// Item 请求树节点
// 每个节点包含类型标签、字符串属性表和有序的子节点列表
type Item struct {
	ItemType   string
	Properties map[string]string
	Data       []*Item
}

// NewItem 创建请求节点
func NewItem(itemType string) *Item {
	return &Item{
		ItemType:   itemType,
		Properties: make(map[string]string),
	}
}

// Create 创建并追加一个子节点
func (it *Item) Create(itemType string) *Item {
	child := NewItem(itemType)
	it.Data = append(it.Data, child)
	return child
}

// AddChild 追加已有节点作为子节点
func (it *Item) AddChild(child *Item) {
	if child == nil {
		return
	}
	it.Data = append(it.Data, child)
}

// AddProperty 添加属性，值会被转义
func (it *Item) AddProperty(key, value string) *Item {
	it.Properties[key] = EscapeString(value)
	return it
}

// AddPropertyNull 添加可能为空的属性，nil 写为 NULL
func (it *Item) AddPropertyNull(key string, value *string) *Item {
	if value == nil {
		it.Properties[key] = NullValue
		return it
	}
	return it.AddProperty(key, *value)
}

// Property 读取属性值
func (it *Item) Property(key string) (string, bool) {
	v, ok := it.Properties[key]
	return v, ok
}

// ToJSON 序列化为紧凑文档
// 属性按键名排序输出，子节点保持声明顺序
func (it *Item) ToJSON() string {
	var sb strings.Builder
	it.writeTo(&sb)
	return sb.String()
}

func (it *Item) writeTo(sb *strings.Builder) {
	sb.WriteString(`{"item_type":"`)
	sb.WriteString(it.ItemType)
	sb.WriteString(`","properties":{`)

	keys := make([]string, 0, len(it.Properties))
	for k := range it.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(k)
		sb.WriteString(`":"`)
		sb.WriteString(it.Properties[k])
		sb.WriteByte('"')
	}

	sb.WriteString(`},"data":[`)
	for i, child := range it.Data {
		if i > 0 {
			sb.WriteByte(',')
		}
		child.writeTo(sb)
	}
	sb.WriteString("]}")
}

// NewRequest 构造顶层请求节点，带五个固定属性
// engine 为空时使用 DefaultStorageEngine
func NewRequest(dbName, schemaName, tableName, function, engine string) *Item {
	if engine == "" {
		engine = DefaultStorageEngine
	}
	req := NewItem(RequestItemType)
	req.AddProperty("dbname", dbName)
	req.AddProperty("schema_name", schemaName)
	req.AddProperty("table_name", tableName)
	req.AddProperty("function", function)
	req.AddProperty("target_storage_engine", engine)
	return req
}

package domain

// Oid 目录对象标识
type Oid uint32

// InvalidOid 无效的对象标识
const InvalidOid Oid = 0

// AttrNumber 列序号（从 1 开始）
type AttrNumber int16

// InvalidAttrNumber 无效的列序号
const InvalidAttrNumber AttrNumber = 0

// TransactionID 事务号
type TransactionID uint32

// MultiXactID 多事务号
type MultiXactID uint32

const (
	// InvalidTransactionID 无效事务号
	InvalidTransactionID TransactionID = 0
	// InvalidMultiXactID 无效多事务号
	InvalidMultiXactID MultiXactID = 0
)

// Horizons 表的冻结水位线
// 无效值表示“不推进”，保留目标表原有的值
type Horizons struct {
	FrozenXID TransactionID `json:"relfrozenxid" yaml:"relfrozenxid"`
	MinMulti  MultiXactID   `json:"relminmxid" yaml:"relminmxid"`
}

// Apply 把 h 合并到 cur 上，无效字段不覆盖
func (h Horizons) Apply(cur Horizons) Horizons {
	out := cur
	if h.FrozenXID != InvalidTransactionID {
		out.FrozenXID = h.FrozenXID
	}
	if h.MinMulti != InvalidMultiXactID {
		out.MinMulti = h.MinMulti
	}
	return out
}

// RelationStats 表级统计信息
type RelationStats struct {
	Pages      uint32  `json:"relpages" yaml:"relpages"`
	Tuples     float64 `json:"reltuples" yaml:"reltuples"` // < 0 表示从未 analyze
	AllVisible uint32  `json:"relallvisible" yaml:"relallvisible"`
	HasIndex   bool    `json:"relhasindex" yaml:"relhasindex"`
}

// Namespace 模式
type Namespace struct {
	Oid  Oid    `json:"oid" yaml:"oid"`
	Name string `json:"nspname" yaml:"nspname"`
}

// Attribute 列定义
type Attribute struct {
	Number   AttrNumber `json:"attnum" yaml:"attnum"`
	Name     string     `json:"attname" yaml:"attname"`
	TypeName string     `json:"atttype" yaml:"atttype"`
	AvgWidth int32      `json:"attwidth" yaml:"attwidth"` // 类型平均宽度，用于无统计时的估算
}

// RelationInfo 表的目录信息
type RelationInfo struct {
	Oid          Oid           `json:"oid" yaml:"oid"`
	Name         string        `json:"relname" yaml:"relname"`
	Namespace    Oid           `json:"relnamespace" yaml:"relnamespace"`
	AccessMethod string        `json:"relam" yaml:"relam"`
	HasSubclass  bool          `json:"relhassubclass" yaml:"relhassubclass"`
	FillFactor   int           `json:"fillfactor" yaml:"fillfactor"` // 0 表示使用默认值
	Attributes   []Attribute   `json:"attributes" yaml:"attributes"`
	Stats        RelationStats `json:"stats" yaml:"stats"`
	Horizons     Horizons      `json:"horizons" yaml:"horizons"`
}

// AttributeByName 按列名查找列
func (r *RelationInfo) AttributeByName(name string) (Attribute, bool) {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// AttributeByNumber 按列序号查找列
func (r *RelationInfo) AttributeByNumber(num AttrNumber) (Attribute, bool) {
	for _, a := range r.Attributes {
		if a.Number == num {
			return a, true
		}
	}
	return Attribute{}, false
}

// Clone 深拷贝
func (r *RelationInfo) Clone() *RelationInfo {
	if r == nil {
		return nil
	}
	out := *r
	out.Attributes = append([]Attribute(nil), r.Attributes...)
	return &out
}

// NumStatSlots 每列统计的槽位数
const NumStatSlots = 5

// StatSlot 直方图 / MCV 等槽位数据
type StatSlot struct {
	Kind      int16     `json:"stakind" yaml:"stakind"`
	Operator  Oid       `json:"staop" yaml:"staop"`
	Collation Oid       `json:"stacoll" yaml:"stacoll"`
	Numbers   []float32 `json:"stanumbers,omitempty" yaml:"stanumbers,omitempty"`
	Values    []string  `json:"stavalues,omitempty" yaml:"stavalues,omitempty"`
}

// StatKey 列统计的唯一键
type StatKey struct {
	Relation Oid
	AttNum   AttrNumber
	Inherit  bool
}

// ColumnStats 列级统计信息
type ColumnStats struct {
	Relation Oid        `json:"starelid" yaml:"starelid"`
	AttNum   AttrNumber `json:"staattnum" yaml:"staattnum"`
	Inherit  bool       `json:"stainherit" yaml:"stainherit"`
	NullFrac float32    `json:"stanullfrac" yaml:"stanullfrac"`
	Width    int32      `json:"stawidth" yaml:"stawidth"`
	Distinct float32    `json:"stadistinct" yaml:"stadistinct"`
	Slots    []StatSlot `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// Key 返回唯一键
func (c ColumnStats) Key() StatKey {
	return StatKey{Relation: c.Relation, AttNum: c.AttNum, Inherit: c.Inherit}
}

// Clone 深拷贝
func (c ColumnStats) Clone() ColumnStats {
	out := c
	if c.Slots != nil {
		out.Slots = make([]StatSlot, len(c.Slots))
		for i, s := range c.Slots {
			s.Numbers = append([]float32(nil), s.Numbers...)
			s.Values = append([]string(nil), s.Values...)
			out.Slots[i] = s
		}
	}
	return out
}

// ExtendedStats 扩展（多列）统计对象
type ExtendedStats struct {
	Oid        Oid          `json:"oid" yaml:"oid"`
	Relation   Oid          `json:"stxrelid" yaml:"stxrelid"`
	Name       string       `json:"stxname" yaml:"stxname"`
	Namespace  Oid          `json:"stxnamespace" yaml:"stxnamespace"`
	Owner      Oid          `json:"stxowner" yaml:"stxowner"`
	StatTarget int32        `json:"stxstattarget" yaml:"stxstattarget"`
	Keys       []AttrNumber `json:"stxkeys" yaml:"stxkeys"`
	Kinds      []string     `json:"stxkind" yaml:"stxkind"`
}

// Clone 深拷贝
func (e ExtendedStats) Clone() ExtendedStats {
	out := e
	out.Keys = append([]AttrNumber(nil), e.Keys...)
	out.Kinds = append([]string(nil), e.Kinds...)
	return out
}

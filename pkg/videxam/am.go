package videxam

import (
	"context"
	"sync/atomic"

	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/logging"
	"github.com/kasuganosora/videx/pkg/relcache"
)

// Name 访问方法名
const Name = "videx"

// RelationSource 表元数据来源，通常是 relcache.Cache
type RelationSource interface {
	Get(ctx context.Context, rel domain.Oid) (*relcache.Entry, error)
}

// EstimatorConfig 估算参数
type EstimatorConfig struct {
	FillFactor int `json:"fill_factor" yaml:"fill_factor"`
	BlockSize  int `json:"block_size" yaml:"block_size"`
}

// DefaultEstimatorConfig 默认估算参数
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		FillFactor: DefaultFillFactor,
		BlockSize:  DefaultBlockSize,
	}
}

// AccessMethod 虚拟表存储后端
// 表只有统计信息，没有数据：扫描立即结束，写操作全部拒绝
type AccessMethod struct {
	source RelationSource
	cfg    EstimatorConfig
	caps   Capabilities
	logger logging.Logger

	activeScans atomic.Int64
}

// Option AccessMethod 选项
type Option func(*AccessMethod)

// WithLogger 设置日志
func WithLogger(l logging.Logger) Option {
	return func(am *AccessMethod) {
		am.logger = l
	}
}

// WithEstimatorConfig 设置估算参数
func WithEstimatorConfig(cfg EstimatorConfig) Option {
	return func(am *AccessMethod) {
		am.cfg = cfg
	}
}

// WithCapabilities 限制提供的操作
// 只能关闭只读操作，写操作始终不提供
func WithCapabilities(caps Capabilities) Option {
	return func(am *AccessMethod) {
		am.caps = caps & VirtualCapabilities()
	}
}

// New 创建访问方法
func New(source RelationSource, opts ...Option) *AccessMethod {
	am := &AccessMethod{
		source: source,
		cfg:    DefaultEstimatorConfig(),
		caps:   VirtualCapabilities(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(am)
	}
	if am.cfg.BlockSize <= 0 {
		am.cfg.BlockSize = DefaultBlockSize
	}
	if am.cfg.FillFactor <= 0 {
		am.cfg.FillFactor = DefaultFillFactor
	}
	return am
}

// Name 访问方法名
func (am *AccessMethod) Name() string {
	return Name
}

// Capabilities 提供的操作
func (am *AccessMethod) Capabilities() Capabilities {
	return am.caps
}

// ActiveScans 尚未结束的扫描数
func (am *AccessMethod) ActiveScans() int64 {
	return am.activeScans.Load()
}

// SlotKind 元组槽类型，虚拟表只使用虚拟槽
func (am *AccessMethod) SlotKind() string {
	return "virtual"
}

// BeginScan 开始扫描
func (am *AccessMethod) BeginScan(rel domain.Oid, snapshot Snapshot, keys []ScanKey, flags ScanFlags) *ScanDesc {
	am.activeScans.Add(1)
	return &ScanDesc{
		Relation: rel,
		Snapshot: snapshot,
		Keys:     keys,
		Flags:    flags,
		state:    ScanScanning,
		release: func() {
			am.activeScans.Add(-1)
		},
	}
}

// ScanAnalyzeNextBlock analyze 采样，没有块
func (am *AccessMethod) ScanAnalyzeNextBlock(scan *ScanDesc) bool {
	return false
}

// ScanAnalyzeNextTuple analyze 采样，没有行
func (am *AccessMethod) ScanAnalyzeNextTuple(scan *ScanDesc, oldestXmin domain.TransactionID, slot *Slot) (ok bool, liveRows, deadRows float64) {
	return false, 0, 0
}

// IndexFetchBegin 开始索引回表
func (am *AccessMethod) IndexFetchBegin(rel domain.Oid) *IndexFetch {
	return &IndexFetch{Relation: rel}
}

// IndexBuildRangeScan 建索引时扫描表，没有行可索引
func (am *AccessMethod) IndexBuildRangeScan(table, index domain.Oid, startBlock, numBlocks uint32) float64 {
	return 0
}

// IndexValidateScan 并发建索引的校验扫描
func (am *AccessMethod) IndexValidateScan(table, index domain.Oid, snapshot Snapshot) error {
	return am.check(OpIndexValidate)
}

// RelationSize 物理大小，虚拟表总是 0
func (am *AccessMethod) RelationSize(rel domain.Oid) uint64 {
	return 0
}

// NeedsToastTable 是否需要 toast 表
func (am *AccessMethod) NeedsToastTable(rel domain.Oid) bool {
	return false
}

// ToastAccessMethod toast 表的访问方法
func (am *AccessMethod) ToastAccessMethod(rel domain.Oid) domain.Oid {
	return domain.InvalidOid
}

// SetNewFileLocator 创建新的存储文件，没有存储所以不产生冻结水位线
func (am *AccessMethod) SetNewFileLocator(rel domain.Oid) domain.Horizons {
	return domain.Horizons{}
}

// TupleInsert 插入
func (am *AccessMethod) TupleInsert(rel domain.Oid, slot *Slot) error {
	return am.check(OpTupleInsert)
}

// MultiInsert 批量插入
func (am *AccessMethod) MultiInsert(rel domain.Oid, slots []*Slot) error {
	return am.check(OpMultiInsert)
}

// TupleUpdate 更新
func (am *AccessMethod) TupleUpdate(rel domain.Oid, tid TID, slot *Slot) error {
	return am.check(OpTupleUpdate)
}

// TupleDelete 删除
func (am *AccessMethod) TupleDelete(rel domain.Oid, tid TID) error {
	return am.check(OpTupleDelete)
}

// TupleLock 行锁
func (am *AccessMethod) TupleLock(rel domain.Oid, tid TID) error {
	return am.check(OpTupleLock)
}

// Truncate 清空表
func (am *AccessMethod) Truncate(rel domain.Oid) error {
	return am.check(OpTruncate)
}

// Vacuum 清理
func (am *AccessMethod) Vacuum(rel domain.Oid) error {
	return am.check(OpVacuum)
}

// check 未声明的操作在边界处拒绝
// 表永远为空，已声明的写操作没有可修改的数据
func (am *AccessMethod) check(op Operation) error {
	if am.caps.Has(op) {
		return nil
	}
	am.logger.Debug("[VIDEXAM] %s rejected", op)
	return domain.NewErrUnsupportedOperation(Name, op.String())
}

// EstimateSize 估算表的页数、行数和全可见比例
// attrWidths 为各列已知宽度（<=0 表示未知），会被回填为实际使用的宽度
func (am *AccessMethod) EstimateSize(ctx context.Context, rel domain.Oid, attrWidths []int32) (Estimate, error) {
	if err := am.check(OpEstimateSize); err != nil {
		return Estimate{}, err
	}
	entry, err := am.source.Get(ctx, rel)
	if err != nil {
		return Estimate{}, err
	}
	info := entry.Relation

	fillFactor := info.FillFactor
	if fillFactor <= 0 {
		fillFactor = am.cfg.FillFactor
	}
	in := EstimateInput{
		Stats:       info.Stats,
		HasSubclass: info.HasSubclass,
		FillFactor:  fillFactor,
	}
	// 只有需要按列宽推算密度时才计算宽度
	if in.Stats.Tuples < 0 || in.Stats.Pages == 0 {
		in.TupleWidth = DataWidth(info, entry.ColumnStats, attrWidths)
	}

	est := EstimateSize(in, am.cfg.BlockSize)
	am.logger.Debug("[VIDEXAM] estimate %s: pages=%d tuples=%.0f allvisfrac=%.4f",
		info.Name, est.Pages, est.Tuples, est.AllVisibleFrac)
	return est, nil
}

package hook

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/keyrange"
	"github.com/kasuganosora/videx/pkg/logging"
	"github.com/kasuganosora/videx/pkg/protocol"
	"github.com/kasuganosora/videx/pkg/remote"
	"github.com/kasuganosora/videx/pkg/videxam"
)

const (
	// RelationStatsFunction 列统计请求的函数名
	RelationStatsFunction = "videx_get_relation_stats"
	// ColumnNameItem 列名子节点
	ColumnNameItem = "colname"
	// RecordsValueKey 范围行数响应中的数据键
	RecordsValueKey = "value"
)

// 列统计响应中的数据键
const (
	KeyInherit  = "stainherit"
	KeyNullFrac = "stanullfrac"
	KeyWidth    = "stawidth"
	KeyDistinct = "stadistinct"
)

// RangeKind 查询中被引用对象的类型
type RangeKind int

const (
	RangeRelation RangeKind = iota
	RangeSubquery
	RangeCTE
	RangeFunction
)

// Hooks 规划器统计钩子，统计数据来自远端服务
// 可恢复的错误（传输、协议）只记录 WARN，调用方回退到内置估算
type Hooks struct {
	asker  remote.Asker
	reader domain.Reader
	engine string
	logger logging.Logger
	am     videxam.TableAM
}

// Option Hooks 选项
type Option func(*Hooks)

// WithLogger 设置日志
func WithLogger(l logging.Logger) Option {
	return func(h *Hooks) {
		h.logger = l
	}
}

// WithEngine 设置请求中的存储引擎名
func WithEngine(engine string) Option {
	return func(h *Hooks) {
		h.engine = engine
	}
}

// WithTableAM 设置估算表大小所用的存储后端
func WithTableAM(am videxam.TableAM) Option {
	return func(h *Hooks) {
		h.am = am
	}
}

// New 创建钩子
func New(asker remote.Asker, reader domain.Reader, opts ...Option) *Hooks {
	h := &Hooks{
		asker:  asker,
		reader: reader,
		engine: protocol.DefaultStorageEngine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// target 请求所需的库、模式、表名
type target struct {
	rel    *domain.RelationInfo
	schema string
}

func (h *Hooks) resolve(ctx context.Context, rel domain.Oid) (*target, error) {
	info, err := h.reader.GetRelation(ctx, rel)
	if err != nil {
		return nil, err
	}
	nsp, err := h.reader.GetNamespace(ctx, info.Namespace)
	if err != nil {
		return nil, err
	}
	return &target{rel: info, schema: nsp.Name}, nil
}

// RelationStats 列统计钩子
// 返回值 handled 为 false 表示没有得到统计，规划器应使用内置逻辑
// 子查询和 CTE 不发请求，直接视为已处理且无统计
func (h *Hooks) RelationStats(ctx context.Context, kind RangeKind, rel domain.Oid, attnum domain.AttrNumber) (*domain.ColumnStats, bool, error) {
	if kind != RangeRelation {
		return nil, true, nil
	}

	t, err := h.resolve(ctx, rel)
	if err != nil {
		return nil, false, err
	}
	attr, ok := t.rel.AttributeByNumber(attnum)
	if !ok {
		return nil, false, domain.NewErrNotFound("attribute", fmt.Sprintf("%s.%d", t.rel.Name, attnum))
	}

	req := protocol.NewRequest(h.reader.DatabaseName(), t.schema, t.rel.Name, RelationStatsFunction, h.engine)
	req.Create(ColumnNameItem).AddProperty("name", attr.Name)

	resp, err := h.asker.Ask(ctx, req)
	if err == nil {
		var stats *domain.ColumnStats
		stats, err = BuildColumnStats(resp, rel, attnum)
		if err == nil {
			return stats, true, nil
		}
	}
	if domain.IsRecoverable(err) {
		h.logger.Warn("[HOOK] relation stats for %s.%s.%s unavailable: %v", t.schema, t.rel.Name, attr.Name, err)
		return nil, false, nil
	}
	return nil, false, err
}

// IndexStats 索引列统计钩子，不提供数据但声明已处理
func (h *Hooks) IndexStats(ctx context.Context, index domain.Oid, attnum domain.AttrNumber) (*domain.ColumnStats, bool, error) {
	return nil, true, nil
}

// RecordsInRange 估算索引范围 [min, max] 内的行数
// 返回值 ok 为 false 表示没有得到估算
func (h *Hooks) RecordsInRange(ctx context.Context, rel domain.Oid, idx *keyrange.Index, min, max *keyrange.Bound) (float64, bool, error) {
	t, err := h.resolve(ctx, rel)
	if err != nil {
		return 0, false, err
	}

	req, summary, err := keyrange.NewRecordsInRangeRequest(h.reader.DatabaseName(), t.schema, t.rel.Name, h.engine, idx, min, max)
	if err != nil {
		return 0, false, err
	}
	h.logger.Debug("[HOOK] %s", summary)

	resp, err := h.asker.Ask(ctx, req)
	if err == nil {
		var rows float64
		rows, err = resp.Float(RecordsValueKey)
		if err == nil {
			return rows, true, nil
		}
	}
	if domain.IsRecoverable(err) {
		h.logger.Warn("[HOOK] records in range for %s.%s unavailable: %v", t.schema, t.rel.Name, err)
		return 0, false, nil
	}
	return 0, false, err
}

// RelationSize 表大小钩子，由存储后端按统计信息估算
// 没有后端或后端不提供 estimate_size 时返回 handled=false，规划器使用内置估算
func (h *Hooks) RelationSize(ctx context.Context, rel domain.Oid, attrWidths []int32) (*videxam.Estimate, bool, error) {
	if !videxam.Supports(h.am, videxam.OpEstimateSize) {
		return nil, false, nil
	}
	est, err := h.am.EstimateSize(ctx, rel, attrWidths)
	if err != nil {
		return nil, false, err
	}
	return &est, true, nil
}

// BuildColumnStats 由响应数据构造列统计
// stainherit 只有 "true" 视为真；其余三项缺失或无法解析时返回 ErrProtocol
func BuildColumnStats(resp *protocol.Response, rel domain.Oid, attnum domain.AttrNumber) (*domain.ColumnStats, error) {
	inherit, _ := resp.Get(KeyInherit)

	nullFrac, err := resp.Float(KeyNullFrac)
	if err != nil {
		return nil, err
	}
	distinct, err := resp.Float(KeyDistinct)
	if err != nil {
		return nil, err
	}
	widthText, ok := resp.Get(KeyWidth)
	if !ok {
		return nil, domain.NewErrProtocol(fmt.Sprintf("missing data key %q", KeyWidth), "")
	}
	width, err := strconv.ParseInt(widthText, 10, 32)
	if err != nil {
		return nil, domain.NewErrProtocol(fmt.Sprintf("data key %s is not an integer: %q", KeyWidth, widthText), "")
	}

	return &domain.ColumnStats{
		Relation: rel,
		AttNum:   attnum,
		Inherit:  inherit == "true",
		NullFrac: float32(nullFrac),
		Width:    int32(width),
		Distinct: float32(distinct),
	}, nil
}

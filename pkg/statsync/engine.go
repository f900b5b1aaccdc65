package statsync

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/logging"
)

// ExtendedStatsPrefix 克隆扩展统计时加在名称前的前缀
const ExtendedStatsPrefix = "videx_"

// maxRenameAttempts 名称冲突时最多尝试的后缀数量
const maxRenameAttempts = 1000

// Invalidator 目标表元数据缓存失效
type Invalidator interface {
	Invalidate(rel domain.Oid)
}

// Result 一次同步的结果
type Result struct {
	Source          domain.Oid
	Target          domain.Oid
	ColumnsUpdated  int
	ColumnsInserted int
	ExtDeleted      int
	ExtInserted     int
	ExtNames        []string
}

// Engine 统计信息同步引擎
// 把源表的表级、列级和扩展统计复制到目标表
type Engine struct {
	catalog     domain.Catalog
	invalidator Invalidator
	logger      logging.Logger
}

// Option 引擎选项
type Option func(*Engine)

// WithInvalidator 设置提交后需要失效的缓存
func WithInvalidator(inv Invalidator) Option {
	return func(e *Engine) { e.invalidator = inv }
}

// WithLogger 设置日志
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine 创建同步引擎
func NewEngine(cat domain.Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: cat, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze 在一个事务中依次同步表级、列级和扩展统计，提交后使目标表缓存失效
// 任何一步失败都会回滚整个事务
func (e *Engine) Analyze(ctx context.Context, src, dst domain.Oid) (*Result, error) {
	e.logger.Info("copying statistics from %d to %d", src, dst)

	res := &Result{Source: src, Target: dst}
	err := domain.RunInTxn(ctx, e.catalog, func(txn domain.Txn) error {
		if err := SyncRelationStats(ctx, txn, src, dst); err != nil {
			return err
		}
		updated, inserted, err := SyncColumnStats(ctx, txn, src, dst)
		if err != nil {
			return err
		}
		res.ColumnsUpdated, res.ColumnsInserted = updated, inserted

		deleted, names, err := SyncExtendedStats(ctx, txn, src, dst)
		if err != nil {
			return err
		}
		res.ExtDeleted, res.ExtInserted, res.ExtNames = deleted, len(names), names
		return nil
	})
	if err != nil {
		e.logger.Warn("statistics copy from %d to %d aborted: %v", src, dst, err)
		return nil, err
	}

	if e.invalidator != nil {
		e.invalidator.Invalidate(dst)
	}
	e.logger.Debug("statistics copied from %d to %d: %d columns updated, %d inserted, %d extended objects replaced by %d",
		src, dst, res.ColumnsUpdated, res.ColumnsInserted, res.ExtDeleted, res.ExtInserted)
	return res, nil
}

// SyncRelationStats 复制表级统计
// 水位线使用无效值写入，目标表原有的水位线保持不变
func SyncRelationStats(ctx context.Context, txn domain.Txn, src, dst domain.Oid) error {
	srcRel, err := txn.GetRelation(ctx, src)
	if err != nil {
		return err
	}
	if _, err := txn.GetRelation(ctx, dst); err != nil {
		return err
	}
	invalid := domain.Horizons{
		FrozenXID: domain.InvalidTransactionID,
		MinMulti:  domain.InvalidMultiXactID,
	}
	if err := txn.UpdateRelationStats(ctx, dst, srcRel.Stats, invalid); err != nil {
		return fmt.Errorf("update relation statistics of %d: %w", dst, err)
	}
	return nil
}

// SyncColumnStats 按列名把源表的列统计复制到目标表
// 先完成全部列名解析，任何一列在目标表中缺失都返回 ErrSchemaMismatch 且不写入
func SyncColumnStats(ctx context.Context, txn domain.Txn, src, dst domain.Oid) (updated, inserted int, err error) {
	srcRel, err := txn.GetRelation(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	dstRel, err := txn.GetRelation(ctx, dst)
	if err != nil {
		return 0, 0, err
	}
	rows, err := txn.GetColumnStats(ctx, src)
	if err != nil {
		return 0, 0, err
	}

	mapped := make([]domain.ColumnStats, 0, len(rows))
	for _, row := range rows {
		attr, ok := srcRel.AttributeByNumber(row.AttNum)
		if !ok {
			return 0, 0, fmt.Errorf("column statistic %v references unknown attribute of %s", row.Key(), srcRel.Name)
		}
		target, ok := dstRel.AttributeByName(attr.Name)
		if !ok {
			return 0, 0, domain.NewErrSchemaMismatch(attr.Name, dstRel.Name)
		}
		out := row.Clone()
		out.Relation = dst
		out.AttNum = target.Number
		mapped = append(mapped, out)
	}

	for _, row := range mapped {
		_, err := txn.GetColumnStat(ctx, row.Key())
		switch {
		case err == nil:
			if err := txn.UpdateColumnStats(ctx, row); err != nil {
				return 0, 0, err
			}
			updated++
		case domain.IsNotFound(err):
			if err := txn.InsertColumnStats(ctx, row); err != nil {
				return 0, 0, err
			}
			inserted++
		default:
			return 0, 0, err
		}
	}
	return updated, inserted, nil
}

// SyncExtendedStats 删除目标表已有的扩展统计，再按源表克隆
// 克隆使用新的 oid、目标表的模式和 oid，名称加 videx_ 前缀，冲突时追加 _2、_3 ...
// 统计键按列名映射到目标表的列序号
func SyncExtendedStats(ctx context.Context, txn domain.Txn, src, dst domain.Oid) (deleted int, names []string, err error) {
	srcRel, err := txn.GetRelation(ctx, src)
	if err != nil {
		return 0, nil, err
	}
	dstRel, err := txn.GetRelation(ctx, dst)
	if err != nil {
		return 0, nil, err
	}
	objs, err := txn.GetExtendedStats(ctx, src)
	if err != nil {
		return 0, nil, err
	}

	clones := make([]domain.ExtendedStats, 0, len(objs))
	for _, obj := range objs {
		keys, err := remapKeys(srcRel, dstRel, obj.Keys)
		if err != nil {
			return 0, nil, err
		}
		clone := obj.Clone()
		clone.Keys = keys
		clone.Relation = dst
		clone.Namespace = dstRel.Namespace
		clones = append(clones, clone)
	}

	deleted, err = txn.DeleteExtendedStats(ctx, dst)
	if err != nil {
		return 0, nil, err
	}

	for _, clone := range clones {
		oid, err := txn.NewOid(ctx)
		if err != nil {
			return 0, nil, err
		}
		name, err := uniqueName(ctx, txn, clone.Namespace, ExtendedStatsPrefix+clone.Name)
		if err != nil {
			return 0, nil, err
		}
		clone.Oid = oid
		clone.Name = name
		if err := txn.InsertExtendedStats(ctx, clone); err != nil {
			return 0, nil, err
		}
		names = append(names, name)
	}
	return deleted, names, nil
}

func remapKeys(srcRel, dstRel *domain.RelationInfo, keys []domain.AttrNumber) ([]domain.AttrNumber, error) {
	if keys == nil {
		return nil, nil
	}
	out := make([]domain.AttrNumber, len(keys))
	for i, k := range keys {
		attr, ok := srcRel.AttributeByNumber(k)
		if !ok {
			return nil, fmt.Errorf("extended statistic key %d references unknown attribute of %s", k, srcRel.Name)
		}
		target, ok := dstRel.AttributeByName(attr.Name)
		if !ok {
			return nil, domain.NewErrSchemaMismatch(attr.Name, dstRel.Name)
		}
		out[i] = target.Number
	}
	return out, nil
}

// uniqueName 返回模式内未被占用的名称：base、base_2、base_3 ...
func uniqueName(ctx context.Context, txn domain.Txn, nsp domain.Oid, base string) (string, error) {
	for i := 1; i <= maxRenameAttempts; i++ {
		name := base
		if i > 1 {
			name = base + "_" + strconv.Itoa(i)
		}
		exists, err := txn.ExtendedStatsNameExists(ctx, nsp, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free name for extended statistic %s after %d attempts", base, maxRenameAttempts)
}

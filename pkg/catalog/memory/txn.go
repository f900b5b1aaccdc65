package memory

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/kasuganosora/videx/pkg/domain"
)

// Txn 内存目录的写事务
type Txn struct {
	txn  *memdb.Txn
	cat  *Catalog
	done bool
}

func (t *Txn) DatabaseName() string {
	return t.cat.dbName
}

func (t *Txn) r() *reader {
	return &reader{txn: t.txn}
}

func (t *Txn) check() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	return nil
}

func (t *Txn) GetRelation(ctx context.Context, rel domain.Oid) (*domain.RelationInfo, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.r().GetRelation(ctx, rel)
}

func (t *Txn) LookupRelation(ctx context.Context, schema, name string) (*domain.RelationInfo, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.r().LookupRelation(ctx, schema, name)
}

func (t *Txn) GetNamespace(ctx context.Context, nsp domain.Oid) (*domain.Namespace, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.r().GetNamespace(ctx, nsp)
}

func (t *Txn) GetColumnStats(ctx context.Context, rel domain.Oid) ([]domain.ColumnStats, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.r().GetColumnStats(ctx, rel)
}

func (t *Txn) GetColumnStat(ctx context.Context, key domain.StatKey) (*domain.ColumnStats, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.r().GetColumnStat(ctx, key)
}

func (t *Txn) GetExtendedStats(ctx context.Context, rel domain.Oid) ([]domain.ExtendedStats, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.r().GetExtendedStats(ctx, rel)
}

func (t *Txn) ExtendedStatsNameExists(ctx context.Context, nsp domain.Oid, name string) (bool, error) {
	if err := t.check(); err != nil {
		return false, err
	}
	return t.r().ExtendedStatsNameExists(ctx, nsp, name)
}

// CreateNamespace 创建模式
func (t *Txn) CreateNamespace(ctx context.Context, nsp domain.Namespace) error {
	if err := t.check(); err != nil {
		return err
	}
	if nsp.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if existing, _ := t.txn.First(tableNamespace, indexName, nsp.Name); existing != nil {
		return fmt.Errorf("schema %s already exists", nsp.Name)
	}
	if nsp.Oid == domain.InvalidOid {
		nsp.Oid = t.cat.allocOid()
	} else {
		t.cat.reserveOid(nsp.Oid)
	}
	if err := t.txn.Insert(tableNamespace, &nsp); err != nil {
		return fmt.Errorf("insert schema %s: %w", nsp.Name, err)
	}
	return nil
}

// CreateRelation 创建表，Oid 为空时自动分配并回写
func (t *Txn) CreateRelation(ctx context.Context, rel *domain.RelationInfo) error {
	if err := t.check(); err != nil {
		return err
	}
	if rel.Name == "" {
		return fmt.Errorf("relation name is required")
	}
	if raw, _ := t.txn.First(tableNamespace, indexID, rel.Namespace); raw == nil {
		return domain.NewErrNotFound("schema", rel.Namespace)
	}
	if existing, _ := t.txn.First(tableRelation, indexName, rel.Namespace, rel.Name); existing != nil {
		return fmt.Errorf("relation %s already exists", rel.Name)
	}
	if rel.Oid == domain.InvalidOid {
		rel.Oid = t.cat.allocOid()
	} else {
		t.cat.reserveOid(rel.Oid)
	}
	if err := t.txn.Insert(tableRelation, rel.Clone()); err != nil {
		return fmt.Errorf("insert relation %s: %w", rel.Name, err)
	}
	return nil
}

// UpdateRelationStats 更新表级统计
func (t *Txn) UpdateRelationStats(ctx context.Context, rel domain.Oid, stats domain.RelationStats, horizons domain.Horizons) error {
	if err := t.check(); err != nil {
		return err
	}
	cur, err := t.r().GetRelation(ctx, rel)
	if err != nil {
		return err
	}
	cur.Stats = stats
	cur.Horizons = horizons.Apply(cur.Horizons)
	if err := t.txn.Insert(tableRelation, cur); err != nil {
		return fmt.Errorf("update relation %d: %w", rel, err)
	}
	return nil
}

// InsertColumnStats 插入列统计，唯一键冲突时报错
func (t *Txn) InsertColumnStats(ctx context.Context, stats domain.ColumnStats) error {
	if err := t.check(); err != nil {
		return err
	}
	existing, err := t.r().first(tableColumnStats, indexID, stats.Relation, stats.AttNum, stats.Inherit)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("column statistic %v already exists", stats.Key())
	}
	row := stats.Clone()
	if err := t.txn.Insert(tableColumnStats, &row); err != nil {
		return fmt.Errorf("insert column statistic: %w", err)
	}
	return nil
}

// UpdateColumnStats 更新列统计，不存在时返回 ErrNotFound
func (t *Txn) UpdateColumnStats(ctx context.Context, stats domain.ColumnStats) error {
	if err := t.check(); err != nil {
		return err
	}
	existing, err := t.r().first(tableColumnStats, indexID, stats.Relation, stats.AttNum, stats.Inherit)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.NewErrNotFound("column statistic", stats.Key())
	}
	row := stats.Clone()
	if err := t.txn.Insert(tableColumnStats, &row); err != nil {
		return fmt.Errorf("update column statistic: %w", err)
	}
	return nil
}

// DeleteExtendedStats 删除表的全部扩展统计
func (t *Txn) DeleteExtendedStats(ctx context.Context, rel domain.Oid) (int, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	n, err := t.txn.DeleteAll(tableExtStats, indexRelation, rel)
	if err != nil {
		return 0, fmt.Errorf("delete extended statistics of %d: %w", rel, err)
	}
	return n, nil
}

// InsertExtendedStats 插入扩展统计，名称在模式内唯一
func (t *Txn) InsertExtendedStats(ctx context.Context, stats domain.ExtendedStats) error {
	if err := t.check(); err != nil {
		return err
	}
	if stats.Oid == domain.InvalidOid {
		return fmt.Errorf("extended statistic %s has no oid", stats.Name)
	}
	exists, err := t.r().ExtendedStatsNameExists(ctx, stats.Namespace, stats.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("extended statistic %s already exists in schema %d", stats.Name, stats.Namespace)
	}
	t.cat.reserveOid(stats.Oid)
	row := stats.Clone()
	if err := t.txn.Insert(tableExtStats, &row); err != nil {
		return fmt.Errorf("insert extended statistic %s: %w", stats.Name, err)
	}
	return nil
}

// NewOid 分配对象标识
func (t *Txn) NewOid(ctx context.Context) (domain.Oid, error) {
	if err := t.check(); err != nil {
		return domain.InvalidOid, err
	}
	return t.cat.allocOid(), nil
}

// Commit 提交
func (t *Txn) Commit(ctx context.Context) error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	t.txn.Commit()
	return nil
}

// Rollback 回滚，已结束的事务上调用无副作用
func (t *Txn) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Abort()
	return nil
}

var _ domain.Txn = (*Txn)(nil)

package sqlcat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kasuganosora/videx/pkg/domain"
)

// firstOid 新分配对象标识的起点
const firstOid domain.Oid = 16384

// Txn SQL 目录事务
type Txn struct {
	reader
	tx     *sql.Tx
	dbName string
	done   bool
}

func (t *Txn) DatabaseName() string {
	return t.dbName
}

func (t *Txn) check() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	return nil
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (t *Txn) exec(ctx context.Context, b sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build statement: %w", err)
	}
	return t.tx.ExecContext(ctx, query, args...)
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// nextOid 读取计数器并加锁，不存在时返回 firstOid
func (t *Txn) nextOid(ctx context.Context) (domain.Oid, bool, error) {
	b := t.dialect.builder().
		Select("meta_value").
		From(tableMeta).
		Where(sq.Eq{"meta_name": metaNextOid})
	if t.dialect.LockSuffix != "" {
		b = b.Suffix(t.dialect.LockSuffix)
	}
	row, err := t.queryRow(ctx, b)
	if err != nil {
		return domain.InvalidOid, false, err
	}
	var v int64
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return firstOid, false, nil
		}
		return domain.InvalidOid, false, fmt.Errorf("failed to read oid counter: %w", err)
	}
	return domain.Oid(v), true, nil
}

func (t *Txn) storeNextOid(ctx context.Context, next domain.Oid, exists bool) error {
	var err error
	if exists {
		_, err = t.exec(ctx, t.dialect.builder().
			Update(tableMeta).
			Set("meta_value", int64(next)).
			Where(sq.Eq{"meta_name": metaNextOid}))
	} else {
		_, err = t.exec(ctx, t.dialect.builder().
			Insert(tableMeta).
			Columns("meta_name", "meta_value").
			Values(metaNextOid, int64(next)))
	}
	if err != nil {
		return fmt.Errorf("failed to store oid counter: %w", err)
	}
	return nil
}

// NewOid 分配对象标识，随事务提交或回滚
func (t *Txn) NewOid(ctx context.Context) (domain.Oid, error) {
	if err := t.check(); err != nil {
		return domain.InvalidOid, err
	}
	next, exists, err := t.nextOid(ctx)
	if err != nil {
		return domain.InvalidOid, err
	}
	if err := t.storeNextOid(ctx, next+1, exists); err != nil {
		return domain.InvalidOid, err
	}
	return next, nil
}

func (t *Txn) reserveOid(ctx context.Context, oid domain.Oid) error {
	next, exists, err := t.nextOid(ctx)
	if err != nil {
		return err
	}
	if oid < next {
		return nil
	}
	return t.storeNextOid(ctx, oid+1, exists)
}

func (t *Txn) assignOid(ctx context.Context, oid *domain.Oid) error {
	if *oid != domain.InvalidOid {
		return t.reserveOid(ctx, *oid)
	}
	next, err := t.NewOid(ctx)
	if err != nil {
		return err
	}
	*oid = next
	return nil
}

func (t *Txn) GetRelation(ctx context.Context, rel domain.Oid) (*domain.RelationInfo, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.reader.GetRelation(ctx, rel)
}

func (t *Txn) LookupRelation(ctx context.Context, schema, name string) (*domain.RelationInfo, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.reader.LookupRelation(ctx, schema, name)
}

func (t *Txn) GetNamespace(ctx context.Context, nsp domain.Oid) (*domain.Namespace, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.reader.GetNamespace(ctx, nsp)
}

func (t *Txn) GetColumnStats(ctx context.Context, rel domain.Oid) ([]domain.ColumnStats, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.reader.GetColumnStats(ctx, rel)
}

func (t *Txn) GetColumnStat(ctx context.Context, key domain.StatKey) (*domain.ColumnStats, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.reader.GetColumnStat(ctx, key)
}

func (t *Txn) GetExtendedStats(ctx context.Context, rel domain.Oid) ([]domain.ExtendedStats, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.reader.GetExtendedStats(ctx, rel)
}

func (t *Txn) ExtendedStatsNameExists(ctx context.Context, nsp domain.Oid, name string) (bool, error) {
	if err := t.check(); err != nil {
		return false, err
	}
	return t.reader.ExtendedStatsNameExists(ctx, nsp, name)
}

// CreateNamespace 创建模式
func (t *Txn) CreateNamespace(ctx context.Context, nsp domain.Namespace) error {
	if err := t.check(); err != nil {
		return err
	}
	if nsp.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if _, err := t.namespaceOid(ctx, nsp.Name); err == nil {
		return fmt.Errorf("schema %s already exists", nsp.Name)
	} else if !domain.IsNotFound(err) {
		return err
	}
	if err := t.assignOid(ctx, &nsp.Oid); err != nil {
		return err
	}
	_, err := t.exec(ctx, t.dialect.builder().
		Insert(tableNamespace).
		Columns("oid", "nspname").
		Values(int64(nsp.Oid), nsp.Name))
	if err != nil {
		return fmt.Errorf("failed to insert schema %s: %w", nsp.Name, err)
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
	if _, err := t.reader.GetNamespace(ctx, rel.Namespace); err != nil {
		return err
	}
	if err := t.assignOid(ctx, &rel.Oid); err != nil {
		return err
	}
	attrs, err := encodeJSON(rel.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes of %s: %w", rel.Name, err)
	}
	_, err = t.exec(ctx, t.dialect.builder().
		Insert(tableRelation).
		Columns(relationColumns...).
		Values(int64(rel.Oid), rel.Name, int64(rel.Namespace), rel.AccessMethod, rel.HasSubclass, rel.FillFactor,
			int64(rel.Stats.Pages), rel.Stats.Tuples, int64(rel.Stats.AllVisible), rel.Stats.HasIndex,
			int64(rel.Horizons.FrozenXID), int64(rel.Horizons.MinMulti), attrs))
	if err != nil {
		return fmt.Errorf("failed to insert relation %s: %w", rel.Name, err)
	}
	return nil
}

// UpdateRelationStats 更新表级统计，无效水位线保持原值
func (t *Txn) UpdateRelationStats(ctx context.Context, rel domain.Oid, stats domain.RelationStats, horizons domain.Horizons) error {
	if err := t.check(); err != nil {
		return err
	}
	cur, err := t.reader.GetRelation(ctx, rel)
	if err != nil {
		return err
	}
	h := horizons.Apply(cur.Horizons)
	_, err = t.exec(ctx, t.dialect.builder().
		Update(tableRelation).
		Set("relpages", int64(stats.Pages)).
		Set("reltuples", stats.Tuples).
		Set("relallvisible", int64(stats.AllVisible)).
		Set("relhasindex", stats.HasIndex).
		Set("relfrozenxid", int64(h.FrozenXID)).
		Set("relminmxid", int64(h.MinMulti)).
		Where(sq.Eq{"oid": int64(rel)}))
	if err != nil {
		return fmt.Errorf("failed to update relation %d: %w", rel, err)
	}
	return nil
}

// InsertColumnStats 插入列统计
func (t *Txn) InsertColumnStats(ctx context.Context, stats domain.ColumnStats) error {
	if err := t.check(); err != nil {
		return err
	}
	slots, err := encodeJSON(stats.Slots)
	if err != nil {
		return fmt.Errorf("failed to encode slots: %w", err)
	}
	_, err = t.exec(ctx, t.dialect.builder().
		Insert(tableStatistic).
		Columns(statisticColumns...).
		Values(int64(stats.Relation), int64(stats.AttNum), stats.Inherit,
			float64(stats.NullFrac), int64(stats.Width), float64(stats.Distinct), slots))
	if err != nil {
		return fmt.Errorf("failed to insert column statistic %v: %w", stats.Key(), err)
	}
	return nil
}

// UpdateColumnStats 更新列统计，不存在时返回 ErrNotFound
func (t *Txn) UpdateColumnStats(ctx context.Context, stats domain.ColumnStats) error {
	if err := t.check(); err != nil {
		return err
	}
	slots, err := encodeJSON(stats.Slots)
	if err != nil {
		return fmt.Errorf("failed to encode slots: %w", err)
	}
	res, err := t.exec(ctx, t.dialect.builder().
		Update(tableStatistic).
		Set("stanullfrac", float64(stats.NullFrac)).
		Set("stawidth", int64(stats.Width)).
		Set("stadistinct", float64(stats.Distinct)).
		Set("slots", slots).
		Where(sq.Eq{"starelid": int64(stats.Relation)}).
		Where(sq.Eq{"staattnum": int64(stats.AttNum)}).
		Where(sq.Eq{"stainherit": stats.Inherit}))
	if err != nil {
		return fmt.Errorf("failed to update column statistic %v: %w", stats.Key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update column statistic %v: %w", stats.Key(), err)
	}
	if n == 0 {
		// mysql 对值未变化的行返回 0，需要再确认一次是否存在
		if _, err := t.reader.GetColumnStat(ctx, stats.Key()); err != nil {
			return err
		}
	}
	return nil
}

// DeleteExtendedStats 删除表的全部扩展统计
func (t *Txn) DeleteExtendedStats(ctx context.Context, rel domain.Oid) (int, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	res, err := t.exec(ctx, t.dialect.builder().
		Delete(tableStatExt).
		Where(sq.Eq{"stxrelid": int64(rel)}))
	if err != nil {
		return 0, fmt.Errorf("failed to delete extended statistics of %d: %w", rel, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete extended statistics of %d: %w", rel, err)
	}
	return int(n), nil
}

// InsertExtendedStats 插入扩展统计
func (t *Txn) InsertExtendedStats(ctx context.Context, stats domain.ExtendedStats) error {
	if err := t.check(); err != nil {
		return err
	}
	if stats.Oid == domain.InvalidOid {
		return fmt.Errorf("extended statistic %s has no oid", stats.Name)
	}
	if err := t.reserveOid(ctx, stats.Oid); err != nil {
		return err
	}
	keys, err := encodeJSON(stats.Keys)
	if err != nil {
		return fmt.Errorf("failed to encode stxkeys: %w", err)
	}
	kinds, err := encodeJSON(stats.Kinds)
	if err != nil {
		return fmt.Errorf("failed to encode stxkind: %w", err)
	}
	_, err = t.exec(ctx, t.dialect.builder().
		Insert(tableStatExt).
		Columns(statExtColumns...).
		Values(int64(stats.Oid), int64(stats.Relation), stats.Name, int64(stats.Namespace),
			int64(stats.Owner), int64(stats.StatTarget), keys, kinds))
	if err != nil {
		return fmt.Errorf("failed to insert extended statistic %s: %w", stats.Name, err)
	}
	return nil
}

// Commit 提交
func (t *Txn) Commit(ctx context.Context) error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Rollback 回滚
func (t *Txn) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	return nil
}

var _ domain.Txn = (*Txn)(nil)

package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/videx/pkg/domain"
)

// Txn badger 目录的读写事务，读操作可以看到本事务内的写入
type Txn struct {
	reader
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

func (t *Txn) setJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := t.txn.Set(key, data); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (t *Txn) setOid(key []byte, oid domain.Oid) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(oid))
	if err := t.txn.Set(key, buf); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (t *Txn) exists(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// nextOid 读取计数器，不存在时从 firstOid 开始
func (t *Txn) nextOid() (domain.Oid, error) {
	oid, ok, err := t.getOid([]byte(KeyNextOid))
	if err != nil {
		return domain.InvalidOid, err
	}
	if !ok {
		return firstOid, nil
	}
	return oid, nil
}

// reserveOid 使计数器越过显式使用的标识
func (t *Txn) reserveOid(oid domain.Oid) error {
	next, err := t.nextOid()
	if err != nil {
		return err
	}
	if oid < next {
		return nil
	}
	return t.setOid([]byte(KeyNextOid), oid+1)
}

func (t *Txn) assignOid(oid *domain.Oid) error {
	if *oid != domain.InvalidOid {
		return t.reserveOid(*oid)
	}
	next, err := t.NewOid(context.Background())
	if err != nil {
		return err
	}
	*oid = next
	return nil
}

// NewOid 分配对象标识，随事务一起提交或回滚
func (t *Txn) NewOid(ctx context.Context) (domain.Oid, error) {
	if err := t.check(); err != nil {
		return domain.InvalidOid, err
	}
	next, err := t.nextOid()
	if err != nil {
		return domain.InvalidOid, err
	}
	if err := t.setOid([]byte(KeyNextOid), next+1); err != nil {
		return domain.InvalidOid, err
	}
	return next, nil
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
	taken, err := t.exists(namespaceNameKey(nsp.Name))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("schema %s already exists", nsp.Name)
	}
	if err := t.assignOid(&nsp.Oid); err != nil {
		return err
	}
	if err := t.setJSON(oidKey(PrefixNamespace, nsp.Oid), nsp); err != nil {
		return err
	}
	return t.setOid(namespaceNameKey(nsp.Name), nsp.Oid)
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
	taken, err := t.exists(relationNameKey(rel.Namespace, rel.Name))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("relation %s already exists", rel.Name)
	}
	if err := t.assignOid(&rel.Oid); err != nil {
		return err
	}
	if err := t.setJSON(oidKey(PrefixRelation, rel.Oid), rel); err != nil {
		return err
	}
	return t.setOid(relationNameKey(rel.Namespace, rel.Name), rel.Oid)
}

// UpdateRelationStats 更新表级统计
func (t *Txn) UpdateRelationStats(ctx context.Context, rel domain.Oid, stats domain.RelationStats, horizons domain.Horizons) error {
	if err := t.check(); err != nil {
		return err
	}
	cur, err := t.reader.GetRelation(ctx, rel)
	if err != nil {
		return err
	}
	cur.Stats = stats
	cur.Horizons = horizons.Apply(cur.Horizons)
	return t.setJSON(oidKey(PrefixRelation, rel), cur)
}

// InsertColumnStats 插入列统计
func (t *Txn) InsertColumnStats(ctx context.Context, stats domain.ColumnStats) error {
	if err := t.check(); err != nil {
		return err
	}
	key := columnStatsKey(stats.Key())
	taken, err := t.exists(key)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("column statistic %v already exists", stats.Key())
	}
	return t.setJSON(key, stats)
}

// UpdateColumnStats 更新列统计
func (t *Txn) UpdateColumnStats(ctx context.Context, stats domain.ColumnStats) error {
	if err := t.check(); err != nil {
		return err
	}
	key := columnStatsKey(stats.Key())
	found, err := t.exists(key)
	if err != nil {
		return err
	}
	if !found {
		return domain.NewErrNotFound("column statistic", stats.Key())
	}
	return t.setJSON(key, stats)
}

// DeleteExtendedStats 删除表的全部扩展统计及其索引
func (t *Txn) DeleteExtendedStats(ctx context.Context, rel domain.Oid) (int, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	objs, err := t.reader.GetExtendedStats(ctx, rel)
	if err != nil {
		return 0, err
	}
	for _, es := range objs {
		for _, key := range [][]byte{
			oidKey(PrefixExtStats, es.Oid),
			extStatsRelKey(es.Relation, es.Oid),
			extStatsNameKey(es.Namespace, es.Name),
		} {
			if err := t.txn.Delete(key); err != nil {
				return 0, fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
	}
	return len(objs), nil
}

// InsertExtendedStats 插入扩展统计
func (t *Txn) InsertExtendedStats(ctx context.Context, stats domain.ExtendedStats) error {
	if err := t.check(); err != nil {
		return err
	}
	if stats.Oid == domain.InvalidOid {
		return fmt.Errorf("extended statistic %s has no oid", stats.Name)
	}
	taken, err := t.exists(extStatsNameKey(stats.Namespace, stats.Name))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("extended statistic %s already exists in schema %d", stats.Name, stats.Namespace)
	}
	if err := t.reserveOid(stats.Oid); err != nil {
		return err
	}
	if err := t.setJSON(oidKey(PrefixExtStats, stats.Oid), stats); err != nil {
		return err
	}
	if err := t.txn.Set(extStatsRelKey(stats.Relation, stats.Oid), nil); err != nil {
		return fmt.Errorf("failed to index extended statistic %s: %w", stats.Name, err)
	}
	return t.setOid(extStatsNameKey(stats.Namespace, stats.Name), stats.Oid)
}

// Commit 提交
func (t *Txn) Commit(ctx context.Context) error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	if err := t.txn.Commit(); err != nil {
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
	t.txn.Discard()
	return nil
}

var _ domain.Txn = (*Txn)(nil)

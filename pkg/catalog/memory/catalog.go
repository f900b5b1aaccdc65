package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/kasuganosora/videx/pkg/domain"
)

// firstOid 新分配对象标识的起点，低于该值的保留给预置对象
const firstOid domain.Oid = 16384

// Catalog 基于 go-memdb 的内存目录
// 存入的对象视为不可变，读写都做深拷贝
type Catalog struct {
	db      *memdb.MemDB
	dbName  string
	nextOid atomic.Uint32
}

// New 创建内存目录
func New(dbName string) (*Catalog, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	c := &Catalog{db: db, dbName: dbName}
	c.nextOid.Store(uint32(firstOid))
	return c, nil
}

// DatabaseName 数据库名
func (c *Catalog) DatabaseName() string {
	return c.dbName
}

// Begin 开始写事务，同一时刻只有一个写事务
func (c *Catalog) Begin(ctx context.Context) (domain.Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Txn{txn: c.db.Txn(true), cat: c}, nil
}

// Close 释放资源
func (c *Catalog) Close() error {
	return nil
}

func (c *Catalog) reader() *reader {
	return &reader{txn: c.db.Txn(false)}
}

func (c *Catalog) GetRelation(ctx context.Context, rel domain.Oid) (*domain.RelationInfo, error) {
	return c.reader().GetRelation(ctx, rel)
}

func (c *Catalog) LookupRelation(ctx context.Context, schema, name string) (*domain.RelationInfo, error) {
	return c.reader().LookupRelation(ctx, schema, name)
}

func (c *Catalog) GetNamespace(ctx context.Context, nsp domain.Oid) (*domain.Namespace, error) {
	return c.reader().GetNamespace(ctx, nsp)
}

func (c *Catalog) GetColumnStats(ctx context.Context, rel domain.Oid) ([]domain.ColumnStats, error) {
	return c.reader().GetColumnStats(ctx, rel)
}

func (c *Catalog) GetColumnStat(ctx context.Context, key domain.StatKey) (*domain.ColumnStats, error) {
	return c.reader().GetColumnStat(ctx, key)
}

func (c *Catalog) GetExtendedStats(ctx context.Context, rel domain.Oid) ([]domain.ExtendedStats, error) {
	return c.reader().GetExtendedStats(ctx, rel)
}

func (c *Catalog) ExtendedStatsNameExists(ctx context.Context, nsp domain.Oid, name string) (bool, error) {
	return c.reader().ExtendedStatsNameExists(ctx, nsp, name)
}

// allocOid 分配对象标识，回滚不回收
func (c *Catalog) allocOid() domain.Oid {
	return domain.Oid(c.nextOid.Add(1) - 1)
}

// reserveOid 预置对象使用显式标识时推进计数器
func (c *Catalog) reserveOid(oid domain.Oid) {
	for {
		cur := c.nextOid.Load()
		if uint32(oid) < cur {
			return
		}
		if c.nextOid.CompareAndSwap(cur, uint32(oid)+1) {
			return
		}
	}
}

var _ domain.Catalog = (*Catalog)(nil)

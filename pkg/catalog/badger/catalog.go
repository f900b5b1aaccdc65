// Package badger provides a persistent statistics catalog on the Badger KV store.
package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/videx/pkg/domain"
)

// firstOid 新分配对象标识的起点
const firstOid domain.Oid = 16384

// Config badger 目录配置
type Config struct {
	// DataDir 数据目录，InMemory 为 true 时忽略
	DataDir string `json:"data_dir"`

	// InMemory 纯内存模式
	InMemory bool `json:"in_memory"`

	// SyncWrites 每次写入同步落盘
	SyncWrites bool `json:"sync_writes"`

	// DatabaseName 目录所属数据库名
	DatabaseName string `json:"database_name"`

	// Logger badger 内部日志，nil 时关闭
	Logger badger.Logger `json:"-"`
}

// Catalog 基于 badger 的持久化目录
type Catalog struct {
	db     *badger.DB
	dbName string
}

// Open 打开目录
func Open(cfg Config) (*Catalog, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("badger catalog requires data_dir")
		}
		opts = badger.DefaultOptions(cfg.DataDir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Catalog{db: db, dbName: cfg.DatabaseName}, nil
}

// DatabaseName 数据库名
func (c *Catalog) DatabaseName() string {
	return c.dbName
}

// Begin 开始读写事务
func (c *Catalog) Begin(ctx context.Context) (domain.Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Txn{reader: reader{txn: c.db.NewTransaction(true)}, dbName: c.dbName}, nil
}

// Close 关闭数据库
func (c *Catalog) Close() error {
	return c.db.Close()
}

// view 在只读事务中执行
func (c *Catalog) view(fn func(r *reader) error) error {
	return c.db.View(func(txn *badger.Txn) error {
		return fn(&reader{txn: txn})
	})
}

func (c *Catalog) GetRelation(ctx context.Context, rel domain.Oid) (out *domain.RelationInfo, err error) {
	err = c.view(func(r *reader) error {
		out, err = r.GetRelation(ctx, rel)
		return err
	})
	return out, err
}

func (c *Catalog) LookupRelation(ctx context.Context, schema, name string) (out *domain.RelationInfo, err error) {
	err = c.view(func(r *reader) error {
		out, err = r.LookupRelation(ctx, schema, name)
		return err
	})
	return out, err
}

func (c *Catalog) GetNamespace(ctx context.Context, nsp domain.Oid) (out *domain.Namespace, err error) {
	err = c.view(func(r *reader) error {
		out, err = r.GetNamespace(ctx, nsp)
		return err
	})
	return out, err
}

func (c *Catalog) GetColumnStats(ctx context.Context, rel domain.Oid) (out []domain.ColumnStats, err error) {
	err = c.view(func(r *reader) error {
		out, err = r.GetColumnStats(ctx, rel)
		return err
	})
	return out, err
}

func (c *Catalog) GetColumnStat(ctx context.Context, key domain.StatKey) (out *domain.ColumnStats, err error) {
	err = c.view(func(r *reader) error {
		out, err = r.GetColumnStat(ctx, key)
		return err
	})
	return out, err
}

func (c *Catalog) GetExtendedStats(ctx context.Context, rel domain.Oid) (out []domain.ExtendedStats, err error) {
	err = c.view(func(r *reader) error {
		out, err = r.GetExtendedStats(ctx, rel)
		return err
	})
	return out, err
}

func (c *Catalog) ExtendedStatsNameExists(ctx context.Context, nsp domain.Oid, name string) (exists bool, err error) {
	err = c.view(func(r *reader) error {
		exists, err = r.ExtendedStatsNameExists(ctx, nsp, name)
		return err
	})
	return exists, err
}

var _ domain.Catalog = (*Catalog)(nil)

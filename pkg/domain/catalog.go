package domain

import "context"

// Reader 目录只读接口
type Reader interface {
	// DatabaseName 当前数据库名
	DatabaseName() string

	// GetRelation 按 oid 获取表信息
	GetRelation(ctx context.Context, rel Oid) (*RelationInfo, error)

	// LookupRelation 按模式名和表名获取表信息
	LookupRelation(ctx context.Context, schema, name string) (*RelationInfo, error)

	// GetNamespace 按 oid 获取模式
	GetNamespace(ctx context.Context, nsp Oid) (*Namespace, error)

	// GetColumnStats 获取表的全部列统计
	GetColumnStats(ctx context.Context, rel Oid) ([]ColumnStats, error)

	// GetColumnStat 按唯一键获取单条列统计，不存在时返回 ErrNotFound
	GetColumnStat(ctx context.Context, key StatKey) (*ColumnStats, error)

	// GetExtendedStats 获取表的全部扩展统计对象
	GetExtendedStats(ctx context.Context, rel Oid) ([]ExtendedStats, error)

	// ExtendedStatsNameExists 检查模式内扩展统计名是否已被占用
	ExtendedStatsNameExists(ctx context.Context, nsp Oid, name string) (bool, error)
}

// Writer 目录写接口
type Writer interface {
	// CreateNamespace 创建模式
	CreateNamespace(ctx context.Context, nsp Namespace) error

	// CreateRelation 创建表
	CreateRelation(ctx context.Context, rel *RelationInfo) error

	// UpdateRelationStats 更新表级统计，无效的水位线保持原值
	UpdateRelationStats(ctx context.Context, rel Oid, stats RelationStats, horizons Horizons) error

	// InsertColumnStats 插入列统计
	InsertColumnStats(ctx context.Context, stats ColumnStats) error

	// UpdateColumnStats 更新已存在的列统计
	UpdateColumnStats(ctx context.Context, stats ColumnStats) error

	// DeleteExtendedStats 删除表拥有的全部扩展统计对象，返回删除数量
	DeleteExtendedStats(ctx context.Context, rel Oid) (int, error)

	// InsertExtendedStats 插入扩展统计对象
	InsertExtendedStats(ctx context.Context, stats ExtendedStats) error

	// NewOid 分配新的对象标识
	NewOid(ctx context.Context) (Oid, error)
}

// Txn 目录事务
// Commit 之前的写入对其他读者不可见；Rollback 丢弃全部写入
type Txn interface {
	Reader
	Writer

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Catalog 目录
type Catalog interface {
	Reader

	// Begin 开始一个读写事务
	Begin(ctx context.Context) (Txn, error)

	// Close 释放资源
	Close() error
}

// RunInTxn 在事务中执行 fn，fn 返回错误时回滚
func RunInTxn(ctx context.Context, cat Catalog, fn func(txn Txn) error) error {
	txn, err := cat.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		_ = txn.Rollback(ctx)
		return err
	}
	return txn.Commit(ctx)
}

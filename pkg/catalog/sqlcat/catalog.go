// Package sqlcat stores the statistics catalog in a SQL database.
package sqlcat

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kasuganosora/videx/pkg/domain"
)

// queryer *sql.DB 与 *sql.Tx 的公共部分
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Catalog SQL 目录
type Catalog struct {
	db      *sql.DB
	dialect Dialect
	dbName  string
}

// Open 按方言打开数据库并建表
func Open(ctx context.Context, dialect, dsn, dbName string) (*Catalog, error) {
	d, err := DialectByName(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", d.Name, err)
	}
	c := New(db, d, dbName)
	if err := c.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// New 包装已打开的连接，不建表
func New(db *sql.DB, dialect Dialect, dbName string) *Catalog {
	return &Catalog{db: db, dialect: dialect, dbName: dbName}
}

// Migrate 建表
func (c *Catalog) Migrate(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	return nil
}

// DatabaseName 数据库名
func (c *Catalog) DatabaseName() string {
	return c.dbName
}

// Begin 开始事务
func (c *Catalog) Begin(ctx context.Context) (domain.Txn, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Txn{reader: reader{q: tx, dialect: c.dialect}, tx: tx, dbName: c.dbName}, nil
}

// Close 关闭连接
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) reader() *reader {
	return &reader{q: c.db, dialect: c.dialect}
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

var _ domain.Catalog = (*Catalog)(nil)

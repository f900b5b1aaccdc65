package sqlcat

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/catalog/catalogtest"
	"github.com/kasuganosora/videx/pkg/domain"
)

func newSQLite(t *testing.T) domain.Catalog {
	dsn := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := Open(context.Background(), "sqlite", dsn, "testdb")
	require.NoError(t, err)
	return cat
}

func TestSQLiteCatalog(t *testing.T) {
	catalogtest.All(t, catalogtest.CatalogTesterFunc(newSQLite))
}

func TestSQLiteCatalog_MigrateIdempotent(t *testing.T) {
	cat := newSQLite(t).(*Catalog)
	defer cat.Close()
	assert.NoError(t, cat.Migrate(context.Background()))
	assert.Equal(t, "testdb", cat.DatabaseName())
}

func TestDialectByName(t *testing.T) {
	for _, name := range []string{"sqlite", "postgres", "pg", "mysql", "mariadb"} {
		_, err := DialectByName(name)
		assert.NoError(t, err, name)
	}
	_, err := DialectByName("oracle")
	assert.Error(t, err)
}

const selectRelation = "SELECT oid, relname, relnamespace, relam, relhassubclass, fillfactor, relpages, reltuples, " +
	"relallvisible, relhasindex, relfrozenxid, relminmxid, attributes FROM videx_relation WHERE oid = $1"

func relationRow() *sqlmock.Rows {
	return sqlmock.NewRows(relationColumns).AddRow(
		int64(16400), "orders", int64(2200), "heap", false, int64(0),
		int64(1200), 100000.0, int64(600), true,
		int64(700), int64(1), `[{"attnum":1,"attname":"id","atttype":"int4","attwidth":4}]`)
}

func newMock(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, Postgres, "pgdb"), mock
}

func TestPostgres_GetRelation(t *testing.T) {
	cat, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectRelation)).
		WithArgs(int64(16400)).
		WillReturnRows(relationRow())

	rel, err := cat.GetRelation(context.Background(), 16400)
	require.NoError(t, err)
	assert.Equal(t, "orders", rel.Name)
	assert.Equal(t, uint32(1200), rel.Stats.Pages)
	assert.Equal(t, domain.TransactionID(700), rel.Horizons.FrozenXID)
	require.Len(t, rel.Attributes, 1)
	assert.Equal(t, "id", rel.Attributes[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRelationNotFound(t *testing.T) {
	cat, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectRelation)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(relationColumns))

	_, err := cat.GetRelation(context.Background(), 1)
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRelationStats(t *testing.T) {
	ctx := context.Background()
	cat, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectRelation)).
		WithArgs(int64(16400)).
		WillReturnRows(relationRow())
	mock.ExpectExec(regexp.QuoteMeta("UPDATE videx_relation SET relpages = $1, reltuples = $2, relallvisible = $3, "+
		"relhasindex = $4, relfrozenxid = $5, relminmxid = $6 WHERE oid = $7")).
		WithArgs(int64(10), 500.0, int64(3), false, int64(700), int64(1), int64(16400)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.UpdateRelationStats(ctx, 16400, domain.RelationStats{Pages: 10, Tuples: 500, AllVisible: 3}, domain.Horizons{})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NewOidLocksCounter(t *testing.T) {
	ctx := context.Background()
	cat, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT meta_value FROM videx_meta WHERE meta_name = $1 FOR UPDATE")).
		WithArgs(metaNextOid).
		WillReturnRows(sqlmock.NewRows([]string{"meta_value"}).AddRow(int64(20000)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE videx_meta SET meta_value = $1 WHERE meta_name = $2")).
		WithArgs(int64(20001), metaNextOid).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var got domain.Oid
	err := domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		var err error
		got, err = txn.NewOid(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Oid(20000), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	cat, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM videx_statistic_ext WHERE stxrelid = $1")).
		WithArgs(int64(16500)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		_, err := txn.DeleteExtendedStats(ctx, 16500)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

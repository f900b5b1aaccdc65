package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/catalog/catalogtest"
	"github.com/kasuganosora/videx/pkg/domain"
)

func newInMemory(t *testing.T) domain.Catalog {
	cat, err := Open(Config{InMemory: true, DatabaseName: "testdb"})
	require.NoError(t, err)
	return cat
}

func TestBadgerCatalog(t *testing.T) {
	catalogtest.All(t, catalogtest.CatalogTesterFunc(newInMemory))
}

func TestBadgerCatalog_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cat, err := Open(Config{DataDir: dir, DatabaseName: "testdb"})
	require.NoError(t, err)
	catalogtest.Seed(t, cat)
	require.NoError(t, cat.Close())

	cat, err = Open(Config{DataDir: dir, DatabaseName: "testdb"})
	require.NoError(t, err)
	defer cat.Close()

	rel, err := cat.LookupRelation(ctx, "public", "orders")
	require.NoError(t, err)
	assert.Equal(t, catalogtest.SrcOid, rel.Oid)

	ext, err := cat.GetExtendedStats(ctx, catalogtest.SrcOid)
	require.NoError(t, err)
	require.Len(t, ext, 1)
	assert.Equal(t, "s_id_name", ext[0].Name)

	// 计数器持久化，重启后不会复用已分配的标识
	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		oid, err := txn.NewOid(ctx)
		assert.Greater(t, uint32(oid), uint32(catalogtest.DstOid))
		return err
	})
	require.NoError(t, err)
}

func TestOpen_RequiresDataDir(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestColumnStatsKey_Order(t *testing.T) {
	a := string(columnStatsKey(domain.StatKey{Relation: 1, AttNum: -2}))
	b := string(columnStatsKey(domain.StatKey{Relation: 1, AttNum: 1}))
	c := string(columnStatsKey(domain.StatKey{Relation: 1, AttNum: 1, Inherit: true}))
	d := string(columnStatsKey(domain.StatKey{Relation: 1, AttNum: 10}))
	assert.True(t, a < b && b < c && c < d)
}

func TestDecodeExtStatsRelKey(t *testing.T) {
	oid, ok := decodeExtStatsRelKey(extStatsRelKey(7, 16500))
	require.True(t, ok)
	assert.Equal(t, domain.Oid(16500), oid)

	_, ok = decodeExtStatsRelKey([]byte("ext:1"))
	assert.False(t, ok)
}

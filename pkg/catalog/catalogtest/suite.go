package catalogtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/domain"
)

// CatalogTester 为通用测试创建目录实例
type CatalogTester interface {
	New(t *testing.T) domain.Catalog
}

// CatalogTesterFunc 函数形式的 CatalogTester
type CatalogTesterFunc func(t *testing.T) domain.Catalog

func (f CatalogTesterFunc) New(t *testing.T) domain.Catalog {
	return f(t)
}

// All 对目录实现运行全部通用测试
func All(t *testing.T, tester CatalogTester) {
	t.Run("TestRelationLookup", func(t *testing.T) { RelationLookupTest(t, tester) })
	t.Run("TestNotFound", func(t *testing.T) { NotFoundTest(t, tester) })
	t.Run("TestUpdateRelationStats", func(t *testing.T) { UpdateRelationStatsTest(t, tester) })
	t.Run("TestColumnStatsUpsert", func(t *testing.T) { ColumnStatsUpsertTest(t, tester) })
	t.Run("TestExtendedStats", func(t *testing.T) { ExtendedStatsTest(t, tester) })
	t.Run("TestRollback", func(t *testing.T) { RollbackTest(t, tester) })
	t.Run("TestNewOid", func(t *testing.T) { NewOidTest(t, tester) })
}

func newSeeded(t *testing.T, tester CatalogTester) (domain.Catalog, *Fixture) {
	cat := tester.New(t)
	t.Cleanup(func() { _ = cat.Close() })
	return cat, Seed(t, cat)
}

func RelationLookupTest(t *testing.T, tester CatalogTester) {
	ctx := context.Background()
	cat, f := newSeeded(t, tester)

	rel, err := cat.GetRelation(ctx, SrcOid)
	require.NoError(t, err)
	assert.Equal(t, f.Src.Name, rel.Name)
	assert.Equal(t, f.Src.Stats, rel.Stats)
	assert.Equal(t, f.Src.Attributes, rel.Attributes)

	rel, err = cat.LookupRelation(ctx, "public", "orders_videx")
	require.NoError(t, err)
	assert.Equal(t, DstOid, rel.Oid)
	assert.Equal(t, "videx", rel.AccessMethod)

	nsp, err := cat.GetNamespace(ctx, PublicOid)
	require.NoError(t, err)
	assert.Equal(t, "public", nsp.Name)

	stats, err := cat.GetColumnStats(ctx, SrcOid)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, domain.AttrNumber(1), stats[0].AttNum)
	assert.Equal(t, []string{"alice", "bob"}, stats[1].Slots[0].Values)
	assert.Equal(t, []float32{0.2, 0.1}, stats[1].Slots[0].Numbers)
}

func NotFoundTest(t *testing.T, tester CatalogTester) {
	ctx := context.Background()
	cat, _ := newSeeded(t, tester)

	_, err := cat.GetRelation(ctx, 99999)
	assert.True(t, domain.IsNotFound(err))

	_, err = cat.LookupRelation(ctx, "nosuch", "orders")
	assert.True(t, domain.IsNotFound(err))

	_, err = cat.LookupRelation(ctx, "public", "nosuch")
	assert.True(t, domain.IsNotFound(err))

	_, err = cat.GetNamespace(ctx, 1)
	assert.True(t, domain.IsNotFound(err))

	_, err = cat.GetColumnStat(ctx, domain.StatKey{Relation: DstOid, AttNum: 1})
	assert.True(t, domain.IsNotFound(err))

	stats, err := cat.GetColumnStats(ctx, DstOid)
	require.NoError(t, err)
	assert.Empty(t, stats)

	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.UpdateColumnStats(ctx, domain.ColumnStats{Relation: DstOid, AttNum: 1})
	})
	assert.True(t, domain.IsNotFound(err))
}

func UpdateRelationStatsTest(t *testing.T, tester CatalogTester) {
	ctx := context.Background()
	cat, f := newSeeded(t, tester)

	newStats := domain.RelationStats{Pages: 5, Tuples: 42, AllVisible: 2, HasIndex: true}
	err := domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.UpdateRelationStats(ctx, DstOid, newStats, domain.Horizons{})
	})
	require.NoError(t, err)

	rel, err := cat.GetRelation(ctx, DstOid)
	require.NoError(t, err)
	assert.Equal(t, newStats, rel.Stats)
	assert.Equal(t, f.Dst.Horizons, rel.Horizons, "invalid horizons keep existing values")

	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.UpdateRelationStats(ctx, DstOid, newStats, domain.Horizons{FrozenXID: 1000})
	})
	require.NoError(t, err)
	rel, err = cat.GetRelation(ctx, DstOid)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionID(1000), rel.Horizons.FrozenXID)
	assert.Equal(t, f.Dst.Horizons.MinMulti, rel.Horizons.MinMulti)

	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.UpdateRelationStats(ctx, 99999, newStats, domain.Horizons{})
	})
	assert.True(t, domain.IsNotFound(err))
}

func ColumnStatsUpsertTest(t *testing.T, tester CatalogTester) {
	ctx := context.Background()
	cat, _ := newSeeded(t, tester)

	row := domain.ColumnStats{Relation: DstOid, AttNum: 3, NullFrac: 0.3, Width: 4, Distinct: 10}
	err := domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.InsertColumnStats(ctx, row)
	})
	require.NoError(t, err)

	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.InsertColumnStats(ctx, row)
	})
	assert.Error(t, err, "duplicate key")

	row.Distinct = 20
	row.Slots = []domain.StatSlot{{Kind: 2, Values: []string{"1", "5"}}}
	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.UpdateColumnStats(ctx, row)
	})
	require.NoError(t, err)

	got, err := cat.GetColumnStat(ctx, row.Key())
	require.NoError(t, err)
	assert.Equal(t, float32(20), got.Distinct)
	assert.Equal(t, []string{"1", "5"}, got.Slots[0].Values)

	inherited := row
	inherited.Inherit = true
	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.InsertColumnStats(ctx, inherited)
	})
	require.NoError(t, err, "inherit flag is part of the key")

	all, err := cat.GetColumnStats(ctx, DstOid)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func ExtendedStatsTest(t *testing.T, tester CatalogTester) {
	ctx := context.Background()
	cat, _ := newSeeded(t, tester)

	exists, err := cat.ExtendedStatsNameExists(ctx, PublicOid, "s_id_name")
	require.NoError(t, err)
	assert.True(t, exists)

	src, err := cat.GetExtendedStats(ctx, SrcOid)
	require.NoError(t, err)
	require.Len(t, src, 1)
	assert.Equal(t, []domain.AttrNumber{1, 2}, src[0].Keys)
	assert.Equal(t, []string{"d", "f"}, src[0].Kinds)

	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		oid, err := txn.NewOid(ctx)
		if err != nil {
			return err
		}
		clone := src[0].Clone()
		clone.Oid = oid
		clone.Relation = DstOid
		clone.Name = "videx_s_id_name"
		return txn.InsertExtendedStats(ctx, clone)
	})
	require.NoError(t, err)

	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		dup := src[0].Clone()
		dup.Oid = 30000
		return txn.InsertExtendedStats(ctx, dup)
	})
	assert.Error(t, err, "name is unique within a schema")

	var deleted int
	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		deleted, err = txn.DeleteExtendedStats(ctx, DstOid)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	dst, err := cat.GetExtendedStats(ctx, DstOid)
	require.NoError(t, err)
	assert.Empty(t, dst)

	src, err = cat.GetExtendedStats(ctx, SrcOid)
	require.NoError(t, err)
	assert.Len(t, src, 1)
}

func RollbackTest(t *testing.T, tester CatalogTester) {
	ctx := context.Background()
	cat, _ := newSeeded(t, tester)

	txn, err := cat.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.UpdateRelationStats(ctx, DstOid, domain.RelationStats{Pages: 77, Tuples: 1}, domain.Horizons{}))
	require.NoError(t, txn.InsertColumnStats(ctx, domain.ColumnStats{Relation: DstOid, AttNum: 1, Width: 8}))
	_, err = txn.DeleteExtendedStats(ctx, SrcOid)
	require.NoError(t, err)

	inTxn, err := txn.GetRelation(ctx, DstOid)
	require.NoError(t, err)
	assert.Equal(t, uint32(77), inTxn.Stats.Pages, "writes are visible inside the transaction")

	require.NoError(t, txn.Rollback(ctx))
	require.NoError(t, txn.Rollback(ctx), "rollback is idempotent")

	rel, err := cat.GetRelation(ctx, DstOid)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), rel.Stats.Pages)

	stats, err := cat.GetColumnStats(ctx, DstOid)
	require.NoError(t, err)
	assert.Empty(t, stats)

	ext, err := cat.GetExtendedStats(ctx, SrcOid)
	require.NoError(t, err)
	assert.Len(t, ext, 1)
}

func NewOidTest(t *testing.T, tester CatalogTester) {
	ctx := context.Background()
	cat, _ := newSeeded(t, tester)

	seen := map[domain.Oid]bool{}
	err := domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		for i := 0; i < 10; i++ {
			oid, err := txn.NewOid(ctx)
			if err != nil {
				return err
			}
			assert.NotEqual(t, domain.InvalidOid, oid)
			assert.False(t, seen[oid], "oid %d allocated twice", oid)
			assert.Greater(t, uint32(oid), uint32(DstOid), "oids never reuse seeded identities")
			seen[oid] = true
		}
		return nil
	})
	require.NoError(t, err)
}

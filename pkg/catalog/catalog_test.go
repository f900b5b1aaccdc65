package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/catalog/catalogtest"
	"github.com/kasuganosora/videx/pkg/catalog/memory"
	"github.com/kasuganosora/videx/pkg/config"
	"github.com/kasuganosora/videx/pkg/domain"
)

const snapshotYAML = `
namespaces:
  - oid: 2200
    nspname: public
relations:
  - oid: 16400
    relname: orders
    relnamespace: 2200
    relam: heap
    attributes:
      - {attnum: 1, attname: id, atttype: int4, attwidth: 4}
      - {attnum: 2, attname: note, atttype: text}
    stats:
      relpages: 1200
      reltuples: 100000
      relallvisible: 600
      relhasindex: true
    horizons:
      relfrozenxid: 700
      relminmxid: 1
column_stats:
  - starelid: 16400
    staattnum: 1
    stanullfrac: 0
    stawidth: 4
    stadistinct: -1
  - starelid: 16400
    staattnum: 2
    stanullfrac: 0.5
    stawidth: 40
    stadistinct: 12
    slots:
      - stakind: 1
        staop: 98
        stanumbers: [0.5, 0.25]
        stavalues: [a, b]
extended_stats:
  - oid: 16450
    stxrelid: 16400
    stxname: s_id_note
    stxnamespace: 2200
    stxkeys: [1, 2]
    stxkind: [d]
`

func TestReadSnapshotYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshotYAML), 0o644))

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)

	cat, err := memory.New("shop")
	require.NoError(t, err)
	require.NoError(t, snap.Load(context.Background(), cat))

	ctx := context.Background()
	rel, err := cat.LookupRelation(ctx, "public", "orders")
	require.NoError(t, err)
	assert.Equal(t, domain.Oid(16400), rel.Oid)
	assert.Equal(t, domain.RelationStats{Pages: 1200, Tuples: 100000, AllVisible: 600, HasIndex: true}, rel.Stats)
	assert.Equal(t, domain.Horizons{FrozenXID: 700, MinMulti: 1}, rel.Horizons)
	assert.Len(t, rel.Attributes, 2)

	cs, err := cat.GetColumnStat(ctx, domain.StatKey{Relation: 16400, AttNum: 2})
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), cs.NullFrac)
	assert.Equal(t, int32(40), cs.Width)
	require.Len(t, cs.Slots, 1)
	assert.Equal(t, []string{"a", "b"}, cs.Slots[0].Values)

	es, err := cat.GetExtendedStats(ctx, 16400)
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, []domain.AttrNumber{1, 2}, es[0].Keys)
}

func TestReadSnapshotErrors(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"relations": 3}`), 0o644))
	_, err = ReadSnapshot(path)
	assert.Error(t, err)
}

func TestLoadIsAtomic(t *testing.T) {
	cat, err := memory.New("shop")
	require.NoError(t, err)

	snap := &Snapshot{
		Namespaces: []domain.Namespace{{Oid: 2200, Name: "public"}},
		Relations: []*domain.RelationInfo{
			{Oid: 16400, Name: "orders", Namespace: 2200},
			// 模式不存在
			{Oid: 16401, Name: "items", Namespace: 9999},
		},
	}
	err = snap.Load(context.Background(), cat)
	require.Error(t, err)

	_, err = cat.GetRelation(context.Background(), 16400)
	assert.True(t, domain.IsNotFound(err))
}

func TestDumpRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, err := memory.New("shop")
	require.NoError(t, err)
	catalogtest.Seed(t, src)

	snap, err := Dump(ctx, src, catalogtest.SrcOid, catalogtest.DstOid)
	require.NoError(t, err)
	assert.Len(t, snap.Namespaces, 1)
	assert.Len(t, snap.Relations, 2)
	assert.Len(t, snap.ColumnStats, 3)
	assert.Len(t, snap.ExtendedStats, 1)

	dst, err := memory.New("shop")
	require.NoError(t, err)
	require.NoError(t, snap.Load(ctx, dst))

	want, err := src.GetColumnStats(ctx, catalogtest.SrcOid)
	require.NoError(t, err)
	got, err := dst.GetColumnStats(ctx, catalogtest.SrcOid)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.CatalogConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.CatalogConfig{Backend: config.BackendMemory, Database: "shop"}},
		{name: "default", cfg: config.CatalogConfig{Database: "shop"}},
		{name: "badger", cfg: config.CatalogConfig{Backend: config.BackendBadger, DataDir: filepath.Join(dir, "badger"), Database: "shop"}},
		{name: "sqlite", cfg: config.CatalogConfig{Backend: config.BackendSQLite, DSN: filepath.Join(dir, "videx.db"), Database: "shop"}},
		{name: "unknown", cfg: config.CatalogConfig{Backend: "oracle"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := Open(ctx, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer cat.Close()

			assert.Equal(t, "shop", cat.DatabaseName())
			catalogtest.Seed(t, cat)
			rel, err := cat.LookupRelation(ctx, "public", "orders")
			require.NoError(t, err)
			assert.Equal(t, catalogtest.SrcOid, rel.Oid)
		})
	}
}

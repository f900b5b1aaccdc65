package videxam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/catalog/catalogtest"
	"github.com/kasuganosora/videx/pkg/catalog/memory"
	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/relcache"
)

type fakeSource map[domain.Oid]*relcache.Entry

func (f fakeSource) Get(ctx context.Context, rel domain.Oid) (*relcache.Entry, error) {
	e, ok := f[rel]
	if !ok {
		return nil, domain.NewErrNotFound("relation", rel)
	}
	return e, nil
}

func testRelation(stats domain.RelationStats, hasSubclass bool) *domain.RelationInfo {
	return &domain.RelationInfo{
		Oid:         1,
		Name:        "t",
		HasSubclass: hasSubclass,
		Attributes: []domain.Attribute{
			{Number: 1, Name: "id", TypeName: "int4", AvgWidth: 4},
			{Number: 2, Name: "note", TypeName: "text"},
		},
		Stats: stats,
	}
}

func TestEstimateSize(t *testing.T) {
	tests := []struct {
		name        string
		stats       domain.RelationStats
		hasSubclass bool
		fillFactor  int
		colStats    []domain.ColumnStats
		widths      []int32
		want        Estimate
	}{
		{
			name:  "analyzed relation",
			stats: domain.RelationStats{Pages: 1200, Tuples: 100000, AllVisible: 600},
			want:  Estimate{Pages: 1200, Tuples: 100000, AllVisibleFrac: 0.5},
		},
		{
			name:  "all visible clamped to one",
			stats: domain.RelationStats{Pages: 1200, Tuples: 100000, AllVisible: 2000},
			want:  Estimate{Pages: 1200, Tuples: 100000, AllVisibleFrac: 1},
		},
		{
			name:  "analyzed empty relation",
			stats: domain.RelationStats{Pages: 0, Tuples: 0, AllVisible: 0},
			want:  Estimate{Pages: 0, Tuples: 0, AllVisibleFrac: 0},
		},
		{
			name:  "small analyzed relation keeps its pages",
			stats: domain.RelationStats{Pages: 4, Tuples: 40, AllVisible: 4},
			want:  Estimate{Pages: 4, Tuples: 40, AllVisibleFrac: 1},
		},
		{
			// (8168 / (4 + 32 + 28)) = 127 行每页
			name:  "never analyzed uses ten pages",
			stats: domain.RelationStats{Pages: 5, Tuples: -1},
			want:  Estimate{Pages: 10, Tuples: 1270},
		},
		{
			name:        "parent relation is believed empty",
			stats:       domain.RelationStats{Pages: 5, Tuples: -1},
			hasSubclass: true,
			want:        Estimate{Pages: 5, Tuples: 635},
		},
		{
			name:        "parent relation with zero pages",
			stats:       domain.RelationStats{Pages: 0, Tuples: -1},
			hasSubclass: true,
			want:        Estimate{Pages: 0, Tuples: 0},
		},
		{
			name:  "all visible uses recorded pages",
			stats: domain.RelationStats{Pages: 5, Tuples: -1, AllVisible: 2},
			want:  Estimate{Pages: 10, Tuples: 1270, AllVisibleFrac: 0.4},
		},
		{
			// (816 / 64) = 12
			name:       "fill factor",
			stats:      domain.RelationStats{Pages: 0, Tuples: -1},
			fillFactor: 10,
			want:       Estimate{Pages: 10, Tuples: 120},
		},
		{
			// (8168 / (4 + 20 + 28)) = 157
			name:     "column statistics width",
			stats:    domain.RelationStats{Pages: 0, Tuples: -1},
			colStats: []domain.ColumnStats{{Relation: 1, AttNum: 2, Width: 20}},
			want:     Estimate{Pages: 10, Tuples: 1570},
		},
		{
			// (8168 / (100 + 32 + 28)) = 51
			name:   "caller width wins",
			stats:  domain.RelationStats{Pages: 0, Tuples: -1},
			widths: []int32{100, 0},
			want:   Estimate{Pages: 10, Tuples: 510},
		},
		{
			name:   "at least one row per page",
			stats:  domain.RelationStats{Pages: 0, Tuples: -1},
			widths: []int32{10000, 0},
			want:   Estimate{Pages: 10, Tuples: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := testRelation(tt.stats, tt.hasSubclass)
			rel.FillFactor = tt.fillFactor
			am := New(fakeSource{1: {Relation: rel, ColumnStats: tt.colStats}})

			got, err := am.EstimateSize(context.Background(), 1, tt.widths)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Pages, got.Pages)
			assert.Equal(t, tt.want.Tuples, got.Tuples)
			assert.InDelta(t, tt.want.AllVisibleFrac, got.AllVisibleFrac, 1e-9)
		})
	}
}

func TestEstimateSizeBackfillsWidths(t *testing.T) {
	rel := testRelation(domain.RelationStats{Pages: 0, Tuples: -1}, false)
	am := New(fakeSource{1: {Relation: rel}})

	widths := []int32{0, 0}
	_, err := am.EstimateSize(context.Background(), 1, widths)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 32}, widths)
}

func TestEstimateSizeConfigFillFactor(t *testing.T) {
	rel := testRelation(domain.RelationStats{Pages: 0, Tuples: -1}, false)
	am := New(fakeSource{1: {Relation: rel}}, WithEstimatorConfig(EstimatorConfig{FillFactor: 50}))

	got, err := am.EstimateSize(context.Background(), 1, nil)
	require.NoError(t, err)
	// (4084 / 64) = 63
	assert.Equal(t, float64(630), got.Tuples)
}

func TestEstimateSizeNotFound(t *testing.T) {
	am := New(fakeSource{})
	_, err := am.EstimateSize(context.Background(), 42, nil)
	assert.True(t, domain.IsNotFound(err))
}

func TestEstimateSizeThroughCatalog(t *testing.T) {
	cat, err := memory.New("videx")
	require.NoError(t, err)
	catalogtest.Seed(t, cat)
	am := New(relcache.New(cat, 0))

	got, err := am.EstimateSize(context.Background(), catalogtest.SrcOid, nil)
	require.NoError(t, err)
	assert.Equal(t, Estimate{Pages: 1200, Tuples: 100000, AllVisibleFrac: 0.5}, got)
}

func TestScanLifecycle(t *testing.T) {
	am := New(fakeSource{})

	scan := am.BeginScan(7, nil, []ScanKey{{AttNum: 1, Strategy: 3, Argument: 10}}, 0)
	assert.Equal(t, ScanScanning, scan.State())
	assert.Equal(t, int64(0), scan.Cursor())
	assert.Equal(t, int64(1), am.ActiveScans())

	slot := &Slot{Values: []interface{}{1}, Nulls: []bool{false}}
	assert.False(t, scan.GetNextSlot(ForwardScan, slot))
	assert.True(t, slot.Empty)
	assert.Empty(t, slot.Values)

	scan.Rescan(nil, true, true, true, true)
	assert.False(t, scan.GetNextSlot(BackwardScan, nil))

	scan.End()
	scan.End()
	assert.Equal(t, ScanClosed, scan.State())
	assert.Equal(t, int64(0), am.ActiveScans())
}

func TestConcurrentScansAreIndependent(t *testing.T) {
	am := New(fakeSource{})
	a := am.BeginScan(1, nil, nil, 0)
	b := am.BeginScan(1, nil, nil, 0)
	assert.Equal(t, int64(2), am.ActiveScans())

	a.End()
	assert.Equal(t, ScanScanning, b.State())
	assert.Equal(t, int64(1), am.ActiveScans())
	b.End()
	assert.Equal(t, int64(0), am.ActiveScans())
}

func TestMutationsRejected(t *testing.T) {
	am := New(fakeSource{})
	ops := map[string]error{
		"tuple_insert": am.TupleInsert(1, &Slot{}),
		"multi_insert": am.MultiInsert(1, nil),
		"tuple_update": am.TupleUpdate(1, TID{}, &Slot{}),
		"tuple_delete": am.TupleDelete(1, TID{}),
		"tuple_lock":   am.TupleLock(1, TID{}),
		"truncate":     am.Truncate(1),
		"vacuum":       am.Vacuum(1),
	}
	for name, err := range ops {
		require.Error(t, err, name)
		assert.True(t, domain.IsUnsupportedOperation(err), name)
		assert.Contains(t, err.Error(), name)
	}
}

func TestReadOnlyHooks(t *testing.T) {
	am := New(fakeSource{})

	assert.Equal(t, "videx", am.Name())
	assert.Equal(t, "virtual", am.SlotKind())
	assert.Equal(t, uint64(0), am.RelationSize(1))
	assert.False(t, am.NeedsToastTable(1))
	assert.Equal(t, domain.InvalidOid, am.ToastAccessMethod(1))
	assert.Equal(t, domain.Horizons{}, am.SetNewFileLocator(1))
	assert.Equal(t, float64(0), am.IndexBuildRangeScan(1, 2, 0, 100))
	assert.NoError(t, am.IndexValidateScan(1, 2, nil))

	scan := am.BeginScan(1, nil, nil, 0)
	defer scan.End()
	assert.False(t, am.ScanAnalyzeNextBlock(scan))
	ok, live, dead := am.ScanAnalyzeNextTuple(scan, 0, &Slot{})
	assert.False(t, ok)
	assert.Zero(t, live)
	assert.Zero(t, dead)

	fetch := am.IndexFetchBegin(1)
	fetch.Reset()
	found, again, allDead := fetch.FetchTuple(TID{Block: 1, Offset: 1}, nil, &Slot{})
	assert.False(t, found)
	assert.False(t, again)
	assert.False(t, allDead)
	fetch.End()
	fetch.End()
}

func TestCapabilities(t *testing.T) {
	caps := New(fakeSource{}).Capabilities()

	assert.True(t, caps.Has(OpScan))
	assert.True(t, caps.Has(OpEstimateSize))
	assert.False(t, caps.Has(OpParallelScan))
	assert.False(t, caps.Has(OpToast))
	for _, op := range MutatingOperations.Operations() {
		assert.False(t, caps.Has(op), op.String())
	}
	assert.Equal(t, "scan,index_fetch,index_build,index_validate,analyze,estimate_size,relation_size", caps.String())
}

func TestCapabilitiesGateOperations(t *testing.T) {
	src := fakeSource{1: {Relation: testRelation(domain.RelationStats{Pages: 10, Tuples: 100}, false)}}

	var full TableAM = New(src)
	assert.True(t, Supports(full, OpEstimateSize))
	assert.False(t, IsWritable(full))
	_, err := full.EstimateSize(context.Background(), 1, nil)
	require.NoError(t, err)

	var limited TableAM = New(src, WithCapabilities(VirtualCapabilities()&^Capabilities(OpEstimateSize|OpIndexValidate)))
	assert.False(t, Supports(limited, OpEstimateSize))
	_, err = limited.EstimateSize(context.Background(), 1, nil)
	require.Error(t, err)
	assert.True(t, domain.IsUnsupportedOperation(err))
	assert.Contains(t, err.Error(), "estimate_size")
	assert.True(t, domain.IsUnsupportedOperation(limited.IndexValidateScan(1, 2, nil)))

	// 写操作无法通过选项打开
	widened := New(src, WithCapabilities(VirtualCapabilities()|MutatingOperations))
	assert.False(t, IsWritable(widened))
	assert.Equal(t, VirtualCapabilities(), widened.Capabilities())
	assert.True(t, domain.IsUnsupportedOperation(widened.TupleInsert(1, &Slot{})))

	assert.False(t, Supports(nil, OpScan))
}

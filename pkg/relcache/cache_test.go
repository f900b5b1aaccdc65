package relcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/catalog/catalogtest"
	"github.com/kasuganosora/videx/pkg/catalog/memory"
	"github.com/kasuganosora/videx/pkg/domain"
)

func seeded(t *testing.T) *memory.Catalog {
	cat, err := memory.New("testdb")
	require.NoError(t, err)
	catalogtest.Seed(t, cat)
	return cat
}

func TestCache_HitAndInvalidate(t *testing.T) {
	ctx := context.Background()
	cat := seeded(t)
	c := New(cat, time.Minute)

	e, err := c.Get(ctx, catalogtest.SrcOid)
	require.NoError(t, err)
	assert.Equal(t, "orders", e.Relation.Name)
	assert.Len(t, e.ColumnStats, 3)

	cs, ok := e.ColumnStat(2)
	require.True(t, ok)
	assert.Equal(t, float32(500), cs.Distinct)

	again, err := c.Get(ctx, catalogtest.SrcOid)
	require.NoError(t, err)
	assert.Same(t, e, again)

	err = domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		return txn.UpdateRelationStats(ctx, catalogtest.SrcOid, domain.RelationStats{Pages: 1}, domain.Horizons{})
	})
	require.NoError(t, err)

	stale, err := c.Get(ctx, catalogtest.SrcOid)
	require.NoError(t, err)
	assert.Equal(t, uint32(1200), stale.Relation.Stats.Pages, "cached until invalidated")

	c.Invalidate(catalogtest.SrcOid)
	fresh, err := c.Get(ctx, catalogtest.SrcOid)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), fresh.Relation.Stats.Pages)

	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(2), st.Misses)
	assert.Equal(t, 1, st.Size)
	assert.InDelta(t, 0.5, st.HitRate, 1e-9)
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := New(seeded(t), time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	first, err := c.Get(ctx, catalogtest.DstOid)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	second, err := c.Get(ctx, catalogtest.DstOid)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int64(2), c.Stats().Misses)
}

func TestCache_NotFound(t *testing.T) {
	c := New(seeded(t), 0)
	_, err := c.Get(context.Background(), 4242)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, 0, c.Stats().Size)
	assert.Equal(t, DefaultTTL, c.Stats().TTL)
}

// gatedReader 在 GetRelation 中等待放行，用来制造与失效并发的加载
type gatedReader struct {
	domain.Reader
	started chan struct{}
	release chan struct{}
}

func (r *gatedReader) GetRelation(ctx context.Context, rel domain.Oid) (*domain.RelationInfo, error) {
	close(r.started)
	<-r.release
	return r.Reader.GetRelation(ctx, rel)
}

func TestCache_InvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	r := &gatedReader{Reader: seeded(t), started: make(chan struct{}), release: make(chan struct{})}
	c := New(r, time.Minute)

	done := make(chan *Entry)
	go func() {
		e, err := c.Get(ctx, catalogtest.SrcOid)
		assert.NoError(t, err)
		done <- e
	}()

	<-r.started
	c.Invalidate(catalogtest.SrcOid)
	close(r.release)

	e := <-done
	require.NotNil(t, e)
	assert.Equal(t, "orders", e.Relation.Name, "the caller still gets its load")
	assert.Equal(t, 0, c.Stats().Size, "a load that raced an invalidation is not cached")
}

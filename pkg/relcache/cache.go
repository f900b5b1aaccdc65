package relcache

import (
	"context"
	"sync"
	"time"

	"github.com/kasuganosora/videx/pkg/domain"
)

// DefaultTTL 默认过期时间
const DefaultTTL = 5 * time.Minute

// Entry 缓存的表元数据
type Entry struct {
	Relation    *domain.RelationInfo
	ColumnStats []domain.ColumnStats
	LoadedAt    time.Time
}

// ColumnStat 按列序号查找列统计（非继承）
func (e *Entry) ColumnStat(attnum domain.AttrNumber) (domain.ColumnStats, bool) {
	for _, cs := range e.ColumnStats {
		if cs.AttNum == attnum && !cs.Inherit {
			return cs, true
		}
	}
	return domain.ColumnStats{}, false
}

type cached struct {
	entry    *Entry
	hitCount int64
}

// Cache 表元数据缓存
// 失效会推进该表的代数，代数变化之前发起的加载结果不会写入缓存
type Cache struct {
	mu     sync.RWMutex
	reader domain.Reader
	ttl    time.Duration
	items  map[domain.Oid]*cached
	gen    map[domain.Oid]uint64
	hits   int64
	misses int64
	now    func() time.Time
}

// New 创建缓存，ttl <= 0 时使用 DefaultTTL
func New(reader domain.Reader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		reader: reader,
		ttl:    ttl,
		items:  make(map[domain.Oid]*cached),
		gen:    make(map[domain.Oid]uint64),
		now:    time.Now,
	}
}

// Get 获取表元数据，未命中或过期时从目录加载
// 返回的 Entry 为共享只读对象
func (c *Cache) Get(ctx context.Context, rel domain.Oid) (*Entry, error) {
	c.mu.Lock()
	if item, ok := c.items[rel]; ok {
		if c.now().Sub(item.entry.LoadedAt) <= c.ttl {
			item.hitCount++
			c.hits++
			c.mu.Unlock()
			return item.entry, nil
		}
		delete(c.items, rel)
	}
	c.misses++
	gen := c.gen[rel]
	c.mu.Unlock()

	entry, err := c.load(ctx, rel)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen[rel] == gen {
		c.items[rel] = &cached{entry: entry}
	}
	c.mu.Unlock()
	return entry, nil
}

func (c *Cache) load(ctx context.Context, rel domain.Oid) (*Entry, error) {
	info, err := c.reader.GetRelation(ctx, rel)
	if err != nil {
		return nil, err
	}
	stats, err := c.reader.GetColumnStats(ctx, rel)
	if err != nil {
		return nil, err
	}
	return &Entry{Relation: info, ColumnStats: stats, LoadedAt: c.now()}, nil
}

// Invalidate 使指定表的缓存失效
func (c *Cache) Invalidate(rel domain.Oid) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, rel)
	c.gen[rel]++
}

// Stats 缓存统计
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:    len(c.items),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
		TTL:     c.ttl,
	}
}

// Stats 缓存统计信息
type Stats struct {
	Size    int
	Hits    int64
	Misses  int64
	HitRate float64
	TTL     time.Duration
}

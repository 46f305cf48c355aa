package fluxseries

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/sep-event-etl/internal/observability"
)

// CachedLoader keeps the most recently used series in memory. Concurrent
// loads of one name share a single read of the file.
type CachedLoader struct {
	inner   Loader
	limit   int
	metrics *observability.Metrics

	mu       sync.Mutex
	order    *list.List // front is most recent; values are *cached
	byName   map[string]*list.Element
	inflight map[string]*pendingLoad
}

type cached struct {
	name   string
	series *Series
}

type pendingLoad struct {
	done   chan struct{}
	series *Series
	err    error
}

// NewCachedLoader wraps inner with an LRU of at most limit series. metrics may be nil.
func NewCachedLoader(inner Loader, limit int, metrics *observability.Metrics) *CachedLoader {
	if limit < 1 {
		limit = 1
	}
	return &CachedLoader{
		inner:    inner,
		limit:    limit,
		metrics:  metrics,
		order:    list.New(),
		byName:   make(map[string]*list.Element),
		inflight: make(map[string]*pendingLoad),
	}
}

func (c *CachedLoader) Load(ctx context.Context, name string) (*Series, error) {
	c.mu.Lock()
	if el, ok := c.byName[name]; ok {
		c.order.MoveToFront(el)
		s := el.Value.(*cached).series
		c.mu.Unlock()
		c.record("hit")
		return s, nil
	}
	if p, ok := c.inflight[name]; ok {
		c.mu.Unlock()
		c.record("hit")
		select {
		case <-p.done:
			return p.series, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := &pendingLoad{done: make(chan struct{})}
	c.inflight[name] = p
	c.mu.Unlock()

	c.record("miss")
	p.series, p.err = c.inner.Load(ctx, name)

	c.mu.Lock()
	delete(c.inflight, name)
	// Empty series are not kept so a file still being written is re-read.
	if p.err == nil && len(p.series.Points) > 0 {
		c.store(name, p.series)
	}
	c.mu.Unlock()
	close(p.done)
	return p.series, p.err
}

// Len returns the number of cached series.
func (c *CachedLoader) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// store inserts s as the most recent entry. c.mu must be held.
func (c *CachedLoader) store(name string, s *Series) {
	if el, ok := c.byName[name]; ok {
		el.Value.(*cached).series = s
		c.order.MoveToFront(el)
		return
	}
	c.byName[name] = c.order.PushFront(&cached{name: name, series: s})
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byName, oldest.Value.(*cached).name)
	}
}

func (c *CachedLoader) record(result string) {
	if c.metrics != nil {
		c.metrics.FluxCache.WithLabelValues(result).Inc()
	}
}

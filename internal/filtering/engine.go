package filtering

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"painel/domain/core"
	"painel/domain/dataset"
	"painel/domain/filter"
)

// DefaultCacheSize bounds the number of memoized views.
const DefaultCacheSize = 128

// Stats reports cache effectiveness.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Engine memoizes Apply by content key. Identical (table, spec) pairs are
// computed once, concurrent identical requests share one computation, and
// the oldest entry is evicted once the cache is full.
type Engine struct {
	capacity int

	mu      sync.Mutex
	entries map[core.Hash]*View
	order   []core.Hash

	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewEngine creates an engine holding at most capacity views.
func NewEngine(capacity int) *Engine {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Engine{
		capacity: capacity,
		entries:  make(map[core.Hash]*View),
	}
}

// Apply returns the cached view for (table, spec) or computes it.
func (e *Engine) Apply(table *dataset.TypedTable, spec filter.Spec) (*View, error) {
	key := filter.CacheKey(table.Fingerprint(), spec)

	e.mu.Lock()
	if v, ok := e.entries[key]; ok {
		e.mu.Unlock()
		e.hits.Add(1)
		return v, nil
	}
	e.mu.Unlock()

	executed := false
	res, err, _ := e.group.Do(key.String(), func() (interface{}, error) {
		executed = true
		e.misses.Add(1)
		v, err := Apply(table, spec)
		if err != nil {
			return nil, err
		}
		e.store(key, v)
		return v, nil
	})
	if !executed {
		e.hits.Add(1)
	}
	if err != nil {
		return nil, err
	}
	return res.(*View), nil
}

func (e *Engine) store(key core.Hash, v *View) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.entries[key]; ok {
		return
	}
	for len(e.order) >= e.capacity {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.entries, oldest)
	}
	e.entries[key] = v
	e.order = append(e.order, key)
}

// Pair holds the base and comparison views of one table.
type Pair struct {
	Base       *View
	Comparison *View
}

// ApplyPair computes the base and comparison views concurrently. The two
// specs are independent; neither sees the other's state.
func (e *Engine) ApplyPair(ctx context.Context, table *dataset.TypedTable, base, comparison filter.Spec) (*Pair, error) {
	g, ctx := errgroup.WithContext(ctx)
	pair := &Pair{}

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := e.Apply(table, base)
		pair.Base = v
		return err
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := e.Apply(table, comparison)
		pair.Comparison = v
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pair, nil
}

// Stats returns the hit and miss counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	n := len(e.entries)
	e.mu.Unlock()
	return Stats{Hits: e.hits.Load(), Misses: e.misses.Load(), Entries: n}
}

// Purge drops every cached view.
func (e *Engine) Purge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[core.Hash]*View)
	e.order = nil
}

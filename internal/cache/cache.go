// Package cache holds the session-wide item cache: one entry per item
// id, at most one in-flight fetch per id, stale-on-error retention,
// and sequence-numbered completions so an old response can never
// overwrite a newer one.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lurk-reader/lurk/internal/api"
)

// State is an entry's load state.
type State int

const (
	StateNotFetched State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotFetched:
		return "not-fetched"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Snapshot is the externally visible state of one entry. Reads are
// always immediate; no method of Cache blocks on the network.
//
// A Loaded snapshot may still carry Err: the last refresh failed and
// Item is the retained stale value.
type Snapshot struct {
	ID      int
	State   State
	Item    *api.Item
	Err     error
	Pending bool // a fetch is in flight (initial load or refresh)
}

// Update is a completion notification delivered to watchers.
type Update struct {
	Snapshot
}

// Fetcher fetches one item from the remote source.
type Fetcher interface {
	FetchItem(ctx context.Context, id int) (*api.Item, error)
}

// BatchFetcher is implemented by fetchers that can retrieve several
// items in one bounded round.
type BatchFetcher interface {
	BatchFetchItems(ctx context.Context, ids []int) ([]api.BatchResult, error)
}

type entry struct {
	state   State
	item    *api.Item
	err     error
	issued  uint64 // sequence of the newest fetch started
	applied uint64 // sequence of the newest result applied
}

// Cache is the process-wide item cache. Created at app start, torn
// down at app exit; all access goes through its lock. Fetch results
// are written through to the Store so item bodies survive as long as
// the session does.
type Cache struct {
	mu      sync.Mutex
	entries map[int]*entry

	ctx     context.Context
	fetcher Fetcher
	store   *Store
	log     *zap.Logger

	watchMu  sync.Mutex
	watchers map[int]func(Update)
	nextWID  int
}

// New creates a cache. Fetches run on goroutines tied to ctx, not to
// any one caller: navigating away from a view must not abort a fetch
// whose result is still useful later.
func New(ctx context.Context, fetcher Fetcher, store *Store, log *zap.Logger) *Cache {
	return &Cache{
		entries:  make(map[int]*entry),
		ctx:      ctx,
		fetcher:  fetcher,
		store:    store,
		log:      log,
		watchers: make(map[int]func(Update)),
	}
}

// Watch registers fn to receive completion updates. fn is called from
// fetch goroutines; the returned cancel removes the registration.
func (c *Cache) Watch(fn func(Update)) (cancel func()) {
	c.watchMu.Lock()
	id := c.nextWID
	c.nextWID++
	c.watchers[id] = fn
	c.watchMu.Unlock()
	return func() {
		c.watchMu.Lock()
		delete(c.watchers, id)
		c.watchMu.Unlock()
	}
}

// Peek returns the current snapshot without side effects.
func (c *Cache) Peek(id int) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Snapshot{ID: id, State: StateNotFetched}
	}
	return c.snapshot(id, e)
}

// GetOrFetch returns the current snapshot and, if the entry has never
// loaded and nothing is in flight, starts the fetch. Concurrent
// callers for the same id share one underlying request. A not-found
// failure is terminal here; only Refresh re-requests such an id.
func (c *Cache) GetOrFetch(id int) Snapshot {
	c.mu.Lock()
	e := c.ensure(id)

	if e.state == StateNotFetched && c.store != nil {
		if item, err := c.store.GetItem(id); err == nil && item != nil {
			e.state = StateLoaded
			e.item = item
		}
	}

	if e.item == nil && e.issued == e.applied && (e.err == nil || api.Retryable(e.err)) {
		c.start(id, e)
	}
	snap := c.snapshot(id, e)
	c.mu.Unlock()
	return snap
}

// Prefetch warms the entries for ids that have never loaded and have
// nothing in flight. With a BatchFetcher the misses go out as one
// bounded batch carrying its own sequence numbers; otherwise each id
// gets an individual fetch.
func (c *Cache) Prefetch(ids []int) {
	bf, ok := c.fetcher.(BatchFetcher)
	if !ok {
		for _, id := range ids {
			c.GetOrFetch(id)
		}
		return
	}

	c.mu.Lock()
	var miss []int
	var seqs []uint64
	for _, id := range ids {
		e := c.ensure(id)
		if e.state == StateNotFetched && c.store != nil {
			if item, err := c.store.GetItem(id); err == nil && item != nil {
				e.state = StateLoaded
				e.item = item
				continue
			}
		}
		if e.item != nil || e.issued > e.applied {
			continue
		}
		if e.err != nil && !api.Retryable(e.err) {
			continue
		}
		e.issued++
		if e.state == StateNotFetched {
			e.state = StateLoading
		}
		miss = append(miss, id)
		seqs = append(seqs, e.issued)
	}
	c.mu.Unlock()

	if len(miss) == 0 {
		return
	}
	go func() {
		results, err := bf.BatchFetchItems(c.ctx, miss)
		if err != nil {
			for i, id := range miss {
				c.complete(id, seqs[i], nil, err)
			}
			return
		}
		for i, r := range results {
			c.complete(r.ID, seqs[i], r.Item, r.Err)
		}
	}()
}

// Refresh forces a new fetch regardless of the entry's state. On
// success the entry is replaced atomically; on failure the stale item
// stays (an entry never reverts from Loaded).
func (c *Cache) Refresh(id int) Snapshot {
	c.mu.Lock()
	e := c.ensure(id)
	c.start(id, e)
	snap := c.snapshot(id, e)
	c.mu.Unlock()
	return snap
}

// RankedIDs returns the stored ranked-id list for a category and
// whether it is within ttl. Misses return (nil, false).
func (c *Cache) RankedIDs(cat api.Category, ttl time.Duration) ([]int, bool) {
	if c.store == nil {
		return nil, false
	}
	ids, fresh, err := c.store.GetRankedIDs(cat, ttl)
	if err != nil {
		c.log.Warn("ranked list read failed", zap.String("category", string(cat)), zap.Error(err))
		return nil, false
	}
	return ids, fresh
}

// PutRankedIDs stores a freshly fetched ranked-id list.
func (c *Cache) PutRankedIDs(cat api.Category, ids []int) {
	if c.store == nil {
		return
	}
	if err := c.store.PutRankedIDs(cat, ids); err != nil {
		c.log.Warn("ranked list write failed", zap.String("category", string(cat)), zap.Error(err))
	}
}

func (c *Cache) ensure(id int) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}
	return e
}

// start launches a fetch under c.mu. Each launch gets the next
// sequence number; complete applies results only in sequence order.
func (c *Cache) start(id int, e *entry) {
	e.issued++
	if e.state == StateNotFetched {
		e.state = StateLoading
	}
	seq := e.issued

	go func() {
		item, err := c.fetcher.FetchItem(c.ctx, id)
		c.complete(id, seq, item, err)
	}()
}

func (c *Cache) complete(id int, seq uint64, item *api.Item, err error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || seq <= e.applied {
		// A newer result has already been applied.
		c.mu.Unlock()
		return
	}
	e.applied = seq

	if err == nil {
		e.item = item
		e.err = nil
		e.state = StateLoaded
		if c.store != nil {
			if serr := c.store.PutItem(item); serr != nil {
				c.log.Warn("item write-through failed", zap.Int("id", id), zap.Error(serr))
			}
		}
	} else {
		e.err = err
		if e.item == nil {
			e.state = StateFailed
		}
		// Loaded stays Loaded: stale-on-error.
	}

	snap := c.snapshot(id, e)
	c.mu.Unlock()

	c.notify(Update{Snapshot: snap})
}

func (c *Cache) snapshot(id int, e *entry) Snapshot {
	return Snapshot{
		ID:      id,
		State:   e.state,
		Item:    e.item,
		Err:     e.err,
		Pending: e.issued > e.applied,
	}
}

func (c *Cache) notify(u Update) {
	c.watchMu.Lock()
	fns := make([]func(Update), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.watchMu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

// Package pager maintains the materialized window over a ranked story
// list: ranked ids come from the remote list endpoint (cached with a
// TTL, separately from item bodies), items come through the cache.
// Like the tree, a List has a single owner; completions arrive via
// Apply.
package pager

import (
	"context"
	"time"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/cache"
)

// EntryState is the lifecycle of one window entry.
type EntryState int

const (
	EntryQueued EntryState = iota
	EntryLoading
	EntryReady
	EntryFailed
)

func (s EntryState) String() string {
	switch s {
	case EntryQueued:
		return "queued"
	case EntryLoading:
		return "loading"
	case EntryReady:
		return "ready"
	case EntryFailed:
		return "failed"
	}
	return "unknown"
}

// Entry is one materialized story slot.
type Entry struct {
	ID    int
	State EntryState
	Item  *api.Item
	Err   error
}

// IDLister fetches the ranked id list for a category.
type IDLister interface {
	FetchRankedIDs(ctx context.Context, cat api.Category) ([]int, error)
}

// List is the ordered window over one category's ranking.
type List struct {
	category api.Category
	lister   IDLister
	cache    *cache.Cache
	listTTL  time.Duration

	ids     []int
	entries []Entry
}

// New creates an empty list for a category.
func New(cat api.Category, lister IDLister, c *cache.Cache, listTTL time.Duration) *List {
	return &List{category: cat, lister: lister, cache: c, listTTL: listTTL}
}

// Category returns the list's category.
func (l *List) Category() api.Category { return l.category }

// Entries returns the materialized window in ranking order.
func (l *List) Entries() []Entry { return l.entries }

// HasMore reports whether the ranking holds ids past the window.
func (l *List) HasMore() bool { return len(l.entries) < len(l.ids) }

// FetchIDs returns the ranked id list, from the TTL cache when fresh,
// otherwise from the remote. On remote failure a stale cached list is
// returned rather than nothing.
func (l *List) FetchIDs(ctx context.Context, force bool) ([]int, error) {
	if !force {
		if ids, fresh := l.cache.RankedIDs(l.category, l.listTTL); fresh && len(ids) > 0 {
			return ids, nil
		}
	}
	ids, err := l.lister.FetchRankedIDs(ctx, l.category)
	if err != nil {
		if stale, _ := l.cache.RankedIDs(l.category, l.listTTL); len(stale) > 0 {
			return stale, nil
		}
		return nil, err
	}
	l.cache.PutRankedIDs(l.category, ids)
	return ids, nil
}

// SetIDs installs a freshly fetched ranking into an empty list.
// Use Reconcile when a window already exists.
func (l *List) SetIDs(ids []int) {
	l.ids = ids
	l.entries = nil
}

// LoadMore extends the window by up to n entries and drives each new
// entry Queued → Loading via the cache. The uncached ids go out as one
// bounded batch; entries whose items are already cached become Ready
// immediately.
func (l *List) LoadMore(n int) {
	start := len(l.entries)
	end := start + n
	if end > len(l.ids) {
		end = len(l.ids)
	}
	fresh := l.ids[start:end]
	l.cache.Prefetch(fresh)
	for _, id := range fresh {
		l.entries = append(l.entries, Entry{ID: id, State: EntryQueued})
		l.materialize(len(l.entries) - 1)
	}
}

// Retry re-requests a single failed entry. A not-found failure is
// terminal; retrying it is a no-op.
func (l *List) Retry(id int) {
	for i := range l.entries {
		if l.entries[i].ID == id && l.entries[i].State == EntryFailed && api.Retryable(l.entries[i].Err) {
			l.entries[i].State = EntryQueued
			l.cache.Refresh(id)
			l.entries[i].State = EntryLoading
		}
	}
}

// Reconcile applies a re-fetched ranking to an existing window: ids
// still present keep their entry (and cached item — no flicker), new
// ids enter per the new ranking, vanished ids drop from the window.
// Their items stay in the cache. The window keeps its size.
func (l *List) Reconcile(newIDs []int) {
	prev := make(map[int]Entry, len(l.entries))
	for _, e := range l.entries {
		prev[e.ID] = e
	}

	size := len(l.entries)
	if size > len(newIDs) {
		size = len(newIDs)
	}

	l.ids = newIDs
	window := newIDs[:size]
	var fresh []int
	for _, id := range window {
		if _, ok := prev[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	l.cache.Prefetch(fresh)

	l.entries = l.entries[:0]
	for _, id := range window {
		if e, ok := prev[id]; ok {
			l.entries = append(l.entries, e)
			continue
		}
		l.entries = append(l.entries, Entry{ID: id, State: EntryQueued})
		l.materialize(len(l.entries) - 1)
	}
}

// Apply integrates a cache completion into the window. Returns true
// when some entry changed.
func (l *List) Apply(u cache.Update) bool {
	changed := false
	for i := range l.entries {
		if l.entries[i].ID != u.ID {
			continue
		}
		changed = true
		if u.Item != nil {
			l.entries[i].State = EntryReady
			l.entries[i].Item = u.Item
			l.entries[i].Err = u.Err
		} else {
			l.entries[i].State = EntryFailed
			l.entries[i].Err = u.Err
		}
	}
	return changed
}

// materialize reflects the cache snapshot into entry i. Prefetch has
// already launched whatever the id needs.
func (l *List) materialize(i int) {
	snap := l.cache.Peek(l.entries[i].ID)
	switch {
	case snap.Item != nil:
		l.entries[i].State = EntryReady
		l.entries[i].Item = snap.Item
		l.entries[i].Err = snap.Err
	case snap.State == cache.StateFailed:
		l.entries[i].State = EntryFailed
		l.entries[i].Err = snap.Err
	default:
		l.entries[i].State = EntryLoading
	}
}

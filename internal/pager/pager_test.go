package pager_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/cache"
	"github.com/lurk-reader/lurk/internal/pager"
)

// mapFetcher serves item fetches from a map.
type mapFetcher struct {
	mu    sync.Mutex
	items map[int]*api.Item
	errs  map[int]error
}

func newMapFetcher(n int) *mapFetcher {
	f := &mapFetcher{items: make(map[int]*api.Item), errs: make(map[int]error)}
	for id := 1; id <= n; id++ {
		f.items[id] = &api.Item{ID: id, Type: "story", Title: fmt.Sprintf("story %d", id)}
	}
	return f
}

func (f *mapFetcher) FetchItem(ctx context.Context, id int) (*api.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, api.ErrNotFound
}

func (f *mapFetcher) fail(id int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

func (f *mapFetcher) heal(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.errs, id)
}

// stubLister returns a fixed ranking and counts remote calls.
type stubLister struct {
	mu    sync.Mutex
	ids   []int
	err   error
	calls int
}

func (l *stubLister) FetchRankedIDs(ctx context.Context, cat api.Category) ([]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	out := make([]int, len(l.ids))
	copy(out, l.ids)
	return out, nil
}

func (l *stubLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func seq(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func newTestList(t *testing.T, f cache.Fetcher, lister *stubLister, store *cache.Store) (*pager.List, *cache.Cache, chan cache.Update) {
	t.Helper()
	c := cache.New(context.Background(), f, store, zap.NewNop())
	updates := make(chan cache.Update, 256)
	cancel := c.Watch(func(u cache.Update) { updates <- u })
	t.Cleanup(cancel)
	return pager.New(api.CategoryTop, lister, c, time.Hour), c, updates
}

// drain applies completions until the window settles.
func drain(l *pager.List, updates chan cache.Update) {
	for {
		select {
		case u := <-updates:
			l.Apply(u)
		case <-time.After(200 * time.Millisecond):
			return
		}
	}
}

func entryIDs(l *pager.List) []int {
	entries := l.Entries()
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestLoadMore_MaterializesWindowInOrder(t *testing.T) {
	f := newMapFetcher(30)
	lister := &stubLister{ids: seq(1, 30)}
	l, _, updates := newTestList(t, f, lister, nil)

	ids, err := l.FetchIDs(context.Background(), false)
	require.NoError(t, err)
	l.SetIDs(ids)

	l.LoadMore(10)
	entries := l.Entries()
	if len(entries) != 10 {
		t.Fatalf("LoadMore(10) = %d entries, want 10", len(entries))
	}
	for _, e := range entries {
		if e.State != pager.EntryLoading && e.State != pager.EntryReady {
			t.Errorf("entry %d = %v right after LoadMore", e.ID, e.State)
		}
	}

	drain(l, updates)
	if diff := cmp.Diff(seq(1, 10), entryIDs(l)); diff != "" {
		t.Fatalf("window mismatch (-want +got):\n%s", diff)
	}
	for _, e := range l.Entries() {
		if e.State != pager.EntryReady || e.Item == nil {
			t.Errorf("entry %d = %v, want ready", e.ID, e.State)
		}
	}

	if !l.HasMore() {
		t.Error("HasMore() = false with 20 ids left")
	}
	l.LoadMore(30)
	drain(l, updates)
	if len(l.Entries()) != 30 || l.HasMore() {
		t.Errorf("window = %d entries, HasMore %v; want 30, false", len(l.Entries()), l.HasMore())
	}
}

func TestReconcile_KeepsSurvivorsDropsVanished(t *testing.T) {
	f := newMapFetcher(40)
	lister := &stubLister{ids: seq(1, 30)}
	l, c, updates := newTestList(t, f, lister, nil)

	ids, err := l.FetchIDs(context.Background(), false)
	require.NoError(t, err)
	l.SetIDs(ids)
	l.LoadMore(10)
	drain(l, updates)

	// Id 5 drops out of the ranking; 31 enters at the top.
	newIDs := []int{31, 1, 2, 3, 4, 6, 7, 8, 9, 10, 11}
	newIDs = append(newIDs, seq(12, 30)...)
	l.Reconcile(newIDs)

	want := []int{31, 1, 2, 3, 4, 6, 7, 8, 9, 10}
	if diff := cmp.Diff(want, entryIDs(l)); diff != "" {
		t.Fatalf("reconciled window mismatch (-want +got):\n%s", diff)
	}

	// Survivors keep their items: no flicker back through Loading.
	for _, e := range l.Entries() {
		if e.ID == 31 {
			continue
		}
		if e.State != pager.EntryReady || e.Item == nil {
			t.Errorf("survivor %d = %v, want still ready", e.ID, e.State)
		}
	}

	// The dropped id stays retrievable from the cache.
	if snap := c.Peek(5); snap.State != cache.StateLoaded || snap.Item == nil {
		t.Errorf("Peek(5) = %+v, want item retained after drop", snap)
	}

	drain(l, updates)
	for _, e := range l.Entries() {
		if e.State != pager.EntryReady {
			t.Errorf("entry %d = %v after drain, want ready", e.ID, e.State)
		}
	}
}

func TestFailedEntry_IsIndividuallyRetryable(t *testing.T) {
	f := newMapFetcher(10)
	f.fail(7, &api.NetworkError{URL: "item/7", Err: fmt.Errorf("timeout")})
	lister := &stubLister{ids: seq(1, 10)}
	l, _, updates := newTestList(t, f, lister, nil)

	ids, err := l.FetchIDs(context.Background(), false)
	require.NoError(t, err)
	l.SetIDs(ids)
	l.LoadMore(10)
	drain(l, updates)

	var failed *pager.Entry
	for i := range l.Entries() {
		if l.Entries()[i].ID == 7 {
			failed = &l.Entries()[i]
		}
	}
	require.NotNil(t, failed)
	if failed.State != pager.EntryFailed || failed.Err == nil {
		t.Fatalf("entry 7 = %+v, want failed", failed)
	}

	f.heal(7)
	l.Retry(7)
	drain(l, updates)

	for _, e := range l.Entries() {
		if e.State != pager.EntryReady {
			t.Errorf("entry %d = %v after retry, want ready", e.ID, e.State)
		}
	}
}

func TestRetry_NotFoundEntryIsTerminal(t *testing.T) {
	f := newMapFetcher(10)
	f.fail(7, api.ErrNotFound)
	lister := &stubLister{ids: seq(1, 10)}
	l, c, updates := newTestList(t, f, lister, nil)

	ids, err := l.FetchIDs(context.Background(), false)
	require.NoError(t, err)
	l.SetIDs(ids)
	l.LoadMore(10)
	drain(l, updates)

	var gone pager.Entry
	for _, e := range l.Entries() {
		if e.ID == 7 {
			gone = e
		}
	}
	if gone.State != pager.EntryFailed || !errors.Is(gone.Err, api.ErrNotFound) {
		t.Fatalf("entry 7 = %+v, want failed with ErrNotFound", gone)
	}

	// Even with the remote healed, retrying a gone id is a no-op.
	f.heal(7)
	l.Retry(7)
	if snap := c.Peek(7); snap.Pending {
		t.Error("Retry(7) launched a fetch for a not-found id")
	}
	drain(l, updates)
	for _, e := range l.Entries() {
		if e.ID == 7 && e.State != pager.EntryFailed {
			t.Errorf("entry 7 = %v after retry, want still failed", e.State)
		}
	}
}

// batchFetcher wraps mapFetcher with a batch entry point and records
// every batch it receives.
type batchFetcher struct {
	*mapFetcher
	batchMu sync.Mutex
	batches [][]int
}

func (f *batchFetcher) BatchFetchItems(ctx context.Context, ids []int) ([]api.BatchResult, error) {
	f.batchMu.Lock()
	f.batches = append(f.batches, append([]int(nil), ids...))
	f.batchMu.Unlock()
	out := make([]api.BatchResult, len(ids))
	for i, id := range ids {
		it, err := f.mapFetcher.FetchItem(ctx, id)
		out[i] = api.BatchResult{ID: id, Item: it, Err: err}
	}
	return out, nil
}

func (f *batchFetcher) batchCount() int {
	f.batchMu.Lock()
	defer f.batchMu.Unlock()
	return len(f.batches)
}

func TestLoadMore_BatchesWindowFetch(t *testing.T) {
	f := &batchFetcher{mapFetcher: newMapFetcher(30)}
	lister := &stubLister{ids: seq(1, 30)}
	l, _, updates := newTestList(t, f, lister, nil)

	ids, err := l.FetchIDs(context.Background(), false)
	require.NoError(t, err)
	l.SetIDs(ids)
	l.LoadMore(10)
	drain(l, updates)

	if got := f.batchCount(); got != 1 {
		t.Fatalf("batch calls = %d for one window, want 1", got)
	}
	f.batchMu.Lock()
	first := f.batches[0]
	f.batchMu.Unlock()
	if diff := cmp.Diff(seq(1, 10), first); diff != "" {
		t.Errorf("batched ids mismatch (-want +got):\n%s", diff)
	}
	for _, e := range l.Entries() {
		if e.State != pager.EntryReady || e.Item == nil {
			t.Errorf("entry %d = %v, want ready", e.ID, e.State)
		}
	}
}

func TestFetchIDs_UsesFreshTTLCache(t *testing.T) {
	store, err := cache.OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := newMapFetcher(5)
	lister := &stubLister{ids: seq(1, 5)}
	l, _, _ := newTestList(t, f, lister, store)

	ctx := context.Background()
	_, err = l.FetchIDs(ctx, false)
	require.NoError(t, err)
	if got := lister.callCount(); got != 1 {
		t.Fatalf("lister calls = %d, want 1", got)
	}

	// Within TTL the stored ranking is reused.
	_, err = l.FetchIDs(ctx, false)
	require.NoError(t, err)
	if got := lister.callCount(); got != 1 {
		t.Errorf("lister calls = %d after cached fetch, want 1", got)
	}

	// Forced refresh goes back to the remote.
	_, err = l.FetchIDs(ctx, true)
	require.NoError(t, err)
	if got := lister.callCount(); got != 2 {
		t.Errorf("lister calls = %d after forced fetch, want 2", got)
	}

	// Remote failure falls back to the stale stored ranking.
	lister.mu.Lock()
	lister.err = fmt.Errorf("down")
	lister.mu.Unlock()
	ids, err := l.FetchIDs(ctx, true)
	require.NoError(t, err)
	if diff := cmp.Diff(seq(1, 5), ids); diff != "" {
		t.Errorf("stale fallback mismatch (-want +got):\n%s", diff)
	}
}

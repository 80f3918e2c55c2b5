package storyview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/cache"
	"github.com/lurk-reader/lurk/internal/config"
	"github.com/lurk-reader/lurk/internal/ui/messages"
)

type mapFetcher struct {
	mu    sync.Mutex
	items map[int]*api.Item
}

func (f *mapFetcher) FetchItem(ctx context.Context, id int) (*api.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, api.ErrNotFound
}

func testStory(id int, kids ...int) *api.Item {
	it := &api.Item{ID: id, Type: "story", By: "op", Title: "a story", Time: time.Now().Unix()}
	b, _ := json.Marshal(kids)
	it.RawKids = json.RawMessage(b)
	return it
}

func testComment(id int, kids ...int) *api.Item {
	it := &api.Item{ID: id, Type: "comment", By: fmt.Sprintf("user%d", id), Text: "some text", Time: time.Now().Unix()}
	if len(kids) > 0 {
		b, _ := json.Marshal(kids)
		it.RawKids = json.RawMessage(b)
	}
	return it
}

func newTestView(t *testing.T, f *mapFetcher, storyID int, cfg config.Config) (Model, chan cache.Update) {
	t.Helper()
	c := cache.New(context.Background(), f, nil, zap.NewNop())
	updates := make(chan cache.Update, 64)
	cancel := c.Watch(func(u cache.Update) { updates <- u })
	t.Cleanup(cancel)

	m := New(storyID, cfg, c)
	m.SetSize(80, 40)
	return m, updates
}

// drainView feeds completions into the model until it settles.
func drainView(m Model, updates chan cache.Update) Model {
	for {
		select {
		case u := <-updates:
			m, _ = m.Update(messages.CacheUpdateMsg{Update: u})
		case <-time.After(200 * time.Millisecond):
			return m
		}
	}
}

func TestView_NotFoundCommentHasNoRetryAffordance(t *testing.T) {
	// Comment 2 is gone from the API; 3 loads normally.
	f := &mapFetcher{items: map[int]*api.Item{
		1: testStory(1, 2, 3),
		3: testComment(3),
	}}
	m, updates := newTestView(t, f, 1, config.Default())
	m = drainView(m, updates)

	out := m.View()
	if strings.Contains(out, "r to retry") {
		t.Errorf("view offers retry for a gone comment:\n%s", out)
	}
	if !strings.Contains(out, "[deleted]") {
		t.Errorf("view missing placeholder for a gone comment:\n%s", out)
	}
	if !strings.Contains(out, "user3") {
		t.Errorf("view missing the loaded sibling:\n%s", out)
	}
}

func TestView_CollapsedUnfetchedShowsCollapsedMarker(t *testing.T) {
	f := &mapFetcher{items: map[int]*api.Item{
		1: testStory(1, 2),
		2: testComment(2, 3),
		3: testComment(3),
	}}
	cfg := config.Default()
	cfg.AutoExpandDepth = 0
	m, updates := newTestView(t, f, 1, cfg)
	m = drainView(m, updates)

	// Collapse id 3 before anything fetches it, then expand its parent:
	// the node becomes visible but its fetch stays suppressed.
	m.tree.Collapse(3)
	m.tree.Expand(2)
	m = drainView(m, updates)
	m.rebuild()

	out := m.View()
	if strings.Contains(out, "[loading...]") {
		t.Errorf("view claims a suppressed fetch is loading:\n%s", out)
	}
	if !strings.Contains(out, "[collapsed]") {
		t.Errorf("view missing collapsed marker:\n%s", out)
	}
}

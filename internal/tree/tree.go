// Package tree builds the comment tree for one open story. Nodes are
// id-indexed and resolve their items through the cache; the tree never
// owns item data. All methods are meant for a single owner (the UI
// update loop); completions arrive via Apply.
package tree

import (
	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/cache"
)

// node is the tree's per-id record: position only, no item data.
type node struct {
	id       int
	parent   int
	depth    int // -1 for the story root, 0 for top-level comments
	expanded bool
}

// NodeView is one entry of the rendered, collapse-filtered sequence.
type NodeView struct {
	ID        int
	Depth     int
	State     cache.State
	Item      *api.Item
	Err       error
	Pending   bool
	Collapsed bool

	// Descendants counts comments under this node. When Exact is
	// false parts of the subtree are unloaded and the count means
	// "at least".
	Descendants int
	Exact       bool

	// Unexpanded means the item is loaded and has replies the tree
	// has not materialized yet (past the auto-expand depth).
	Unexpanded bool
}

// Tree is the comment tree for the currently open story.
type Tree struct {
	storyID   int
	cache     *cache.Cache
	collapse  *CollapseSet
	autoDepth int
	nodes     map[int]*node
	closed    bool
}

// Open roots a tree at storyID and starts loading it. Nodes within
// autoDepth of the root expand (and fetch) automatically as their
// items arrive; deeper subtrees wait for an explicit Expand.
func Open(storyID int, c *cache.Cache, autoDepth int) *Tree {
	t := &Tree{
		storyID:   storyID,
		cache:     c,
		collapse:  NewCollapseSet(),
		autoDepth: autoDepth,
		nodes:     make(map[int]*node),
	}
	root := &node{id: storyID, depth: -1}
	t.nodes[storyID] = root

	snap := c.GetOrFetch(storyID)
	if snap.Item != nil {
		t.materialize(root, snap.Item)
	}
	return t
}

// StoryID returns the id the tree is rooted at.
func (t *Tree) StoryID() int { return t.storyID }

// Root returns the story's current cache snapshot.
func (t *Tree) Root() cache.Snapshot {
	return t.cache.Peek(t.storyID)
}

// Close marks the tree dead; later Apply calls are ignored.
func (t *Tree) Close() { t.closed = true }

// Apply integrates a cache completion. Returns true when the update
// belongs to this tree and the view should be rebuilt. Updates for
// unknown ids or a closed tree are dropped (the fetch itself was not
// wasted; the cache keeps the result).
func (t *Tree) Apply(u cache.Update) bool {
	if t.closed {
		return false
	}
	n, ok := t.nodes[u.ID]
	if !ok {
		return false
	}
	if u.State == cache.StateLoaded && u.Item != nil {
		if (n.expanded || n.depth < t.autoDepth) && t.fetchAllowed(n) {
			t.materialize(n, u.Item)
		}
	}
	return true
}

// Expand materializes a node's children, fetching every child id not
// yet fetched. Children under a collapsed id are never auto-fetched.
// On a node whose own item is missing or failed, Expand (re)requests
// the item itself; Retry is this same path.
func (t *Tree) Expand(id int) {
	if t.closed {
		return
	}
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	n.expanded = true
	snap := t.cache.Peek(id)
	if snap.Item == nil {
		if !snap.Pending {
			t.cache.GetOrFetch(id)
		}
		return
	}
	t.materialize(n, snap.Item)
}

// Retry re-enters Expand for a failed node. A not-found failure is
// terminal: the id is gone, so retrying is a no-op.
func (t *Tree) Retry(id int) {
	if snap := t.cache.Peek(id); snap.State == cache.StateFailed && !api.Retryable(snap.Err) {
		return
	}
	t.Expand(id)
}

// Refresh re-fetches the story root. Collapse state and already-loaded
// subtrees are untouched; new child ids materialize when the refreshed
// root arrives.
func (t *Tree) Refresh() {
	if t.closed {
		return
	}
	t.cache.Refresh(t.storyID)
}

// Collapse hides the subtree under id.
func (t *Tree) Collapse(id int) { t.collapse.Set(id, true) }

// ExpandUI un-collapses id and triggers the fetches Expand implies.
func (t *Tree) ExpandUI(id int) {
	t.collapse.Set(id, false)
	t.Expand(id)
}

// ToggleCollapse flips id's collapsed state and returns the new value.
func (t *Tree) ToggleCollapse(id int) bool {
	if t.collapse.IsCollapsed(id) {
		t.ExpandUI(id)
		return false
	}
	t.Collapse(id)
	return true
}

// IsCollapsed reports whether id itself is collapsed.
func (t *Tree) IsCollapsed(id int) bool { return t.collapse.IsCollapsed(id) }

// IsVisible reports whether id would appear in the rendered sequence:
// false iff some proper ancestor is collapsed. The root is always
// visible; unknown ids are not.
func (t *Tree) IsVisible(id int) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	for n.depth > -1 {
		parent := t.nodes[n.parent]
		if parent == nil {
			break
		}
		if t.collapse.IsCollapsed(parent.id) {
			return false
		}
		n = parent
	}
	return true
}

// Visible returns the pre-order, collapse-filtered node sequence for
// rendering. Collapsed nodes appear themselves; their subtrees do not.
func (t *Tree) Visible() []NodeView {
	root := t.cache.Peek(t.storyID)
	if root.Item == nil {
		return nil
	}
	var out []NodeView
	for _, kid := range children(root.Item) {
		if _, ok := t.nodes[kid]; ok {
			t.visit(kid, 0, &out)
		}
	}
	return out
}

// children returns an item's child ids in display order: poll options
// first, then comments.
func children(it *api.Item) []int {
	parts := it.Parts()
	kids := it.Kids()
	if len(parts) == 0 {
		return kids
	}
	out := make([]int, 0, len(parts)+len(kids))
	out = append(out, parts...)
	return append(out, kids...)
}

// visit appends id's view and recurses into registered children.
// Returns (descendant count, exact).
func (t *Tree) visit(id, depth int, out *[]NodeView) (int, bool) {
	n := t.nodes[id]
	snap := t.cache.Peek(id)
	idx := len(*out)
	*out = append(*out, NodeView{
		ID:        id,
		Depth:     depth,
		State:     snap.State,
		Item:      snap.Item,
		Err:       snap.Err,
		Pending:   snap.Pending,
		Collapsed: t.collapse.IsCollapsed(id),
	})

	if (*out)[idx].Collapsed {
		count, exact := t.descendants(id)
		(*out)[idx].Descendants = count
		(*out)[idx].Exact = exact
		return count, exact
	}

	if snap.Item == nil {
		return 0, false
	}

	count := 0
	exact := true
	kids := children(snap.Item)
	for _, kid := range kids {
		if _, ok := t.nodes[kid]; ok {
			kc, ke := t.visit(kid, depth+1, out)
			count += 1 + kc
			exact = exact && ke
		} else {
			kc, ke := t.countSubtree(kid)
			count += kc
			exact = exact && ke
		}
	}
	(*out)[idx].Descendants = count
	(*out)[idx].Exact = exact
	(*out)[idx].Unexpanded = len(kids) > 0 && !n.expanded
	return count, exact
}

// descendants counts comments under id from whatever is loaded.
func (t *Tree) descendants(id int) (int, bool) {
	snap := t.cache.Peek(id)
	if snap.Item == nil {
		return 0, false
	}
	count := 0
	exact := true
	for _, kid := range children(snap.Item) {
		kc, ke := t.countSubtree(kid)
		count += kc
		exact = exact && ke
	}
	return count, exact
}

// countSubtree counts kid and everything under it. An unloaded kid
// counts as one with exact=false: the real subtree is at least that.
func (t *Tree) countSubtree(id int) (int, bool) {
	snap := t.cache.Peek(id)
	if snap.Item == nil {
		return 1, false
	}
	count := 1
	exact := true
	for _, kid := range children(snap.Item) {
		kc, ke := t.countSubtree(kid)
		count += kc
		exact = exact && ke
	}
	return count, exact
}

// materialize registers item's children as nodes and fetches the ones
// not yet fetched, skipping anything under a collapsed id. Loaded
// children inside the auto-expand depth materialize recursively.
func (t *Tree) materialize(n *node, item *api.Item) {
	n.expanded = true
	kids := children(item)
	for _, kid := range kids {
		if _, ok := t.nodes[kid]; !ok {
			t.nodes[kid] = &node{id: kid, parent: n.id, depth: n.depth + 1}
		}
	}
	if !t.fetchAllowed(n) {
		return
	}
	for _, kid := range kids {
		if t.collapse.IsCollapsed(kid) {
			continue
		}
		kn := t.nodes[kid]
		snap := t.cache.Peek(kid)
		switch {
		case snap.State == cache.StateNotFetched:
			t.cache.GetOrFetch(kid)
		case snap.Item != nil && kn.depth < t.autoDepth && !kn.expanded:
			t.materialize(kn, snap.Item)
		}
	}
}

// fetchAllowed reports whether n and its ancestors are all uncollapsed.
func (t *Tree) fetchAllowed(n *node) bool {
	for n != nil {
		if t.collapse.IsCollapsed(n.id) {
			return false
		}
		if n.depth == -1 {
			break
		}
		n = t.nodes[n.parent]
	}
	return true
}

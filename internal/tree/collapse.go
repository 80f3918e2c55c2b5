package tree

// CollapseSet records which node ids the user has collapsed. It is an
// overlay keyed on stable ids, separate from load state, so a data
// refresh cannot reset it. One set exists per open story.
type CollapseSet struct {
	collapsed map[int]struct{}
}

// NewCollapseSet returns an empty set.
func NewCollapseSet() *CollapseSet {
	return &CollapseSet{collapsed: make(map[int]struct{})}
}

// Set marks id collapsed or expanded. Collapsing an id whose subtree
// was never fetched is legal; the tree skips fetching under it.
func (s *CollapseSet) Set(id int, collapsed bool) {
	if collapsed {
		s.collapsed[id] = struct{}{}
	} else {
		delete(s.collapsed, id)
	}
}

// IsCollapsed reports whether id is collapsed.
func (s *CollapseSet) IsCollapsed(id int) bool {
	_, ok := s.collapsed[id]
	return ok
}

// Len returns the number of collapsed ids.
func (s *CollapseSet) Len() int {
	return len(s.collapsed)
}

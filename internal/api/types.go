package api

import (
	"encoding/json"
)

// Category is one of the ranked story lists HN exposes.
type Category string

const (
	CategoryTop  Category = "top"
	CategoryNew  Category = "new"
	CategoryBest Category = "best"
	CategoryAsk  Category = "ask"
	CategoryShow Category = "show"
	CategoryJobs Category = "jobs"
)

// Categories lists every category in tab order.
var Categories = []Category{
	CategoryTop, CategoryNew, CategoryBest, CategoryAsk, CategoryShow, CategoryJobs,
}

// ParseCategory maps a name like "ask" to its Category. Unknown names
// fall back to CategoryTop.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryTop
}

// Item is one HN record: story, comment, job, poll, or pollopt.
// Immutable once fetched except for live fields (score, descendants,
// kids), which a refresh may update.
type Item struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Text        string `json:"text"`
	Parent      int    `json:"parent"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
	Poll        int    `json:"poll"`

	// Kids and poll parts arrive as JSON int arrays; kept raw and
	// parsed lazily so cache round-trips stay cheap.
	RawKids  json.RawMessage `json:"kids"`
	RawParts json.RawMessage `json:"parts"`

	kids  []int
	parts []int
}

// Kids returns the child item ids in display order.
func (it *Item) Kids() []int {
	if it.kids != nil {
		return it.kids
	}
	if len(it.RawKids) == 0 {
		return nil
	}
	_ = json.Unmarshal(it.RawKids, &it.kids)
	return it.kids
}

// Parts returns the poll option ids.
func (it *Item) Parts() []int {
	if it.parts != nil {
		return it.parts
	}
	if len(it.RawParts) == 0 {
		return nil
	}
	_ = json.Unmarshal(it.RawParts, &it.parts)
	return it.parts
}

// KidsJSON returns the raw kids array for cache storage.
func (it *Item) KidsJSON() string {
	if len(it.RawKids) == 0 {
		return "[]"
	}
	return string(it.RawKids)
}

// Placeholder reports whether the item should render as a positional
// placeholder with no author or text.
func (it *Item) Placeholder() bool {
	return it.Deleted || it.Dead
}

// IsStory reports whether the item can root a comment tree.
func (it *Item) IsStory() bool {
	switch it.Type {
	case "story", "job", "poll":
		return true
	}
	return false
}

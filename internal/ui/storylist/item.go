package storylist

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/pager"
	"github.com/lurk-reader/lurk/internal/render"
)

// StoryItem wraps a pager entry for the bubbles list.
type StoryItem struct {
	Entry pager.Entry
	Index int
}

func (s StoryItem) Title() string {
	switch s.Entry.State {
	case pager.EntryQueued, pager.EntryLoading:
		return fmt.Sprintf("%d. ...", s.Index+1)
	case pager.EntryFailed:
		if !api.Retryable(s.Entry.Err) {
			return fmt.Sprintf("%d. [deleted]", s.Index+1)
		}
		return fmt.Sprintf("%d. [failed to load — r to retry]", s.Index+1)
	}
	it := s.Entry.Item
	title := it.Title
	if title == "" {
		title = fmt.Sprintf("[%s]", it.Type)
	}
	return fmt.Sprintf("%d. %s", s.Index+1, title)
}

func (s StoryItem) Description() string {
	switch s.Entry.State {
	case pager.EntryQueued, pager.EntryLoading:
		return "loading"
	case pager.EntryFailed:
		if !api.Retryable(s.Entry.Err) {
			return "item no longer exists"
		}
		if s.Entry.Err != nil {
			return s.Entry.Err.Error()
		}
		return "failed"
	}

	it := s.Entry.Item
	parts := make([]string, 0, 5)
	if it.Score > 0 {
		parts = append(parts, fmt.Sprintf("%d points", it.Score))
	}
	if it.By != "" {
		parts = append(parts, "by "+it.By)
	}
	parts = append(parts, render.TimeAgo(it.Time))
	if it.Descendants > 0 {
		parts = append(parts, fmt.Sprintf("%d comments", it.Descendants))
	}
	if it.URL != "" {
		if u, err := url.Parse(it.URL); err == nil && u.Host != "" {
			parts = append(parts, strings.TrimPrefix(u.Host, "www."))
		}
	}
	return strings.Join(parts, " | ")
}

func (s StoryItem) FilterValue() string {
	if s.Entry.Item != nil {
		return s.Entry.Item.Title
	}
	return ""
}

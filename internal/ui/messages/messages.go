package messages

import (
	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/cache"
)

// View transition messages.
type (
	OpenStoryMsg struct{ StoryID int }
	GoBackMsg    struct{}
	SwitchTabMsg struct{ Category api.Category }
)

// Data messages.
type (
	// RankedIDsMsg carries the result of a ranked-list fetch.
	RankedIDsMsg struct {
		Category api.Category
		IDs      []int
		Forced   bool // user-requested refresh: reconcile, don't reset
		Err      error
	}

	// CacheUpdateMsg fans one cache completion into the update loop.
	CacheUpdateMsg struct {
		Update cache.Update
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)

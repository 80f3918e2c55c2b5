package storylist

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/browser"
	"github.com/lurk-reader/lurk/internal/cache"
	"github.com/lurk-reader/lurk/internal/config"
	"github.com/lurk-reader/lurk/internal/pager"
	"github.com/lurk-reader/lurk/internal/ui/messages"
)

// Model is the story list view: a bubbles list over the pager window.
type Model struct {
	list   list.Model
	pager  *pager.List
	client *api.Client
	cache  *cache.Cache
	cfg    config.Config
	width  int
	height int
}

// New creates the story list for the configured start category.
func New(cfg config.Config, client *api.Client, c *cache.Cache) Model {
	cat := api.ParseCategory(cfg.Category)

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = categoryTitle(cat)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	return Model{
		list:   l,
		pager:  pager.New(cat, client, c, cfg.ListTTL),
		client: client,
		cache:  c,
		cfg:    cfg,
	}
}

// Init fetches the initial ranked list.
func (m Model) Init() tea.Cmd {
	return m.fetchIDs(false)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// Category returns the active category.
func (m Model) Category() api.Category {
	return m.pager.Category()
}

// Filtering reports whether the list filter input is capturing keys.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.RankedIDsMsg:
		if msg.Category != m.pager.Category() {
			return m, nil
		}
		if msg.Err != nil {
			m.list.Title = categoryTitle(msg.Category)
			return m, status("List fetch failed: "+msg.Err.Error(), true)
		}
		if msg.Forced && len(m.pager.Entries()) > 0 {
			m.pager.Reconcile(msg.IDs)
		} else {
			m.pager.SetIDs(msg.IDs)
			m.pager.LoadMore(m.cfg.PageSize)
		}
		m.list.Title = categoryTitle(msg.Category)
		m.rebuild()
		return m, nil

	case messages.SwitchTabMsg:
		if msg.Category == m.pager.Category() {
			return m, nil
		}
		m.pager = pager.New(msg.Category, m.client, m.cache, m.cfg.ListTTL)
		m.list.Title = categoryTitle(msg.Category) + " (loading...)"
		m.list.SetItems(nil)
		return m, m.fetchIDs(false)

	case messages.CacheUpdateMsg:
		if m.pager.Apply(msg.Update) {
			m.rebuild()
		}
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(StoryItem); ok &&
				item.Entry.State == pager.EntryReady && item.Entry.Item.IsStory() {
				id := item.Entry.ID
				return m, func() tea.Msg { return messages.OpenStoryMsg{StoryID: id} }
			}
		case "o":
			if item, ok := m.list.SelectedItem().(StoryItem); ok &&
				item.Entry.Item != nil && item.Entry.Item.URL != "" {
				u := item.Entry.Item.URL
				return m, func() tea.Msg {
					if err := browser.Open(u); err != nil {
						return messages.StatusMsg{Text: err.Error(), IsError: true}
					}
					return messages.StatusMsg{Text: "Opening: " + u}
				}
			}
		case "r":
			if item, ok := m.list.SelectedItem().(StoryItem); ok &&
				item.Entry.State == pager.EntryFailed && api.Retryable(item.Entry.Err) {
				m.pager.Retry(item.Entry.ID)
				m.rebuild()
				return m, nil
			}
		case "R", "ctrl+r":
			m.list.Title = categoryTitle(m.pager.Category()) + " (refreshing...)"
			return m, m.fetchIDs(true)
		case "m":
			if m.pager.HasMore() {
				m.pager.LoadMore(m.cfg.PageSize)
				m.rebuild()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list.
func (m Model) View() string {
	return m.list.View()
}

// fetchIDs fetches the ranked id list off the update loop.
func (m Model) fetchIDs(force bool) tea.Cmd {
	p := m.pager
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ids, err := p.FetchIDs(ctx, force)
		return messages.RankedIDsMsg{Category: p.Category(), IDs: ids, Forced: force, Err: err}
	}
}

func (m *Model) rebuild() {
	entries := m.pager.Entries()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = StoryItem{Entry: e, Index: i}
	}
	m.list.SetItems(items)
}

func status(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return messages.StatusMsg{Text: text, IsError: isError} }
}

func categoryTitle(cat api.Category) string {
	switch cat {
	case api.CategoryTop:
		return "Top Stories"
	case api.CategoryNew:
		return "New"
	case api.CategoryBest:
		return "Best Stories"
	case api.CategoryAsk:
		return "Ask HN"
	case api.CategoryShow:
		return "Show HN"
	case api.CategoryJobs:
		return "Jobs"
	default:
		return "Hacker News"
	}
}

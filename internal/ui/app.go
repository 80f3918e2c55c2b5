package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/cache"
	"github.com/lurk-reader/lurk/internal/config"
	"github.com/lurk-reader/lurk/internal/ui/messages"
	"github.com/lurk-reader/lurk/internal/ui/statusbar"
	"github.com/lurk-reader/lurk/internal/ui/storylist"
	"github.com/lurk-reader/lurk/internal/ui/storyview"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewStoryList ViewType = iota
	ViewStoryDetail
)

// App is the root Bubble Tea model. It owns the tree and pager state:
// every mutation happens inside Update, and cache completions reach it
// as CacheUpdateMsg sent from the watcher goroutines.
type App struct {
	activeView ViewType

	storyList storylist.Model
	storyView storyview.Model
	statusBar statusbar.Model

	cfg    config.Config
	client *api.Client
	cache  *cache.Cache

	width  int
	height int
}

// NewApp creates the root application model.
func NewApp(cfg config.Config, client *api.Client, c *cache.Cache) *App {
	sb := statusbar.New()
	sb.SetActiveTab(api.ParseCategory(cfg.Category))

	return &App{
		activeView: ViewStoryList,
		storyList:  storylist.New(cfg, client, c),
		statusBar:  sb,
		cfg:        cfg,
		client:     client,
		cache:      c,
	}
}

// Init starts the application.
func (a *App) Init() tea.Cmd {
	return a.storyList.Init()
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := msg.Height - 1 // status bar
		a.storyList.SetSize(msg.Width, contentHeight)
		a.statusBar.SetSize(msg.Width)
		if a.activeView == ViewStoryDetail {
			a.storyView.SetSize(msg.Width, contentHeight)
		}
		return a, nil

	case tea.KeyMsg:
		if a.activeView == ViewStoryList && a.storyList.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, Keys.Quit):
			if msg.String() == "ctrl+c" || a.activeView == ViewStoryList {
				return a, tea.Quit
			}
			a.closeStory()
			return a, nil
		case key.Matches(msg, Keys.Back):
			if a.activeView == ViewStoryDetail {
				a.closeStory()
				return a, nil
			}
		default:
			if a.activeView == ViewStoryList {
				tabs := []key.Binding{Keys.Tab1, Keys.Tab2, Keys.Tab3, Keys.Tab4, Keys.Tab5, Keys.Tab6}
				for i, kb := range tabs {
					if key.Matches(msg, kb) {
						cat := api.Categories[i]
						a.statusBar.SetActiveTab(cat)
						return a, a.route(messages.SwitchTabMsg{Category: cat})
					}
				}
			}
		}

	case messages.OpenStoryMsg:
		a.storyView = storyview.New(msg.StoryID, a.cfg, a.cache)
		a.storyView.SetSize(a.width, a.height-1)
		a.activeView = ViewStoryDetail
		return a, nil

	case messages.GoBackMsg:
		a.closeStory()
		return a, nil

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
		return a, nil

	case messages.CacheUpdateMsg:
		// Completions concern both views: the list window and any
		// open tree share the cache.
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.storyList, cmd = a.storyList.Update(msg)
		cmds = append(cmds, cmd)
		if a.activeView == ViewStoryDetail {
			a.storyView, cmd = a.storyView.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	switch a.activeView {
	case ViewStoryList:
		a.storyList, cmd = a.storyList.Update(msg)
	case ViewStoryDetail:
		a.storyView, cmd = a.storyView.Update(msg)
	}
	return a, cmd
}

// View renders the active view above the status bar.
func (a *App) View() string {
	var content string
	switch a.activeView {
	case ViewStoryDetail:
		content = a.storyView.View()
	default:
		content = a.storyList.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

func (a *App) closeStory() {
	if a.activeView == ViewStoryDetail {
		a.storyView.Close()
		a.activeView = ViewStoryList
	}
}

func (a *App) route(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	a.storyList, cmd = a.storyList.Update(msg)
	return cmd
}

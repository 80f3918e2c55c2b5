package storyview

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lurk-reader/lurk/internal/api"
	"github.com/lurk-reader/lurk/internal/browser"
	"github.com/lurk-reader/lurk/internal/cache"
	"github.com/lurk-reader/lurk/internal/config"
	"github.com/lurk-reader/lurk/internal/render"
	"github.com/lurk-reader/lurk/internal/tree"
	"github.com/lurk-reader/lurk/internal/ui/messages"
)

var (
	depthColors = []lipgloss.Color{
		"#FF6600", "#828282", "#00BFFF", "#32CD32", "#FFD700", "#FF69B4", "#9370DB", "#20B2AA",
	}

	authorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true)
	metaStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	opStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#000")).Background(lipgloss.Color("#FF6600")).Bold(true)
	selStyle        = lipgloss.NewStyle().Background(lipgloss.Color("#333333"))
	delStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).Italic(true)
	failStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1)
	headerMetaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Padding(0, 1)
	separatorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

const scrollStep = 3

type nodeOffset struct {
	startLine int
	endLine   int
}

// Model is the story detail / comment tree view.
type Model struct {
	viewport    viewport.Model
	tree        *tree.Tree
	nodes       []tree.NodeView
	offsets     []nodeOffset
	selectedIdx int
	cfg         config.Config
	width       int
	height      int
}

// New opens storyID and creates its view. The tree starts fetching
// immediately; completions arrive as CacheUpdateMsg.
func New(storyID int, cfg config.Config, c *cache.Cache) Model {
	vp := viewport.New(0, 0)
	vp.SetContent("  Loading...")

	return Model{
		viewport: vp,
		tree:     tree.Open(storyID, c, cfg.AutoExpandDepth),
		cfg:      cfg,
	}
}

// Close drops the tree; in-flight fetches still land in the cache.
func (m *Model) Close() {
	m.tree.Close()
}

// SetSize updates viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.resizeViewport()
	m.rebuild()
}

func (m *Model) resizeViewport() {
	header := m.renderHeader()
	headerLines := strings.Count(header, "\n") + 1
	m.viewport.Height = m.height - headerLines
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.CacheUpdateMsg:
		if m.tree.Apply(msg.Update) {
			m.resizeViewport()
			m.rebuild()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.selectedIdx >= 0 && m.selectedIdx < len(m.offsets) {
				off := m.offsets[m.selectedIdx]
				viewBottom := m.viewport.YOffset + m.viewport.Height
				if off.endLine >= viewBottom {
					// Comment extends below viewport: scroll within it.
					m.viewport.SetYOffset(m.viewport.YOffset + scrollStep)
					return m, nil
				}
			}
			if m.selectedIdx < len(m.nodes)-1 {
				m.selectedIdx++
				m.rebuild()
				m.scrollToCursor()
			}
			return m, nil
		case "k", "up":
			if m.selectedIdx >= 0 && m.selectedIdx < len(m.offsets) {
				off := m.offsets[m.selectedIdx]
				if off.startLine < m.viewport.YOffset {
					newOff := m.viewport.YOffset - scrollStep
					if newOff < off.startLine {
						newOff = off.startLine
					}
					m.viewport.SetYOffset(newOff)
					return m, nil
				}
			}
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.rebuild()
				m.scrollToCursor()
			}
			return m, nil
		case " ":
			if nv, ok := m.selected(); ok {
				m.tree.ToggleCollapse(nv.ID)
				m.rebuild()
			}
			return m, nil
		case "enter":
			if nv, ok := m.selected(); ok {
				switch {
				case nv.State == cache.StateFailed && api.Retryable(nv.Err):
					m.tree.Retry(nv.ID)
				case nv.Collapsed:
					m.tree.ExpandUI(nv.ID)
				case nv.Unexpanded:
					m.tree.Expand(nv.ID)
				}
				m.rebuild()
			}
			return m, nil
		case "r":
			if nv, ok := m.selected(); ok && nv.State == cache.StateFailed && api.Retryable(nv.Err) {
				m.tree.Retry(nv.ID)
				m.rebuild()
			}
			return m, nil
		case "R", "ctrl+r":
			m.tree.Refresh()
			return m, func() tea.Msg { return messages.StatusMsg{Text: "Refreshing story..."} }
		case "o":
			if root := m.tree.Root(); root.Item != nil && root.Item.URL != "" {
				u := root.Item.URL
				return m, func() tea.Msg {
					if err := browser.Open(u); err != nil {
						return messages.StatusMsg{Text: err.Error(), IsError: true}
					}
					return messages.StatusMsg{Text: "Opening: " + u}
				}
			}
			return m, nil
		case "[":
			if idx := m.parentIndex(m.selectedIdx); idx >= 0 {
				m.selectedIdx = idx
				m.rebuild()
				m.scrollToCursor()
			}
			return m, nil
		case "]":
			if idx := m.nextSiblingIndex(m.selectedIdx); idx >= 0 {
				m.selectedIdx = idx
				m.rebuild()
				m.scrollToCursor()
			}
			return m, nil
		case "g", "home":
			m.selectedIdx = 0
			m.rebuild()
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			if len(m.nodes) > 0 {
				m.selectedIdx = len(m.nodes) - 1
				m.rebuild()
				m.viewport.GotoBottom()
			}
			return m, nil
		case "ctrl+d", "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "ctrl+u", "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the story view.
func (m Model) View() string {
	header := m.renderHeader()
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View())
}

func (m Model) selected() (tree.NodeView, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.nodes) {
		return tree.NodeView{}, false
	}
	return m.nodes[m.selectedIdx], true
}

// parentIndex finds the nearest earlier node one level shallower.
func (m Model) parentIndex(idx int) int {
	if idx < 0 || idx >= len(m.nodes) {
		return -1
	}
	depth := m.nodes[idx].Depth
	for i := idx - 1; i >= 0; i-- {
		if m.nodes[i].Depth < depth {
			return i
		}
	}
	return -1
}

// nextSiblingIndex finds the next node at the same depth before the
// walk leaves this subtree's parent.
func (m Model) nextSiblingIndex(idx int) int {
	if idx < 0 || idx >= len(m.nodes) {
		return -1
	}
	depth := m.nodes[idx].Depth
	for i := idx + 1; i < len(m.nodes); i++ {
		if m.nodes[i].Depth < depth {
			return -1
		}
		if m.nodes[i].Depth == depth {
			return i
		}
	}
	return -1
}

func (m *Model) rebuild() {
	m.nodes = m.tree.Visible()
	if m.selectedIdx >= len(m.nodes) {
		m.selectedIdx = len(m.nodes) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
	m.rebuildContent()
}

func (m *Model) rebuildContent() {
	root := m.tree.Root()
	if len(m.nodes) == 0 {
		m.offsets = nil
		switch {
		case root.State == cache.StateFailed && errors.Is(root.Err, api.ErrNotFound):
			m.viewport.SetContent(delStyle.Render("  Story not found."))
		case root.State == cache.StateFailed:
			m.viewport.SetContent(failStyle.Render("  Failed to load story: "+errText(root.Err)) +
				"\n" + metaStyle.Render("  r to retry"))
		case root.Item == nil || root.Pending:
			m.viewport.SetContent("  Loading comments...")
		default:
			m.viewport.SetContent("  No comments yet.")
		}
		return
	}

	var sb strings.Builder
	m.offsets = make([]nodeOffset, len(m.nodes))
	availWidth := m.width - 4
	if availWidth < 20 {
		availWidth = 20
	}

	lineCount := 0
	opUser := ""
	if root.Item != nil {
		opUser = root.Item.By
	}

	for i, nv := range m.nodes {
		startLine := lineCount
		indent := nv.Depth * 2
		if indent > 30 {
			indent = 30
		}
		indentStr := strings.Repeat(" ", indent)

		barColor := depthColors[nv.Depth%len(depthColors)]
		selected := i == m.selectedIdx
		if selected {
			barColor = "#FF6600"
		}
		bar := lipgloss.NewStyle().Foreground(barColor).Render("│")

		writeLine := func(s string) {
			if selected {
				s = selStyle.Render(s)
			}
			sb.WriteString(s + "\n")
			lineCount++
		}

		switch {
		case nv.Item != nil && nv.Item.Deleted:
			writeLine(indentStr + bar + " " + delStyle.Render("[deleted]"))
		case nv.Item != nil && nv.Item.Dead:
			writeLine(indentStr + bar + " " + delStyle.Render("[flagged]"))
		case nv.State == cache.StateFailed && errors.Is(nv.Err, api.ErrNotFound):
			// The id is gone; no retry will bring it back.
			writeLine(indentStr + bar + " " + delStyle.Render("[deleted]"))
		case nv.State == cache.StateFailed && nv.Item == nil:
			writeLine(indentStr + bar + " " + failStyle.Render("[failed: "+errText(nv.Err)+"]") +
				" " + metaStyle.Render("(r to retry)"))
		case nv.Item == nil && nv.Collapsed && !nv.Pending:
			// Collapse suppressed the fetch; nothing is in flight.
			writeLine(indentStr + bar + " " + metaStyle.Render("[collapsed]"))
		case nv.Item == nil:
			writeLine(indentStr + bar + " " + metaStyle.Render("[loading...]"))
		default:
			writeLine(indentStr + bar + " " + m.nodeHeader(nv, opUser))
			if !nv.Collapsed {
				bodyWidth := availWidth - indent - 4
				if bodyWidth < 20 {
					bodyWidth = 20
				}
				body := render.ToText(nv.Item.Text, bodyWidth)
				for _, line := range strings.Split(body, "\n") {
					writeLine(indentStr + bar + " " + line)
				}
				if nv.Unexpanded {
					writeLine(indentStr + bar + " " + metaStyle.Render(
						fmt.Sprintf("[%s — enter to load]", countText(nv))))
				}
			}
		}

		sb.WriteString("\n")
		lineCount++
		m.offsets[i] = nodeOffset{startLine: startLine, endLine: lineCount - 1}
	}

	m.viewport.SetContent(sb.String())
}

func (m Model) nodeHeader(nv tree.NodeView, opUser string) string {
	header := authorStyle.Render(nv.Item.By)
	header += " " + metaStyle.Render(render.TimeAgo(nv.Item.Time))
	if nv.Item.Type == "pollopt" {
		header += " " + metaStyle.Render(fmt.Sprintf("%d points", nv.Item.Score))
	}
	if nv.Item.By == opUser && opUser != "" {
		header += " " + opStyle.Render(" OP ")
	}
	if nv.Collapsed {
		header += " " + metaStyle.Render("[+"+countText(nv)+"]")
	}
	if nv.Err != nil {
		// Stale content retained after a failed refresh.
		header += " " + failStyle.Render("[refresh failed]")
	}
	if nv.Pending {
		header += " " + metaStyle.Render("...")
	}
	return header
}

func countText(nv tree.NodeView) string {
	if nv.Exact {
		return fmt.Sprintf("%d", nv.Descendants)
	}
	return fmt.Sprintf("%d+", nv.Descendants)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func (m *Model) scrollToCursor() {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.offsets) {
		return
	}
	off := m.offsets[m.selectedIdx]
	if off.startLine < m.viewport.YOffset || off.startLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(off.startLine)
	}
}

func (m Model) renderHeader() string {
	root := m.tree.Root()
	if root.Item == nil {
		if root.State == cache.StateFailed {
			if errors.Is(root.Err, api.ErrNotFound) {
				return headerStyle.Render("Story not found")
			}
			return headerStyle.Render("Failed to load story")
		}
		return headerStyle.Render("Loading...")
	}
	story := root.Item

	var parts []string
	if story.Title != "" {
		parts = append(parts, headerStyle.Render(story.Title))
		meta := fmt.Sprintf("%d points | by %s | %s | %d comments",
			story.Score, story.By, render.TimeAgo(story.Time), story.Descendants)
		if root.Pending {
			meta += " | refreshing..."
		}
		parts = append(parts, headerMetaStyle.Render(meta))
		if story.URL != "" {
			if u, err := url.Parse(story.URL); err == nil {
				parts = append(parts, headerMetaStyle.Render(u.Host))
			}
		}
		if story.Text != "" {
			bodyWidth := m.width - 4
			if bodyWidth < 20 {
				bodyWidth = 20
			}
			parts = append(parts, headerMetaStyle.Render(render.ToText(story.Text, bodyWidth)))
		}
	} else {
		parts = append(parts, headerStyle.Render(fmt.Sprintf("[%s #%d]", story.Type, story.ID)))
	}

	parts = append(parts, separatorStyle.Render(strings.Repeat("─", max(m.width, 1))))
	hint := metaStyle.Render("j/k:move  [:parent  ]:sibling  space:collapse  enter:expand/retry  R:refresh  o:open url")
	parts = append(parts, hint)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

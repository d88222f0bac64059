package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/crier/store"
)

// HistoryModel is a Bubble Tea model browsing the post history: summary
// stat boxes, a scrollable post list, and the full text of the post
// under the cursor.
type HistoryModel struct {
	posts    []store.Post
	stats    []store.RunnerStats
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewHistoryModel creates a history model over the given records.
func NewHistoryModel(posts []store.Post, stats []store.RunnerStats) HistoryModel {
	return HistoryModel{posts: posts, stats: stats}
}

// keyMap defines key bindings.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "previous post"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "next post"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.posts)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Post History"))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatBoxes())
	b.WriteString("\n\n")

	if len(m.posts) == 0 {
		b.WriteString("No posts recorded yet.")
	} else {
		b.WriteString(m.renderPostList())
		b.WriteString("\n")
		b.WriteString(m.renderDetail())
	}

	help := HelpStyle.Render("up/down select, q quit")
	return b.String() + "\n" + help
}

func (m HistoryModel) renderStatBoxes() string {
	total := 0
	for _, s := range m.stats {
		total += s.Posts
	}
	last := "-"
	if len(m.posts) > 0 {
		last = m.posts[0].DatePosted
	}

	boxes := []string{
		m.renderStatBox("Posts", fmt.Sprintf("%d", total), highlightColor),
		m.renderStatBox("Runners", fmt.Sprintf("%d", len(m.stats)), primaryColor),
		m.renderStatBox("Last Posted", last, successColor),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m HistoryModel) renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

func (m HistoryModel) renderPostList() string {
	visible := m.visibleRows()
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.posts) {
		end = len(m.posts)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		p := m.posts[i]
		line := fmt.Sprintf("%s  %s  %s",
			DateStyle.Render(p.DatePosted),
			RunnerStyle.Render(p.Runner),
			firstLine(p.Text, m.lineWidth()))
		if i == m.cursor {
			line = SelectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m HistoryModel) renderDetail() string {
	p := m.posts[m.cursor]
	header := fmt.Sprintf("%s / %s\n\n", p.Runner, p.DatePosted)
	detail := BoxStyle
	if m.width > 8 {
		detail = detail.Width(m.width - 4)
	}
	return detail.Render(header + p.Text)
}

// visibleRows is the size of the post list window. The stat boxes,
// detail box and help line take the rest of the screen.
func (m HistoryModel) visibleRows() int {
	rows := m.height - 18
	if rows < 5 {
		rows = 5
	}
	return rows
}

func (m HistoryModel) lineWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width - 30
	if w < 20 {
		w = 20
	}
	return w
}

// firstLine reduces a post body to a single trimmed list line.
func firstLine(text string, width int) string {
	line, _, _ := strings.Cut(text, "\n")
	if len(line) > width {
		return line[:width-3] + "..."
	}
	return line
}

// RunHistory opens the interactive history browser.
func RunHistory(posts []store.Post, stats []store.RunnerStats) error {
	p := tea.NewProgram(NewHistoryModel(posts, stats), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Package tui implements an interactive terminal inspector over a
// cache: a scrollable, fuzzy-filterable key list on the left and the
// selected entry's value, syntax-highlighted as JSON, on the right.
package tui

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akavache-go/akavache/internal/cache"

	"github.com/alecthomas/chroma/v2/quick"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

var (
	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(32)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// listSize is how many rows of the key list are visible at once; the
// adapted virtual list only ever renders this many entries regardless
// of how many keys the cache holds.
const listSize = 20

// model is the Bubble Tea program state.
type model struct {
	ctx   context.Context
	store cache.Cache

	allKeys    []string
	visible    []string
	cursor     int
	scrollTop  int
	filter     string
	filtering  bool
	detail     string
	detailErr  error
	windowSize int
}

// New builds the inspector program for store. Run blocks until the
// user quits.
func New(ctx context.Context, store cache.Cache) *tea.Program {
	m := &model{ctx: ctx, store: store, windowSize: listSize}
	return tea.NewProgram(m)
}

func (m *model) Init() tea.Cmd {
	return m.reload
}

func (m *model) reload() tea.Msg {
	keys, err := m.store.GetAllKeys(m.ctx)
	if err != nil {
		return errMsg{err}
	}
	return keysMsg{keys}
}

type keysMsg struct{ keys []string }
type errMsg struct{ err error }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case keysMsg:
		m.allKeys = msg.keys
		m.applyFilter()
		return m, m.loadSelected
	case errMsg:
		m.detailErr = msg.err
		return m, nil
	case detailMsg:
		m.detail = msg.text
		m.detailErr = msg.err
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

type detailMsg struct {
	text string
	err  error
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc:
			m.filtering = false
			m.filter = ""
			m.applyFilter()
			return m, nil
		case tea.KeyEnter:
			m.filtering = false
			return m, nil
		case tea.KeyBackspace:
			if len(m.filter) > 0 {
				m.filter = m.filter[:len(m.filter)-1]
			}
			m.applyFilter()
			return m, nil
		case tea.KeyRunes:
			m.filter += string(msg.Runes)
			m.applyFilter()
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.filtering = true
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		return m, m.loadSelected
	case "down", "j":
		m.moveCursor(1)
		return m, m.loadSelected
	}
	return m, nil
}

func (m *model) moveCursor(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < m.scrollTop {
		m.scrollTop = m.cursor
	}
	if m.cursor >= m.scrollTop+m.windowSize {
		m.scrollTop = m.cursor - m.windowSize + 1
	}
}

// applyFilter narrows allKeys down to visible using fuzzy subsequence
// matching, ranked by fuzzy.Find's score, falling back to the
// unfiltered list when the filter is empty.
func (m *model) applyFilter() {
	if m.filter == "" {
		m.visible = m.allKeys
	} else {
		matches := fuzzy.Find(m.filter, m.allKeys)
		visible := make([]string, len(matches))
		for i, match := range matches {
			visible[i] = match.Str
		}
		m.visible = visible
	}
	m.cursor = 0
	m.scrollTop = 0
}

func (m *model) loadSelected() tea.Msg {
	if m.cursor >= len(m.visible) {
		return detailMsg{}
	}
	key := m.visible[m.cursor]
	value, ok, err := m.store.Get(m.ctx, key)
	if err != nil {
		return detailMsg{err: err}
	}
	if !ok {
		return detailMsg{text: "(expired)"}
	}
	return detailMsg{text: highlightJSON(value)}
}

// highlightJSON pretty-prints value as JSON and syntax-highlights it
// for a terminal. Non-JSON payloads fall back to their raw bytes.
func highlightJSON(value []byte) string {
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return string(value)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(value)
	}

	var buf fmtBuffer
	if err := quick.Highlight(&buf, string(pretty), "json", "terminal256", "monokai"); err != nil {
		return string(pretty)
	}
	return buf.String()
}

// fmtBuffer is the minimal io.Writer chroma's Highlight wants; using a
// named type instead of bytes.Buffer directly keeps the dependency
// surface of this file limited to what it actually needs.
type fmtBuffer struct {
	data []byte
}

func (b *fmtBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *fmtBuffer) String() string {
	return string(b.data)
}

func (m *model) View() string {
	var list string
	end := m.scrollTop + m.windowSize
	if end > len(m.visible) {
		end = len(m.visible)
	}
	for i := m.scrollTop; i < end; i++ {
		line := m.visible[i]
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		list += line + "\n"
	}

	header := fmt.Sprintf("keys: %d/%d", len(m.visible), len(m.allKeys))
	if m.filtering || m.filter != "" {
		header += "  " + filterStyle.Render("/"+m.filter)
	}

	detail := m.detail
	if m.detailErr != nil {
		detail = "error: " + m.detailErr.Error()
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(header+"\n\n"+list),
		detailStyle.Render(detail),
	) + "\n(/ filter, j/k move, q quit)\n"
}

package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-bim/pkg/aggregate"
	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

type view int

const (
	childrenView view = iota
	detailsView
	statsView
	viewCount
)

var viewNames = []string{"Children", "Details", "Statistics"}

// Top level types tried in order when no element is open
var rootTypes = []bim.ElementType{bim.TypeProject, bim.TypeSite, bim.TypeBuilding}

// listingMsg carries the element now open and its children. A nil current
// means the root listing.
type listingMsg struct {
	current  *bim.Element
	trail    []*bim.Element
	children []*bim.Element
	err      error
}

type statsMsg struct {
	id    string
	stats *aggregate.ElementStatistics
	err   error
}

// Model is the bubbletea model of the hierarchy browser
type Model struct {
	ctx        context.Context
	engine     *traversal.Engine
	aggregator *aggregate.Aggregator
	startID    string

	currentView view
	current     *bim.Element
	trail       []*bim.Element // ancestors of current, nearest first
	children    []*bim.Element
	stats       *aggregate.ElementStatistics
	statsFor    string

	table   table.Model
	jump    textinput.Model
	jumping bool
	help    help.Model
	keys    keyMap

	width      int
	height     int
	message    string
	messageErr bool
}

// New creates a browser model. startID selects the first element shown;
// empty starts at the top level elements.
func New(ctx context.Context, engine *traversal.Engine, aggregator *aggregate.Aggregator, startID string) Model {
	ti := textinput.New()
	ti.Placeholder = "element id"
	ti.CharLimit = 256
	ti.Width = 40

	columns := []table.Column{
		{Title: "ID", Width: 16},
		{Title: "Type", Width: 10},
		{Title: "Name", Width: 24},
		{Title: "Properties", Width: 40},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(frame).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(inverse).
		Background(accent).
		Bold(false)
	t.SetStyles(s)

	return Model{
		ctx:        ctx,
		engine:     engine,
		aggregator: aggregator,
		startID:    startID,
		table:      t,
		jump:       ti,
		help:       help.New(),
		keys:       keys,
	}
}

func (m Model) Init() tea.Cmd {
	if m.startID != "" {
		return m.open(m.startID)
	}
	return m.openRoots()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case listingMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.current = msg.current
		m.trail = msg.trail
		m.children = msg.children
		m.table.SetRows(rows(msg.children))
		m.table.SetCursor(0)
		m.message = fmt.Sprintf("%d children", len(msg.children))
		m.messageErr = false
		return m, nil

	case statsMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.stats = msg.stats
		m.statsFor = msg.id
		m.currentView = statsView
		return m, nil

	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			if selected := m.selected(); selected != nil {
				m.currentView = childrenView
				return m, m.open(selected.ID)
			}
			return m, nil

		case key.Matches(msg, m.keys.Back):
			return m, m.up()

		case key.Matches(msg, m.keys.Stats):
			target := m.current
			if m.currentView == childrenView {
				if selected := m.selected(); selected != nil {
					target = selected
				}
			}
			if target == nil {
				return m, nil
			}
			return m, m.loadStats(target.ID)

		case key.Matches(msg, m.keys.Jump):
			m.jumping = true
			m.jump.SetValue("")
			return m, m.jump.Focus()

		case key.Matches(msg, m.keys.Refresh):
			if m.current == nil {
				return m, m.openRoots()
			}
			return m, m.open(m.current.ID)
		}
	}

	var cmd tea.Cmd
	if m.currentView == childrenView {
		m.table, cmd = m.table.Update(msg)
	}
	return m, cmd
}

func (m Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.jumping = false
		m.jump.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		m.jumping = false
		m.jump.Blur()
		id := strings.TrimSpace(m.jump.Value())
		if id == "" {
			return m, nil
		}
		m.currentView = childrenView
		return m, m.open(id)
	}

	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m *Model) setError(err error) {
	m.message = err.Error()
	m.messageErr = true
}

func (m Model) selected() *bim.Element {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.children) {
		return nil
	}
	return m.children[i]
}

// open loads id with its ancestors and children
func (m Model) open(id string) tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		el, err := engine.Element(ctx, id)
		if err != nil {
			return listingMsg{err: err}
		}
		if el == nil {
			return listingMsg{err: fmt.Errorf("element %q not found", id)}
		}
		trail, err := engine.Ancestors(ctx, id)
		if err != nil {
			return listingMsg{err: err}
		}
		children, err := engine.Children(ctx, id)
		if err != nil {
			return listingMsg{err: err}
		}
		return listingMsg{current: el, trail: trail, children: children}
	}
}

func (m Model) openRoots() tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		for _, t := range rootTypes {
			elems, err := engine.ElementsByType(ctx, t)
			if err != nil {
				return listingMsg{err: err}
			}
			if len(elems) > 0 {
				return listingMsg{children: elems}
			}
		}
		return listingMsg{children: []*bim.Element{}}
	}
}

// up opens the nearest ancestor, or the root listing when there is none
func (m Model) up() tea.Cmd {
	if m.current == nil {
		return nil
	}
	if len(m.trail) > 0 {
		return m.open(m.trail[0].ID)
	}
	return m.openRoots()
}

func (m Model) loadStats(id string) tea.Cmd {
	ctx, aggregator := m.ctx, m.aggregator
	return func() tea.Msg {
		stats, err := aggregator.ElementStatistics(ctx, id)
		return statsMsg{id: id, stats: stats, err: err}
	}
}

func rows(elems []*bim.Element) []table.Row {
	out := make([]table.Row, 0, len(elems))
	for _, e := range elems {
		out = append(out, table.Row{e.ID, string(e.Type), e.Name, formatProperties(e.Properties)})
	}
	return out
}

func formatProperties(props bim.Properties) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, props[k]))
	}
	if len(parts) > 3 {
		parts = append(parts[:3], "...")
	}
	return strings.Join(parts, ", ")
}

package browser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-bim/pkg/bim"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("BIM Graph Browser"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")
	s.WriteString(breadcrumbStyle.Render(m.breadcrumb()))
	s.WriteString("\n")

	switch m.currentView {
	case childrenView:
		s.WriteString(m.renderChildren())
	case detailsView:
		s.WriteString(m.renderDetails())
	case statsView:
		s.WriteString(m.renderStats())
	}

	if m.jumping {
		s.WriteString("\n\n")
		s.WriteString(contentStyle.Render("Go to: " + m.jump.View()))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m Model) renderTabs() string {
	var tabs []string
	for i, name := range viewNames {
		if view(i) == m.currentView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// breadcrumb renders the path from the outermost ancestor to the open element
func (m Model) breadcrumb() string {
	if m.current == nil {
		return "(top level)"
	}
	parts := make([]string, 0, len(m.trail)+1)
	for i := len(m.trail) - 1; i >= 0; i-- {
		parts = append(parts, m.trail[i].ID)
	}
	parts = append(parts, m.current.ID)
	return strings.Join(parts, " › ")
}

func (m Model) renderChildren() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Contents"))
	s.WriteString("\n\n")
	if len(m.children) == 0 {
		s.WriteString(helpStyle.Render("No children"))
	} else {
		s.WriteString(m.table.View())
	}
	return contentStyle.Render(s.String())
}

func (m Model) renderDetails() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Element"))
	s.WriteString("\n\n")

	if m.current == nil {
		s.WriteString(helpStyle.Render("Open an element to see its details"))
		return contentStyle.Render(s.String())
	}

	s.WriteString(statsBoxStyle.Render(describe(m.current)))
	return contentStyle.Render(s.String())
}

func describe(e *bim.Element) string {
	var s strings.Builder
	fmt.Fprintf(&s, "ID:      %s\n", e.ID)
	fmt.Fprintf(&s, "Type:    %s\n", e.Type)
	fmt.Fprintf(&s, "Name:    %s\n", e.Name)
	if e.HasParent() {
		fmt.Fprintf(&s, "Parent:  %s\n", e.ParentID)
	}
	if len(e.Connects) > 0 {
		fmt.Fprintf(&s, "Connects: %s\n", strings.Join(e.Connects, ", "))
	}

	keys := make([]string, 0, len(e.Properties))
	for k := range e.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		s.WriteString("\nProperties\n")
		for _, k := range keys {
			fmt.Fprintf(&s, "  %-16s %s\n", k, e.Properties[k])
		}
	}
	return strings.TrimRight(s.String(), "\n")
}

func (m Model) renderStats() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Statistics"))
	s.WriteString("\n\n")

	if m.stats == nil {
		s.WriteString(helpStyle.Render("Press 's' on an element to compute its statistics"))
		return contentStyle.Render(s.String())
	}

	content := fmt.Sprintf(`Below %s

Floors:      %d
Rooms:       %d
Doors:       %d
Windows:     %d
Total area:  %.2f sqm`,
		m.statsFor,
		m.stats.Floors,
		m.stats.Rooms,
		m.stats.Doors,
		m.stats.Windows,
		m.stats.TotalAreaSqm,
	)
	s.WriteString(statsBoxStyle.Render(content))
	return contentStyle.Render(s.String())
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	lay := m.layout()

	// Header
	title := " zipheat ─ ZIP code heat map "
	if m.loading {
		title += dimStyle.Render(" loading…")
	}
	header := lipgloss.NewStyle().Width(lay.width).Render(titleStyle.Render(title))

	// Sidebar
	var sidebar string
	if m.showSidebar {
		sidebar = lipgloss.NewStyle().Width(sidebarWidth).Render(m.l.View())
	}

	// Map viewport
	var mapView string
	if m.showAttrs {
		colW := 0
		for _, c := range m.tbl.Columns() {
			colW += c.Width + 3
		}
		maxW := min(lay.mapW, max(32, colW))
		m.tbl.SetWidth(maxW - 4)
		m.tbl.SetHeight(min(lay.mapH-2, 20))
		attrsBox := boxStyle.Width(maxW).Render(m.tbl.View())
		mapView = lipgloss.Place(lay.mapW, lay.mapH, lipgloss.Center, lipgloss.Center, attrsBox)
	} else {
		canvas := strings.Join(m.surf.Lines(), "\n")
		mapView = lipgloss.NewStyle().Width(lay.mapW).Height(lay.mapH).Render(canvas)
	}

	body := mapView
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", mapView)
	}

	// Footer: status and tooltip, then help or the ZIP prompt.
	status := dimStyle.Render(" " + m.status + " ")
	right := dimStyle.Render(fmt.Sprintf(" %s  %.2fx ", m.field, m.mp.Transform().K))
	if m.tip.text != "" {
		right = tooltipStyle.Render(" "+m.tip.text+" ") + right
	}
	spacer := strings.Repeat(" ", max(0, lay.width-lipgloss.Width(status)-lipgloss.Width(right)))
	line1 := lipgloss.NewStyle().MaxWidth(lay.width).Render(status + spacer + right)

	line2 := m.renderHelp()
	if m.prompt {
		line2 = " " + m.ti.View()
	}
	footer := lipgloss.JoinVertical(lipgloss.Left, line1, lipgloss.NewStyle().MaxWidth(lay.width).Render(line2))

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return appStyle.Width(lay.width).Height(m.height).Render(ui)
}

func (m Model) renderHelp() string {
	if !m.helpVisible {
		return ""
	}
	keys := []string{
		"drag/↑↓←→ pan",
		"wheel/+/- zoom",
		"click/z zoom to ZIP",
		"/ find",
		"f metric",
		"r reset",
		"a attrs",
		"Tab shards",
		"h help",
		"q quit",
	}
	return dimStyle.Render("  " + strings.Join(keys, "  "))
}

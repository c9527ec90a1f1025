package tui

import (
	"fmt"
	"strings"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"zipheat/internal/geom"
	"zipheat/internal/render"
	"zipheat/internal/viewport"
)

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2

	// wheelLines is how many lines one wheel notch scrolls.
	wheelLines = 3
	keyZoom    = 1.25
)

// layout is the screen geometry shared by Update and View.
type layout struct {
	width, height int
	mapX, mapY    int
	mapW, mapH    int
}

func (m Model) layout() layout {
	lay := layout{width: max(10, m.width), height: max(4, m.height-headerHeight-footerHeight)}
	if m.showSidebar {
		lay.mapX = sidebarWidth + 1
	}
	lay.mapY = headerHeight
	lay.mapW = max(10, lay.width-lay.mapX)
	lay.mapH = lay.height
	return lay
}

func (l layout) contains(x, y int) bool {
	return x >= l.mapX && x < l.mapX+l.mapW && y >= l.mapY && y < l.mapY+l.mapH
}

// micro maps a terminal cell to the centre of its braille micro-pixel block.
func (l layout) micro(x, y int) (float64, float64) {
	return float64((x-l.mapX)*2 + 1), float64((y-l.mapY)*4 + 2)
}

// resize fits the braille surface and the map to the current layout.
func (m *Model) resize() {
	lay := m.layout()
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, lay.height-2)
	}
	if w, h := m.surf.Cells(); w != lay.mapW || h != lay.mapH {
		m.surf = render.NewBrailleSurface(lay.mapW, lay.mapH, m.opts.Background)
		m.mp.SetSurface(m.surf)
	}
	mw, mh := m.surf.Size()
	m.mp.Resize(float64(mw), float64(mh))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case frameMsg:
		m.ticking = false
		m.mp.Frame(time.Time(msg))
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "load error: " + msg.err.Error()
			m.log.Error().Err(msg.err).Msg("dataset load failed")
			break
		}
		m.apply(msg.ds)
		m.status = fmt.Sprintf("loaded %d ZIPs, %d metric rows in %s", len(msg.ds.Features), len(msg.ds.Metrics), msg.took.Round(time.Millisecond))
		if m.showAttrs {
			m.refreshAttrs()
		}
	case tea.KeyMsg:
		cmd, done := m.handleKey(msg)
		cmds = append(cmds, cmd)
		if done {
			cmds = append(cmds, m.schedule())
			return m, tea.Batch(cmds...)
		}
	case tea.MouseMsg:
		m.handleMouse(msg)
	}
	// Pass messages to list when visible
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.schedule())
	return m, tea.Batch(cmds...)
}

// handleKey applies a key press; done reports that the key was consumed
// and must not reach the file list.
func (m *Model) handleKey(msg tea.KeyMsg) (cmd tea.Cmd, done bool) {
	// If list is visible and filtering, send keys to list and ignore global commands
	if m.showSidebar && m.l.FilterState() == list.Filtering {
		return nil, false
	}
	if m.prompt {
		switch msg.String() {
		case "esc":
			m.prompt = false
			m.ti.Blur()
		case "enter":
			m.prompt = false
			m.ti.Blur()
			m.zoomToZIP(m.ti.Value())
		default:
			m.ti, cmd = m.ti.Update(msg)
		}
		return cmd, true
	}
	if m.showAttrs {
		switch msg.String() {
		case "esc", "a":
			m.showAttrs = false
		case "ctrl+c", "q":
			return tea.Quit, true
		default:
			m.tbl, cmd = m.tbl.Update(msg)
		}
		return cmd, true
	}

	mw, mh := m.surf.Size()
	cx, cy := float64(mw)/2, float64(mh)/2
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit, true
	case "+", "=":
		m.mp.ZoomBy(keyZoom, cx, cy)
		m.status = fmt.Sprintf("zoom: %.2fx", m.mp.Transform().K)
	case "-", "_":
		m.mp.ZoomBy(1/keyZoom, cx, cy)
		m.status = fmt.Sprintf("zoom: %.2fx", m.mp.Transform().K)
	case "up", "down":
		if m.showSidebar {
			// list navigation
			return nil, false
		}
		if msg.String() == "up" {
			m.mp.OnDragPan(0, float64(mh)/10)
			break
		}
		m.mp.OnDragPan(0, -float64(mh)/10)
	case "left":
		m.mp.OnDragPan(float64(mw)/10, 0)
	case "right":
		m.mp.OnDragPan(-float64(mw)/10, 0)
	case "r":
		m.mp.Reset()
		m.status = "view reset"
	case "f":
		m.cycleField()
		m.status = "colour by " + m.field.String()
	case "z":
		if i, ok := m.mp.Hovered(); ok {
			m.mp.ZoomTo(i)
			m.status = "zoom to ZIP " + m.features[i].ID
		}
	case "/":
		m.prompt = true
		m.ti.SetValue("")
		return tea.Batch(m.ti.Focus(), textinput.Blink), true
	case "tab":
		m.showSidebar = !m.showSidebar
		if m.showSidebar {
			m.refreshDir()
		}
		m.resize()
		return nil, true
	case "h":
		m.helpVisible = !m.helpVisible
	case "a":
		m.showAttrs = true
		m.refreshAttrs()
	case "enter":
		if m.showSidebar {
			if it, ok := m.l.SelectedItem().(fileItem); ok {
				return m.loadFile(it.path), true
			}
		}
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) zoomToZIP(input string) {
	input = strings.TrimSpace(input)
	id, ok := geom.NormalizeZIP(input)
	if !ok {
		m.status = fmt.Sprintf("%q is not a ZIP code", input)
		return
	}
	if !m.mp.ZoomToID(id) {
		m.status = "ZIP " + id + " not found"
		return
	}
	m.status = "zoom to ZIP " + id
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.showAttrs || m.prompt {
		return
	}
	lay := m.layout()
	inside := lay.contains(msg.X, msg.Y)
	x, y := lay.micro(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if !inside {
			return
		}
		dy := float64(wheelLines)
		if msg.Button == tea.MouseButtonWheelUp {
			dy = -dy
		}
		m.mp.OnWheel(viewport.WheelEvent{X: x, Y: y, DeltaY: dy, DeltaMode: viewport.DeltaLine})
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside {
			return
		}
		m.pressed, m.dragged = true, false
		m.lastX, m.lastY = msg.X, msg.Y
	case msg.Action == tea.MouseActionMotion && m.pressed:
		dx, dy := msg.X-m.lastX, msg.Y-m.lastY
		if dx == 0 && dy == 0 {
			return
		}
		m.mp.OnDragPan(float64(dx*2), float64(dy*4))
		m.dragged = true
		m.lastX, m.lastY = msg.X, msg.Y
	case msg.Action == tea.MouseActionRelease:
		if m.pressed && !m.dragged && inside {
			if i, ok := m.mp.OnClick(x, y); ok {
				m.status = "zoom to ZIP " + m.features[i].ID
			}
		}
		m.pressed = false
	case msg.Action == tea.MouseActionMotion:
		if inside {
			m.mp.OnPointerMove(x, y)
		} else {
			m.mp.OnPointerLeave()
		}
	}
}

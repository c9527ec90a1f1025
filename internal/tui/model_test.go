package tui

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	table "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/paulmach/orb"

	"zipheat/internal/geom"
	"zipheat/internal/metric"
	"zipheat/internal/projection"
	"zipheat/internal/source"
)

var errBoom = errors.New("boom")

func square(id string, x0, y0, x1, y1 float64) geom.Feature {
	return geom.Feature{
		ID:         id,
		Geometry:   orb.MultiPolygon{{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}},
		Properties: map[string]any{"NAME": "zip " + id},
	}
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keys(t *testing.T, m Model, s string) Model {
	t.Helper()
	return step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// loaded returns an 80x27 model (an 80x24 cell map) with two ZIPs. The
// fitted scale is 0.95*160/30, so A covers columns 2..27 and rows 7..18.
func loaded(t *testing.T) Model {
	t.Helper()
	m, err := New(Options{Projection: projection.NewIdentity(false)})
	if err != nil {
		t.Fatal(err)
	}
	m = step(t, m, tea.WindowSizeMsg{Width: 80, Height: 27})
	m = step(t, m, loadedMsg{ds: &source.Dataset{
		Features: []geom.Feature{square("10001", 0, 0, 10, 10), square("10002", 20, 0, 30, 10)},
		Metrics:  metric.Table{"10001": {Impressions: 2000, Conversions: 10, Spend: 40}},
	}})
	return step(t, m, frameMsg(time.Now()))
}

func TestLoadedDatasetFillsSurface(t *testing.T) {
	m := loaded(t)
	if len(m.features) != 2 || m.records[0].Impressions != 2000 {
		t.Fatalf("dataset not applied: %d features", len(m.features))
	}
	if w, h := m.surf.Cells(); w != 80 || h != 24 {
		t.Fatalf("surface %dx%d", w, h)
	}
	if !strings.HasPrefix(m.status, "loaded 2 ZIPs, 1 metric rows") {
		t.Fatalf("status %q", m.status)
	}
	if !strings.Contains(m.View(), "zipheat") {
		t.Fatal("view missing header")
	}
}

func TestLoadErrorKeepsModel(t *testing.T) {
	m := loaded(t)
	m = step(t, m, loadedMsg{err: &source.LoadError{Stage: source.StageFetch, URI: "x.json", Err: errBoom}})
	if !strings.HasPrefix(m.status, "load error") || len(m.features) != 2 {
		t.Fatalf("status %q features %d", m.status, len(m.features))
	}
}

func TestHoverShowsTooltip(t *testing.T) {
	m := loaded(t)
	m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	if !strings.Contains(m.tip.text, "ZIP 10001") || !strings.Contains(m.tip.text, "Impressions: 2,000") {
		t.Fatalf("tooltip %q", m.tip.text)
	}
	if i, ok := m.mp.Hovered(); !ok || i != 0 {
		t.Fatalf("hovered %d %v", i, ok)
	}
	m = step(t, m, tea.MouseMsg{X: 40, Y: 12, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	if m.tip.text != "" {
		t.Fatalf("tooltip should hide over the gap, got %q", m.tip.text)
	}
}

func TestClickZoomsAndDragPans(t *testing.T) {
	m := loaded(t)
	m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if i, ok := m.mp.Selected(); !ok || i != 0 {
		t.Fatalf("selected %d %v", i, ok)
	}
	if !m.mp.Animating() || !m.ticking {
		t.Fatal("click should start an animated zoom")
	}
	m = step(t, m, frameMsg(time.Now().Add(time.Second)))
	if m.mp.Animating() || m.mp.Transform().K <= 1 {
		t.Fatalf("animation did not land: %+v", m.mp.Transform())
	}

	before := m.mp.Transform()
	m = step(t, m, tea.MouseMsg{X: 30, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = step(t, m, tea.MouseMsg{X: 33, Y: 11, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = step(t, m, tea.MouseMsg{X: 33, Y: 11, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	after := m.mp.Transform()
	if math.Abs(after.X-before.X-6) > 1e-9 || math.Abs(after.Y-before.Y-4) > 1e-9 || after.K != before.K {
		t.Fatalf("drag pan %+v -> %+v", before, after)
	}
}

func TestClickMissKeepsStatus(t *testing.T) {
	m := loaded(t)
	m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = step(t, m, frameMsg(time.Now().Add(time.Second)))
	m.status = "ready"
	before := m.mp.Transform()

	// row 1 is above both squares at any zoom that keeps A on screen
	m = step(t, m, tea.MouseMsg{X: 79, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = step(t, m, tea.MouseMsg{X: 79, Y: 1, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if m.status != "ready" {
		t.Fatalf("miss changed status to %q", m.status)
	}
	if m.mp.Animating() || m.mp.Transform() != before {
		t.Fatal("miss should not zoom")
	}
}

func TestWheelZooms(t *testing.T) {
	m := loaded(t)
	m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if k := m.mp.Transform().K; k <= 1 {
		t.Fatalf("wheel up should zoom in, k=%v", k)
	}
	for range 50 {
		m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	}
	if k := m.mp.Transform().K; k != 1 {
		t.Fatalf("zoom out should clamp at 1, k=%v", k)
	}
}

func TestPromptZoomsToZIP(t *testing.T) {
	m := loaded(t)
	m = keys(t, m, "/")
	if !m.prompt {
		t.Fatal("prompt not open")
	}
	m = keys(t, m, "10002")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.prompt || m.status != "zoom to ZIP 10002" {
		t.Fatalf("prompt %v status %q", m.prompt, m.status)
	}
	if i, ok := m.mp.Selected(); !ok || i != 1 {
		t.Fatalf("selected %d %v", i, ok)
	}

	m = keys(t, m, "/")
	m = keys(t, m, "99999")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.status != "ZIP 99999 not found" {
		t.Fatalf("status %q", m.status)
	}
}

func TestKeys(t *testing.T) {
	m := loaded(t)
	m = keys(t, m, "f")
	if m.field != metric.Conversions || m.status != "colour by conversions" {
		t.Fatalf("field %v status %q", m.field, m.status)
	}
	m = keys(t, m, "+")
	if k := m.mp.Transform().K; k != 1.25 {
		t.Fatalf("k = %v", k)
	}
	m = keys(t, m, "r")
	if m.mp.Transform().K != 1 {
		t.Fatal("reset should restore the fitted view")
	}
	m = keys(t, m, "a")
	if m.showAttrs {
		t.Fatal("attrs need a selected or hovered ZIP")
	}
}

func TestAttrsTable(t *testing.T) {
	m := loaded(t)
	m = step(t, m, tea.MouseMsg{X: 14, Y: 12, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	m = keys(t, m, "a")
	if !m.showAttrs {
		t.Fatalf("attrs hidden: %q", m.status)
	}
	rows := m.tbl.Rows()
	want := []table.Row{
		{"ZIP", "10001"},
		{"Impressions", "2,000"},
		{"Conversions", "10"},
		{"Spend", "$40.00"},
		{"Conv. rate", "0.50%"},
		{"NAME", "zip 10001"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows %v", rows)
	}
	for i := range want {
		if rows[i][0] != want[i][0] || rows[i][1] != want[i][1] {
			t.Fatalf("row %d = %v want %v", i, rows[i], want[i])
		}
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.showAttrs {
		t.Fatal("esc should close attrs")
	}
}

func TestPropString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{2.5, "2.5"},
		{true, "true"},
		{[]any{1.0, "a"}, `[1,"a"]`},
	}
	for _, tc := range cases {
		if got := propString(tc.in); got != tc.want {
			t.Fatalf("propString(%v) = %q want %q", tc.in, got, tc.want)
		}
	}
}

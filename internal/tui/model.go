package tui

import (
	"context"
	"image/color"
	"os"
	"strings"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"zipheat/internal/geom"
	"zipheat/internal/mapview"
	"zipheat/internal/metric"
	"zipheat/internal/projection"
	"zipheat/internal/render"
	"zipheat/internal/source"
	"zipheat/internal/viewport"
)

// frameInterval paces animation frames; input-driven redraws are coalesced
// into the next frame.
const frameInterval = 16 * time.Millisecond

type Options struct {
	Loader     *source.Loader
	Shards     []string
	MetricsURI string

	Projection   projection.Projection
	Renderer     render.Renderer
	Ramp         metric.Ramp
	Field        metric.Field
	Extent       viewport.Extent
	FitFraction  float64
	ZoomFraction float64
	ZoomDuration time.Duration
	Background   color.NRGBA

	Log zerolog.Logger
}

type Model struct {
	width  int
	height int

	showSidebar bool
	helpVisible bool

	status string
	log    zerolog.Logger

	// File explorer
	cwd   string
	l     list.Model
	items []list.Item

	// Data
	opts     Options
	loader   *source.Loader
	loading  bool
	features []geom.Feature
	records  []metric.Record
	field    metric.Field

	// Map
	mp      *mapview.Map
	surf    *render.BrailleSurface
	tip     *footerTooltip
	ticking bool

	// Mouse
	pressed bool
	dragged bool
	lastX   int
	lastY   int

	// ZIP prompt
	prompt bool
	ti     textinput.Model

	// attributes table
	showAttrs bool
	tbl       table.Model
}

// footerTooltip collects the map's tooltip into the status footer.
type footerTooltip struct {
	text string
}

func (t *footerTooltip) Show(_, _ float64, text string) {
	t.text = strings.ReplaceAll(text, "\n", "  ")
}

func (t *footerTooltip) Hide() { t.text = "" }

type frameMsg time.Time

type loadedMsg struct {
	ds   *source.Dataset
	err  error
	took time.Duration
}

func New(opts Options) (Model, error) {
	if opts.Projection == nil {
		opts.Projection = projection.NewAlbersUSA()
	}
	if opts.Ramp == (metric.Ramp{}) {
		opts.Ramp = metric.DefaultRamp()
	}
	loader := opts.Loader
	if loader == nil {
		loader = &source.Loader{Log: opts.Log}
	}
	m := Model{
		helpVisible: true,
		status:      "zipheat ready",
		log:         opts.Log,
		opts:        opts,
		loader:      loader,
		field:       opts.Field,
		tip:         &footerTooltip{},
		loading:     len(opts.Shards) > 0,
	}
	m.surf = render.NewBrailleSurface(1, 1, opts.Background)
	mp, err := mapview.New(mapview.Options{
		Projection:   opts.Projection,
		Surface:      m.surf,
		Clock:        time.Now,
		Tooltip:      m.tip,
		Renderer:     opts.Renderer,
		Extent:       opts.Extent,
		FitFraction:  opts.FitFraction,
		ZoomFraction: opts.ZoomFraction,
		ZoomDuration: opts.ZoomDuration,
		Logger:       opts.Log,
	})
	if err != nil {
		return m, err
	}
	m.mp = mp

	m.cwd, _ = os.Getwd()
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Shards"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)

	m.ti = textinput.New()
	m.ti.Placeholder = "ZIP code"
	m.ti.Prompt = "zoom to: "
	m.ti.CharLimit = 10

	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	m.refreshDir()
	return m, nil
}

func (m Model) Init() tea.Cmd {
	if len(m.opts.Shards) == 0 {
		return nil
	}
	return m.loadCmd(m.opts.Shards)
}

// loadCmd fetches shards (and metrics) off the event loop.
func (m Model) loadCmd(shards []string) tea.Cmd {
	loader, metricsURI := m.loader, m.opts.MetricsURI
	return func() tea.Msg {
		start := time.Now()
		ds, err := loader.Load(context.Background(), shards, metricsURI)
		return loadedMsg{ds: ds, err: err, took: time.Since(start)}
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// schedule starts the frame loop if the map has work pending.
func (m *Model) schedule() tea.Cmd {
	if m.ticking || !m.mp.Pending() {
		return nil
	}
	m.ticking = true
	return tick()
}

// apply installs a loaded dataset into the map.
func (m *Model) apply(ds *source.Dataset) {
	features, records := ds.Features, metric.Join(ds.Features, ds.Metrics, nil)
	m.features, m.records = features, records
	m.mp.Load(features, metric.Styler(records, m.field, m.opts.Ramp))
	m.mp.SetLabel(func(i int) string {
		if i < 0 || i >= len(features) {
			return ""
		}
		return metric.Format(features[i].ID, records[i])
	})
}

// cycleField switches the metric that drives the fill ramp.
func (m *Model) cycleField() {
	m.field = (m.field + 1) % 3
	m.mp.SetStyle(metric.Styler(m.records, m.field, m.opts.Ramp))
}

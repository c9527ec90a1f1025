// Package mapview is the interaction controller: it owns the pan/zoom
// transform and turns pointer and wheel gestures into redraws, tooltips and
// animated zoom-to-feature transitions.
package mapview

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"zipheat/internal/geom"
	"zipheat/internal/projection"
	"zipheat/internal/render"
	"zipheat/internal/viewport"
)

// Tooltip is the host's tooltip sink.
type Tooltip interface {
	Show(x, y float64, text string)
	Hide()
}

type nopTooltip struct{}

func (nopTooltip) Show(float64, float64, string) {}
func (nopTooltip) Hide()                         {}

type Options struct {
	Projection projection.Projection
	Surface    render.Surface
	Clock      func() time.Time
	Tooltip    Tooltip
	Renderer   render.Renderer
	Extent     viewport.Extent

	FitFraction  float64
	ZoomFraction float64
	ZoomDuration time.Duration

	Logger zerolog.Logger
}

// Map is single-threaded: every method must be called from the host's
// event loop.
type Map struct {
	proj     projection.Projection
	surf     render.Surface
	clock    func() time.Time
	tooltip  Tooltip
	renderer render.Renderer
	extent   viewport.Extent
	fit      float64
	zoomFit  float64
	zoomDur  time.Duration
	log      zerolog.Logger

	features []geom.Feature
	scene    *Scene
	w, h     float64

	t     viewport.Transform
	anim  viewport.Animator
	sched *viewport.Scheduler

	hover    int
	selected int
	style    render.StyleFunc
	label    func(i int) string
}

func New(o Options) (*Map, error) {
	switch {
	case o.Projection == nil:
		return nil, &MissingDependencyError{Name: "projection"}
	case o.Surface == nil:
		return nil, &MissingDependencyError{Name: "surface"}
	case o.Clock == nil:
		return nil, &MissingDependencyError{Name: "clock"}
	}
	if o.Tooltip == nil {
		o.Tooltip = nopTooltip{}
	}
	if o.Extent == (viewport.Extent{}) {
		o.Extent = viewport.DefaultExtent
	}
	if o.FitFraction <= 0 {
		o.FitFraction = 0.95
	}
	if o.ZoomFraction <= 0 {
		o.ZoomFraction = o.FitFraction
	}
	if o.ZoomDuration == 0 {
		o.ZoomDuration = viewport.DefaultDuration
	}
	if o.Renderer == (render.Renderer{}) {
		o.Renderer = render.DefaultRenderer()
	}
	m := &Map{
		proj:     o.Projection,
		surf:     o.Surface,
		clock:    o.Clock,
		tooltip:  o.Tooltip,
		renderer: o.Renderer,
		extent:   o.Extent,
		fit:      o.FitFraction,
		zoomFit:  o.ZoomFraction,
		zoomDur:  o.ZoomDuration,
		log:      o.Logger,
		t:        viewport.Identity,
		hover:    render.NoHighlight,
		selected: render.NoHighlight,
	}
	w, h := o.Surface.Size()
	m.w, m.h = float64(w), float64(h)
	m.sched = viewport.NewScheduler(&m.anim, func(t viewport.Transform) { m.t = t }, m.draw)
	return m, nil
}

// Load replaces the dataset. style may be nil for an unfilled map.
func (m *Map) Load(features []geom.Feature, style render.StyleFunc) {
	m.features = features
	m.style = style
	m.selected = render.NoHighlight
	m.refit()
}

// SetLabel sets the tooltip text source; the default is the feature ID.
func (m *Map) SetLabel(fn func(i int) string) { m.label = fn }

// SetStyle swaps the fill function without refitting.
func (m *Map) SetStyle(style render.StyleFunc) {
	m.style = style
	m.sched.Request()
}

// SetSurface swaps the drawing surface, e.g. after the host resized it.
// Resize must still be called to refit.
func (m *Map) SetSurface(s render.Surface) {
	if s == nil {
		return
	}
	m.surf = s
	m.sched.Request()
}

func (m *Map) Resize(w, h float64) {
	if w == m.w && h == m.h && m.scene != nil {
		return
	}
	m.w, m.h = w, h
	m.refit()
}

// refit rebuilds the scene and resets the view to the fitted transform.
func (m *Map) refit() {
	m.anim.Cancel()
	m.t = viewport.Identity
	m.hover = render.NoHighlight
	m.tooltip.Hide()
	scene, err := NewScene(m.proj, m.features, m.w, m.h, m.fit)
	switch {
	case errors.Is(err, projection.ErrDegenerateGeometry):
		m.log.Warn().Err(err).Int("features", len(m.features)).Float64("w", m.w).Float64("h", m.h).Msg("using unfitted projection")
	case err != nil:
		m.log.Error().Err(err).Msg("fit failed")
	}
	m.scene = scene
	if scene != nil {
		m.log.Debug().Int("features", len(m.features)).Int("indexed", scene.Index.Len()).
			Float64("scale", scene.Projection.Params().Scale).Msg("scene fitted")
	}
	m.sched.Request()
}

func (m *Map) Pick(x, y float64) (int, bool) { return m.scene.Pick(m.t, x, y) }

func (m *Map) OnPointerMove(x, y float64) {
	i, ok := m.Pick(x, y)
	if !ok {
		m.tooltip.Hide()
		i = render.NoHighlight
	} else {
		m.tooltip.Show(x, y, m.text(i))
	}
	if i != m.hover {
		m.hover = i
		m.sched.Request()
	}
}

func (m *Map) OnPointerLeave() {
	m.tooltip.Hide()
	if m.hover != render.NoHighlight {
		m.hover = render.NoHighlight
		m.sched.Request()
	}
}

// OnClick zooms to the feature under the pointer and reports its index.
// A miss does nothing.
func (m *Map) OnClick(x, y float64) (int, bool) {
	i, ok := m.Pick(x, y)
	if !ok || !m.ZoomTo(i) {
		return 0, false
	}
	return i, true
}

// ZoomTo animates to feature i, replacing any animation in flight.
func (m *Map) ZoomTo(i int) bool {
	target, ok := m.scene.ZoomTarget(i, m.zoomFit, m.extent)
	if !ok {
		return false
	}
	m.selected = i
	m.anim.Start(m.t, target, m.clock(), m.zoomDur)
	m.sched.Request()
	return true
}

// ZoomToID is ZoomTo by feature identifier.
func (m *Map) ZoomToID(id string) bool {
	for i, f := range m.features {
		if f.ID == id {
			return m.ZoomTo(i)
		}
	}
	return false
}

func (m *Map) OnWheel(ev viewport.WheelEvent) {
	m.ZoomBy(viewport.WheelFactor(ev), ev.X, ev.Y)
}

// ZoomBy zooms about a screen point immediately.
func (m *Map) ZoomBy(factor, x, y float64) {
	m.anim.Cancel()
	m.t = viewport.ZoomAt(m.t, factor, x, y, m.extent)
	m.sched.Request()
}

func (m *Map) OnDragPan(dx, dy float64) {
	m.anim.Cancel()
	m.t = m.extent.Clamp(viewport.Pan(m.t, dx, dy))
	m.sched.Request()
}

// Reset returns to the fitted view.
func (m *Map) Reset() {
	m.anim.Cancel()
	m.t = viewport.Identity
	m.selected = render.NoHighlight
	m.sched.Request()
}

// Frame is the host's refresh callback. It reports whether a draw happened.
func (m *Map) Frame(now time.Time) bool { return m.sched.Frame(now) }

// Pending reports whether the host should schedule another frame.
func (m *Map) Pending() bool { return m.sched.Pending() }

func (m *Map) draw() {
	m.scene.Render(m.renderer, m.surf, m.t, m.style, m.hover)
}

func (m *Map) Transform() viewport.Transform { return m.t }
func (m *Map) Scene() *Scene                  { return m.scene }
func (m *Map) Features() []geom.Feature       { return m.features }
func (m *Map) Animating() bool                { return m.anim.Active() }

func (m *Map) Selected() (int, bool) { return m.selected, m.selected >= 0 }
func (m *Map) Hovered() (int, bool)  { return m.hover, m.hover >= 0 }

func (m *Map) text(i int) string {
	if m.label != nil {
		return m.label(i)
	}
	if i >= 0 && i < len(m.features) {
		return m.features[i].ID
	}
	return ""
}

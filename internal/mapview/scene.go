package mapview

import (
	"errors"

	"github.com/paulmach/orb"

	"zipheat/internal/geom"
	"zipheat/internal/projection"
	"zipheat/internal/render"
	"zipheat/internal/spatial"
	"zipheat/internal/viewport"
)

// Scene is the fitted, projected and indexed geometry for one viewport
// size. It is never mutated after construction and may be shared between
// goroutines.
type Scene struct {
	Projection projection.Projection
	Worlds     []projection.Shape
	Index      *spatial.Index
	Width      float64
	Height     float64
}

// NewScene fits p to features in a w x h viewport. Degenerate geometry
// still produces a usable scene; the error is returned alongside it.
func NewScene(p projection.Projection, features []geom.Feature, w, h, fraction float64) (*Scene, error) {
	fitted, err := projection.Fit(p, features, w, h, fraction)
	if err != nil && !errors.Is(err, projection.ErrDegenerateGeometry) {
		return nil, err
	}
	worlds := projection.ProjectFeatures(fitted, features)
	return &Scene{
		Projection: fitted,
		Worlds:     worlds,
		Index:      spatial.Build(worlds),
		Width:      w,
		Height:     h,
	}, err
}

func (s *Scene) Pick(t viewport.Transform, x, y float64) (int, bool) {
	if s == nil {
		return 0, false
	}
	return render.Pick(s.Index, s.Worlds, t, x, y)
}

func (s *Scene) Render(r render.Renderer, surf render.Surface, t viewport.Transform, style render.StyleFunc, highlight int) {
	if s == nil {
		surf.Clear()
		return
	}
	r.Render(surf, s.Worlds, t, style, highlight)
}

// Bound is feature i's world-space bound.
func (s *Scene) Bound(i int) (orb.Bound, bool) {
	if s == nil {
		return orb.Bound{}, false
	}
	b, ok := s.Index.Box(i)
	if !ok {
		return orb.Bound{}, false
	}
	return orb.Bound{Min: orb.Point{b.X0, b.Y0}, Max: orb.Point{b.X1, b.Y1}}, true
}

// ZoomTarget is the transform framing feature i.
func (s *Scene) ZoomTarget(i int, fraction float64, e viewport.Extent) (viewport.Transform, bool) {
	b, ok := s.Bound(i)
	if !ok {
		return viewport.Identity, false
	}
	return viewport.ZoomToBound(b, s.Width, s.Height, fraction, e), true
}

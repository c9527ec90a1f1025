// Package render draws projected features onto a Surface under a viewport
// transform and resolves screen points back to features.
package render

import (
	"image/color"

	"zipheat/internal/projection"
	"zipheat/internal/spatial"
	"zipheat/internal/viewport"
)

// Surface is anything the renderer can paint on. Coordinates are screen
// pixels with the origin in the top-left corner.
type Surface interface {
	Size() (w, h int)
	Clear()
	Fill(p Path, c color.NRGBA)
	Stroke(p Path, c color.NRGBA, width float64)
}

// StyleFunc returns the fill colour for feature i.
type StyleFunc func(i int) color.NRGBA

// NoHighlight disables the hover outline.
const NoHighlight = -1

type Renderer struct {
	Stroke         color.NRGBA
	BaseWidth      float64
	Highlight      color.NRGBA
	HighlightWidth float64
}

func DefaultRenderer() Renderer {
	return Renderer{
		Stroke:         color.NRGBA{R: 255, G: 255, B: 255, A: 26},
		BaseWidth:      0.5,
		Highlight:      color.NRGBA{R: 255, G: 165, A: 255},
		HighlightWidth: 2,
	}
}

// Render clears s and draws every feature in input order. Features without
// geometry are skipped, as are features entirely outside the surface. The
// highlighted feature, if any, is outlined again after everything else.
func (r Renderer) Render(s Surface, worlds []projection.Shape, t viewport.Transform, style StyleFunc, highlight int) {
	s.Clear()
	w, h := s.Size()
	width := r.BaseWidth / t.K
	for i, shape := range worlds {
		if shape.Empty() || !onScreen(shape, t, w, h) {
			continue
		}
		p := BuildPath(shape, t)
		if style != nil {
			s.Fill(p, style(i))
		}
		s.Stroke(p, r.Stroke, width)
	}
	if highlight >= 0 && highlight < len(worlds) && !worlds[highlight].Empty() {
		s.Stroke(BuildPath(worlds[highlight], t), r.Highlight, r.HighlightWidth/t.K)
	}
}

func onScreen(s projection.Shape, t viewport.Transform, w, h int) bool {
	x0, y0 := t.Apply(s.Bound.Min[0], s.Bound.Min[1])
	x1, y1 := t.Apply(s.Bound.Max[0], s.Bound.Max[1])
	return x1 >= 0 && y1 >= 0 && x0 <= float64(w) && y0 <= float64(h)
}

// Pick resolves a screen point to the first feature, by index, whose
// outline contains it under t.
func Pick(idx *spatial.Index, worlds []projection.Shape, t viewport.Transform, sx, sy float64) (int, bool) {
	if t.K == 0 {
		return 0, false
	}
	wx, wy := t.Invert(sx, sy)
	for _, i := range idx.Candidates(wx, wy) {
		if i < 0 || i >= len(worlds) || worlds[i].Empty() {
			continue
		}
		if BuildPath(worlds[i], t).Contains(sx, sy) {
			return i, true
		}
	}
	return 0, false
}

// Package viewport holds the pan/zoom transform applied on top of the fitted
// projection, plus the animation and redraw scheduling that drive it.
package viewport

import (
	"math"

	"github.com/paulmach/orb"
)

// Transform maps world space to screen space: screen = K*world + (X, Y).
type Transform struct {
	X, Y, K float64
}

// Identity is the fitted view.
var Identity = Transform{K: 1}

func (t Transform) Apply(wx, wy float64) (float64, float64) {
	return t.K*wx + t.X, t.K*wy + t.Y
}

func (t Transform) Invert(sx, sy float64) (float64, float64) {
	return (sx - t.X) / t.K, (sy - t.Y) / t.K
}

// Extent bounds the zoom scale.
type Extent struct {
	ScaleMin float64
	ScaleMax float64
}

var DefaultExtent = Extent{ScaleMin: 1, ScaleMax: 18}

func (e Extent) ClampK(k float64) float64 {
	if math.IsNaN(k) {
		return e.ScaleMin
	}
	return math.Max(e.ScaleMin, math.Min(e.ScaleMax, k))
}

// Clamp pins t.K into the extent, scaling about the screen origin.
func (e Extent) Clamp(t Transform) Transform {
	t.K = e.ClampK(t.K)
	return t
}

// Pan shifts the view by a screen-space delta.
func Pan(t Transform, dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ZoomAt multiplies the scale by factor while keeping the screen point
// (sx, sy) over the same world point. The resulting scale is clamped.
func ZoomAt(t Transform, factor, sx, sy float64, e Extent) Transform {
	k := e.ClampK(t.K * factor)
	wx, wy := t.Invert(sx, sy)
	return Transform{X: sx - wx*k, Y: sy - wy*k, K: k}
}

// DOM WheelEvent delta modes.
const (
	DeltaPixel = 0
	DeltaLine  = 1
	DeltaPage  = 2
)

type WheelEvent struct {
	X, Y      float64
	DeltaY    float64
	DeltaMode int
}

// WheelFactor converts a wheel delta into a multiplicative zoom factor.
// Scrolling down (positive delta) zooms out.
func WheelFactor(ev WheelEvent) float64 {
	m := 0.002
	switch ev.DeltaMode {
	case DeltaLine:
		m = 0.05
	case DeltaPage:
		m = 1
	}
	return math.Pow(2, -ev.DeltaY*m)
}

// ZoomToBound returns the transform that centres the world bound b in a
// w x h viewport, filling fraction of the limiting dimension.
func ZoomToBound(b orb.Bound, w, h, fraction float64, e Extent) Transform {
	bw := b.Max[0] - b.Min[0]
	bh := b.Max[1] - b.Min[1]
	m := math.Max(bw/w, bh/h)
	k := e.ScaleMax
	if m > 0 && !math.IsInf(m, 0) {
		k = e.ClampK(fraction / m)
	}
	c := b.Center()
	return Transform{X: w/2 - k*c[0], Y: h/2 - k*c[1], K: k}
}

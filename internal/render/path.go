package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"zipheat/internal/projection"
	"zipheat/internal/viewport"
)

// Path is a feature outline in screen space, one closed ring per entry.
type Path []orb.Ring

// BuildPath applies t to every ring of s.
func BuildPath(s projection.Shape, t viewport.Transform) Path {
	p := make(Path, 0, len(s.Rings))
	for _, r := range s.Rings {
		sr := make(orb.Ring, len(r))
		for i, pt := range r {
			sr[i][0], sr[i][1] = t.Apply(pt[0], pt[1])
		}
		p = append(p, sr)
	}
	return p
}

// Contains tests (x, y) against all rings with the even-odd rule, so holes
// and overlapping parts of a multipolygon cancel out.
func (p Path) Contains(x, y float64) bool {
	pt := orb.Point{x, y}
	in := false
	for _, r := range p {
		if len(r) >= 3 && planar.RingContains(r, pt) {
			in = !in
		}
	}
	return in
}

func (p Path) Bound() orb.Bound {
	if len(p) == 0 {
		return orb.Bound{}
	}
	b := p[0].Bound()
	for _, r := range p[1:] {
		b = b.Union(r.Bound())
	}
	return b
}

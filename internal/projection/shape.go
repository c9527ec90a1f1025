package projection

import (
	"math"

	"github.com/paulmach/orb"

	"zipheat/internal/geom"
)

// Shape is a feature's geometry in unzoomed world space. Rings from all member
// polygons are flattened; containment uses the even-odd rule across them.
type Shape struct {
	Rings []orb.Ring
	Bound orb.Bound
}

// Empty reports whether nothing of the feature survived projection.
func (s Shape) Empty() bool { return len(s.Rings) == 0 }

// ProjectFeatures projects every feature once. Points the projection rejects
// are dropped and rings left with fewer than three points are discarded, so a
// malformed feature yields an empty Shape instead of an error. Outer rings
// come out counter-clockwise and holes clockwise.
func ProjectFeatures(p Projection, features []geom.Feature) []Shape {
	out := make([]Shape, len(features))
	for i, f := range features {
		var s Shape
		first := true
		for _, poly := range f.Geometry {
			for j, ring := range poly {
				pr := make(orb.Ring, 0, len(ring))
				for _, pt := range ring {
					x, y, ok := p.Project(pt[0], pt[1])
					if !ok || math.IsNaN(x) || math.IsNaN(y) {
						continue
					}
					pr = append(pr, orb.Point{x, y})
				}
				if len(pr) < 3 {
					continue
				}
				orient(pr, j == 0)
				if first {
					s.Bound = pr.Bound()
					first = false
				} else {
					s.Bound = s.Bound.Union(pr.Bound())
				}
				s.Rings = append(s.Rings, pr)
			}
		}
		out[i] = s
	}
	return out
}

// orient winds outer rings CCW and holes CW so a nonzero fill agrees with
// even-odd containment whatever winding the source used.
func orient(r orb.Ring, outer bool) {
	want := orb.CW
	if outer {
		want = orb.CCW
	}
	if o := r.Orientation(); o != 0 && o != want {
		r.Reverse()
	}
}

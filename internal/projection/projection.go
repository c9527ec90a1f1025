// Package projection maps geographic coordinates onto the unzoomed world plane
// and fits that mapping to a viewport.
package projection

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"zipheat/internal/geom"
)

// ErrDegenerateGeometry reports an empty or zero-extent feature set. Fit still
// returns usable provisional parameters alongside it.
var ErrDegenerateGeometry = errors.New("degenerate geometry: no extent to fit")

// Params are the scale and translation applied after the raw projection.
type Params struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Projection maps lon/lat (or planar x/y) to world coordinates.
// ok is false for points the projection cannot place.
type Projection interface {
	Project(lon, lat float64) (x, y float64, ok bool)
	Params() Params
	WithParams(Params) Projection
}

// Identity passes planar coordinates through scale and translate. With
// ReflectY set, y grows upward in the input (plain lon/lat).
type Identity struct {
	ReflectY bool
	p        Params
}

func NewIdentity(reflectY bool) Identity {
	return Identity{ReflectY: reflectY, p: Params{Scale: 1}}
}

func (i Identity) Params() Params { return i.p }

func (i Identity) WithParams(p Params) Projection {
	i.p = p
	return i
}

func (i Identity) Project(x, y float64) (float64, float64, bool) {
	if i.ReflectY {
		y = -y
	}
	return i.p.TranslateX + i.p.Scale*x, i.p.TranslateY + i.p.Scale*y, true
}

// ByName returns the unfitted projection for a configuration name.
func ByName(name string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "albers-usa", "albersusa":
		return NewAlbersUSA(), nil
	case "identity":
		return NewIdentity(false), nil
	case "equirectangular", "lonlat":
		return NewIdentity(true), nil
	}
	return nil, fmt.Errorf("unknown projection %q", name)
}

// Fit scales and centres p so the projected bound of all features fills
// fraction of the limiting viewport dimension. p must be the unfitted
// projection; its scale is the provisional scale.
func Fit(p Projection, features []geom.Feature, w, h, fraction float64) (Projection, error) {
	prov := p.WithParams(Params{Scale: p.Params().Scale, TranslateX: w / 2, TranslateY: h / 2})
	if w <= 0 || h <= 0 {
		return prov, ErrDegenerateGeometry
	}
	b, ok := projectedBound(prov, features)
	if !ok {
		return prov, ErrDegenerateGeometry
	}
	dx := b.Max[0] - b.Min[0]
	dy := b.Max[1] - b.Min[1]
	m := math.Max(dx/w, dy/h)
	if !(m > 0) || math.IsInf(m, 0) {
		return prov, ErrDegenerateGeometry
	}
	s := fraction / m
	c := b.Center()
	pp := prov.Params()
	return prov.WithParams(Params{
		Scale:      pp.Scale * s,
		TranslateX: w/2 - s*(c[0]-pp.TranslateX),
		TranslateY: h/2 - s*(c[1]-pp.TranslateY),
	}), nil
}

func projectedBound(p Projection, features []geom.Feature) (b orb.Bound, ok bool) {
	for _, f := range features {
		for _, poly := range f.Geometry {
			for _, ring := range poly {
				for _, pt := range ring {
					x, y, in := p.Project(pt[0], pt[1])
					if !in || math.IsNaN(x) || math.IsNaN(y) {
						continue
					}
					q := orb.Point{x, y}
					if !ok {
						b, ok = orb.Bound{Min: q, Max: q}, true
						continue
					}
					b = b.Extend(q)
				}
			}
		}
	}
	return b, ok
}

package geom

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

type topology struct {
	Type      string                  `json:"type"`
	Transform *topoTransform          `json:"transform"`
	Objects   map[string]topoGeometry `json:"objects"`
	Arcs      [][][]float64           `json:"arcs"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type       string          `json:"type"`
	ID         any             `json:"id"`
	Properties map[string]any  `json:"properties"`
	Arcs       json.RawMessage `json:"arcs"`
	Geometries []topoGeometry  `json:"geometries"`
}

// DecodeTopoJSON converts one object of a TopoJSON topology into features.
// An empty object name selects the first object by sorted key.
func DecodeTopoJSON(data []byte, object string) ([]Feature, error) {
	var t topology
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("topojson: %w", err)
	}
	if t.Type != "Topology" {
		return nil, fmt.Errorf("topojson: unexpected type %q", t.Type)
	}
	if len(t.Objects) == 0 {
		return nil, errors.New("topojson: no objects")
	}
	if object == "" {
		keys := make([]string, 0, len(t.Objects))
		for k := range t.Objects {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		object = keys[0]
	}
	obj, ok := t.Objects[object]
	if !ok {
		return nil, fmt.Errorf("topojson: object %q not found", object)
	}
	arcs := decodeArcs(t.Arcs, t.Transform)

	var out []Feature
	var walk func(g topoGeometry)
	walk = func(g topoGeometry) {
		if g.Type == "GeometryCollection" {
			for _, sub := range g.Geometries {
				walk(sub)
			}
			return
		}
		props := g.Properties
		if props == nil {
			props = map[string]any{}
		}
		f := Feature{Properties: props}
		if g.ID != nil {
			f.ID = fmt.Sprint(g.ID)
		}
		// malformed arcs leave the geometry empty; the feature still keeps its slot
		f.Geometry, _ = topoPolygons(g, arcs)
		out = append(out, f)
	}
	walk(obj)
	return out, nil
}

// decodeArcs resolves delta encoding and quantization into absolute positions.
func decodeArcs(raw [][][]float64, tr *topoTransform) [][]orb.Point {
	arcs := make([][]orb.Point, len(raw))
	for i, arc := range raw {
		pts := make([]orb.Point, 0, len(arc))
		var x, y float64
		for _, p := range arc {
			if len(p) < 2 {
				continue
			}
			if tr == nil {
				pts = append(pts, orb.Point{p[0], p[1]})
				continue
			}
			x += p[0]
			y += p[1]
			pts = append(pts, orb.Point{x*tr.Scale[0] + tr.Translate[0], y*tr.Scale[1] + tr.Translate[1]})
		}
		arcs[i] = pts
	}
	return arcs
}

func topoPolygons(g topoGeometry, arcs [][]orb.Point) (orb.MultiPolygon, error) {
	if len(g.Arcs) == 0 {
		return nil, nil
	}
	switch g.Type {
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(g.Arcs, &rings); err != nil {
			return nil, err
		}
		poly, err := topoPolygon(rings, arcs)
		if err != nil {
			return nil, err
		}
		return orb.MultiPolygon{poly}, nil
	case "MultiPolygon":
		var polys [][][]int
		if err := json.Unmarshal(g.Arcs, &polys); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			poly, err := topoPolygon(rings, arcs)
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		return mp, nil
	}
	return nil, nil
}

func topoPolygon(rings [][]int, arcs [][]orb.Point) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, idx := range rings {
		ring, err := topoRing(idx, arcs)
		if err != nil {
			return nil, err
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// topoRing stitches arcs; a negative index i refers to arc ^i reversed.
// Consecutive arcs share an endpoint, which is kept once.
func topoRing(indices []int, arcs [][]orb.Point) (orb.Ring, error) {
	var ring orb.Ring
	for _, i := range indices {
		reverse := i < 0
		if reverse {
			i = ^i
		}
		if i >= len(arcs) {
			return nil, fmt.Errorf("topojson: arc %d out of range", i)
		}
		arc := arcs[i]
		if len(ring) > 0 {
			ring = ring[:len(ring)-1]
		}
		if reverse {
			for k := len(arc) - 1; k >= 0; k-- {
				ring = append(ring, arc[k])
			}
		} else {
			ring = append(ring, arc...)
		}
	}
	return ring, nil
}

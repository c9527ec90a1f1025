package geom

import (
	"github.com/paulmach/orb"
)

// Feature is one region polygon (or multi-polygon) with its properties.
// Features are immutable once loaded; derived data lives beside them, keyed by index.
type Feature struct {
	ID         string
	Geometry   orb.MultiPolygon
	Properties map[string]any
}

// Empty reports whether the feature has no drawable ring.
func (f Feature) Empty() bool {
	for _, poly := range f.Geometry {
		for _, ring := range poly {
			if len(ring) >= 3 {
				return false
			}
		}
	}
	return true
}

// Bound returns the geographic bound of the feature geometry.
func (f Feature) Bound() orb.Bound {
	return f.Geometry.Bound()
}

// Store holds the merged, ordered feature list of the current dataset.
type Store struct {
	features []Feature
}

// Merge concatenates shards in the order given, keeping in-shard order.
func Merge(shards ...[]Feature) *Store {
	n := 0
	for _, s := range shards {
		n += len(s)
	}
	out := make([]Feature, 0, n)
	for _, s := range shards {
		out = append(out, s...)
	}
	return &Store{features: out}
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.features)
}

func (s *Store) At(i int) Feature { return s.features[i] }

// Features returns the backing slice. Callers must not modify it.
func (s *Store) Features() []Feature {
	if s == nil {
		return nil
	}
	return s.features
}

// Bound is the union of all non-empty feature bounds; ok is false when there is none.
func (s *Store) Bound() (b orb.Bound, ok bool) {
	for _, f := range s.Features() {
		if f.Empty() {
			continue
		}
		fb := f.Bound()
		if !ok {
			b, ok = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b, ok
}

// Index returns the position of the first feature with the given ID.
func (s *Store) Index(id string) (int, bool) {
	for i, f := range s.Features() {
		if f.ID == id {
			return i, true
		}
	}
	return -1, false
}

// toMultiPolygon flattens polygonal geometry; non-polygonal members are ignored.
func toMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch t := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{t}
	case orb.MultiPolygon:
		return t
	case orb.Collection:
		var mp orb.MultiPolygon
		for _, sub := range t {
			mp = append(mp, toMultiPolygon(sub)...)
		}
		return mp
	}
	return nil
}

// Package spatial indexes projected feature bounds for pointer hit-testing.
package spatial

import (
	"math"
	"sort"

	"zipheat/internal/projection"
)

// Box is the world-space bound of one feature.
type Box struct {
	Index          int
	X0, Y0, X1, Y1 float64
}

func (b Box) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

func (b Box) Width() float64  { return b.X1 - b.X0 }
func (b Box) Height() float64 { return b.Y1 - b.Y0 }

// Index buckets boxes into a uniform grid over their union. It lives in
// unzoomed world space, so pan and zoom never require a rebuild.
type Index struct {
	boxes  []Box
	byFeat map[int]int
	union  Box
	x0, y0 float64
	cw, ch float64
	nx, ny int
	cells  [][]int32
}

// Build indexes every non-empty shape; shape i keeps feature index i.
func Build(shapes []projection.Shape) *Index {
	idx := &Index{byFeat: make(map[int]int, len(shapes))}
	for i, s := range shapes {
		if s.Empty() {
			continue
		}
		idx.byFeat[i] = len(idx.boxes)
		idx.boxes = append(idx.boxes, Box{
			Index: i,
			X0:    s.Bound.Min[0],
			Y0:    s.Bound.Min[1],
			X1:    s.Bound.Max[0],
			Y1:    s.Bound.Max[1],
		})
	}
	if len(idx.boxes) == 0 {
		return idx
	}
	u := idx.boxes[0]
	for _, b := range idx.boxes[1:] {
		u.X0, u.Y0 = math.Min(u.X0, b.X0), math.Min(u.Y0, b.Y0)
		u.X1, u.Y1 = math.Max(u.X1, b.X1), math.Max(u.Y1, b.Y1)
	}
	idx.union = u
	n := int(math.Ceil(math.Sqrt(float64(len(idx.boxes)))))
	idx.nx, idx.ny = n, n
	idx.x0, idx.y0 = u.X0, u.Y0
	idx.cw = u.Width() / float64(n)
	idx.ch = u.Height() / float64(n)
	if idx.cw <= 0 {
		idx.cw, idx.nx = 1, 1
	}
	if idx.ch <= 0 {
		idx.ch, idx.ny = 1, 1
	}
	idx.cells = make([][]int32, idx.nx*idx.ny)
	for bi, b := range idx.boxes {
		cx0, cy0 := idx.cell(b.X0, b.Y0)
		cx1, cy1 := idx.cell(b.X1, b.Y1)
		for cy := cy0; cy <= cy1; cy++ {
			for cx := cx0; cx <= cx1; cx++ {
				c := cy*idx.nx + cx
				idx.cells[c] = append(idx.cells[c], int32(bi))
			}
		}
	}
	return idx
}

func (idx *Index) cell(x, y float64) (int, int) {
	cx := int((x - idx.x0) / idx.cw)
	cy := int((y - idx.y0) / idx.ch)
	return clampInt(cx, 0, idx.nx-1), clampInt(cy, 0, idx.ny-1)
}

// Candidates returns, in ascending feature index, every feature whose box
// contains the world point. It is a superset of exact containment.
func (idx *Index) Candidates(x, y float64) []int {
	if idx == nil || len(idx.cells) == 0 || !idx.union.Contains(x, y) {
		return nil
	}
	cx, cy := idx.cell(x, y)
	var out []int
	for _, bi := range idx.cells[cy*idx.nx+cx] {
		b := idx.boxes[bi]
		if b.Contains(x, y) {
			out = append(out, b.Index)
		}
	}
	sort.Ints(out)
	return out
}

// Box returns the box of feature i; ok is false for features without geometry.
func (idx *Index) Box(i int) (Box, bool) {
	if idx == nil {
		return Box{}, false
	}
	bi, ok := idx.byFeat[i]
	if !ok {
		return Box{}, false
	}
	return idx.boxes[bi], true
}

func (idx *Index) Boxes() []Box {
	if idx == nil {
		return nil
	}
	return idx.boxes
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.boxes)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package render

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// BrailleSurface renders into terminal cells. Each cell holds a 2x4 grid of
// micro-pixels: fills tint the cell background with the mean micro-pixel
// colour and strokes set braille dots drawn in the stroke colour.
type BrailleSurface struct {
	Background color.NRGBA

	w, h   int // cells
	mw, mh int // micro-pixels
	px     []colorful.Color
	mask   [][]uint8
	ink    [][]color.NRGBA
}

func NewBrailleSurface(w, h int, bg color.NRGBA) *BrailleSurface {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	s := &BrailleSurface{Background: bg, w: w, h: h, mw: w * 2, mh: h * 4}
	s.px = make([]colorful.Color, s.mw*s.mh)
	s.mask = make([][]uint8, h)
	s.ink = make([][]color.NRGBA, h)
	for i := range s.mask {
		s.mask[i] = make([]uint8, w)
		s.ink[i] = make([]color.NRGBA, w)
	}
	s.Clear()
	return s
}

// Size is in micro-pixels.
func (s *BrailleSurface) Size() (int, int) { return s.mw, s.mh }

// Cells is the surface size in terminal cells.
func (s *BrailleSurface) Cells() (int, int) { return s.w, s.h }

func (s *BrailleSurface) Clear() {
	bg := toColorful(s.Background)
	for i := range s.px {
		s.px[i] = bg
	}
	for y := range s.mask {
		for x := range s.mask[y] {
			s.mask[y][x] = 0
			s.ink[y][x] = color.NRGBA{}
		}
	}
}

// Fill scan-converts p with the even-odd rule, sampling micro-pixel centres.
func (s *BrailleSurface) Fill(p Path, c color.NRGBA) {
	if c.A == 0 || len(p) == 0 {
		return
	}
	src := toColorful(c)
	a := float64(c.A) / 255
	b := p.Bound()
	y0 := max(0, int(math.Floor(b.Min[1])))
	y1 := min(s.mh-1, int(math.Ceil(b.Max[1])))
	var xs []float64
	for y := y0; y <= y1; y++ {
		sy := float64(y) + 0.5
		xs = xs[:0]
		for _, r := range p {
			n := len(r)
			for i := 0; i < n; i++ {
				pa, pb := r[i], r[(i+1)%n]
				if (pa[1] <= sy) == (pb[1] <= sy) {
					continue
				}
				t := (sy - pa[1]) / (pb[1] - pa[1])
				xs = append(xs, pa[0]+t*(pb[0]-pa[0]))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			xa := max(0, int(math.Ceil(xs[i]-0.5)))
			xb := min(s.mw, int(math.Ceil(xs[i+1]-0.5)))
			row := s.px[y*s.mw:]
			for x := xa; x < xb; x++ {
				row[x] = row[x].BlendRgb(src, a)
			}
		}
	}
}

// Stroke draws every ring edge as a one-dot line; width only matters in
// that a non-positive width draws nothing.
func (s *BrailleSurface) Stroke(p Path, c color.NRGBA, width float64) {
	if c.A == 0 || !(width > 0) {
		return
	}
	for _, r := range p {
		n := len(r)
		for i := 0; i < n; i++ {
			a, b := r[i], r[(i+1)%n]
			x0, y0, x1, y1, ok := clipSegment(a[0], a[1], b[0], b[1], float64(s.mw), float64(s.mh))
			if !ok {
				continue
			}
			s.line(int(x0), int(y0), int(x1), int(y1), c)
		}
	}
}

// line is a Bresenham walk over the micro grid.
func (s *BrailleSurface) line(x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		s.dot(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// braille dot bits indexed by [column][row] inside a cell
var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func (s *BrailleSurface) dot(mx, my int, c color.NRGBA) {
	if mx < 0 || my < 0 || mx >= s.mw || my >= s.mh {
		return
	}
	cx, cy := mx/2, my/4
	s.mask[cy][cx] |= dotBits[mx%2][my%4]
	s.ink[cy][cx] = c
}

// Cell returns the glyph and colours of one terminal cell.
func (s *BrailleSurface) Cell(cx, cy int) (r rune, fg, bg color.NRGBA) {
	var sum colorful.Color
	for dy := 0; dy < 4; dy++ {
		for dx := 0; dx < 2; dx++ {
			p := s.px[(cy*4+dy)*s.mw+cx*2+dx]
			sum.R += p.R
			sum.G += p.G
			sum.B += p.B
		}
	}
	mean := colorful.Color{R: sum.R / 8, G: sum.G / 8, B: sum.B / 8}
	bg = fromColorful(mean)
	r = ' '
	if m := s.mask[cy][cx]; m != 0 {
		r = rune(0x2800 + int(m))
		ink := s.ink[cy][cx]
		fg = fromColorful(mean.BlendRgb(toColorful(ink), float64(ink.A)/255))
	}
	return r, fg, bg
}

// Lines renders the surface, one string per cell row, coalescing runs of
// identically styled cells into a single lipgloss render.
func (s *BrailleSurface) Lines() []string {
	out := make([]string, s.h)
	for y := 0; y < s.h; y++ {
		var sb, run strings.Builder
		var runFg, runBg color.NRGBA
		flush := func() {
			if run.Len() == 0 {
				return
			}
			st := lipgloss.NewStyle().Background(lipgloss.Color(hex(runBg)))
			if runFg.A != 0 {
				st = st.Foreground(lipgloss.Color(hex(runFg)))
			}
			sb.WriteString(st.Render(run.String()))
			run.Reset()
		}
		for x := 0; x < s.w; x++ {
			r, fg, bg := s.Cell(x, y)
			if x == 0 || fg != runFg || bg != runBg {
				flush()
				runFg, runBg = fg, bg
			}
			run.WriteRune(r)
		}
		flush()
		out[y] = sb.String()
	}
	return out
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func hex(c color.NRGBA) string { return toColorful(c).Hex() }

// clipSegment is Liang-Barsky against [0,w)x[0,h).
func clipSegment(x0, y0, x1, y1, w, h float64) (float64, float64, float64, float64, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := x1-x0, y1-y0
	edges := [4][2]float64{
		{-dx, x0},
		{dx, w - 1 - x0},
		{-dy, y0},
		{dy, h - 1 - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

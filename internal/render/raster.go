package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/vector"
)

// RasterSurface paints anti-aliased polygons into an NRGBA image.
type RasterSurface struct {
	Background color.NRGBA

	img *image.NRGBA
	z   *vector.Rasterizer
}

func NewRasterSurface(w, h int, bg color.NRGBA) *RasterSurface {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &RasterSurface{
		Background: bg,
		img:        image.NewNRGBA(image.Rect(0, 0, w, h)),
		z:          vector.NewRasterizer(w, h),
	}
}

func (s *RasterSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *RasterSurface) Image() *image.NRGBA { return s.img }

func (s *RasterSurface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(s.Background), image.Point{}, draw.Src)
}

func (s *RasterSurface) Fill(p Path, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	w, h := s.Size()
	s.z.Reset(w, h)
	for _, r := range p {
		if len(r) < 3 {
			continue
		}
		s.z.MoveTo(float32(r[0][0]), float32(r[0][1]))
		for _, pt := range r[1:] {
			s.z.LineTo(float32(pt[0]), float32(pt[1]))
		}
		s.z.ClosePath()
	}
	s.z.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{})
}

// Stroke outlines each ring segment as a thin quad. Every quad shares the
// same winding, so overlapping joints never cancel.
func (s *RasterSurface) Stroke(p Path, c color.NRGBA, width float64) {
	if c.A == 0 || !(width > 0) {
		return
	}
	w, h := s.Size()
	s.z.Reset(w, h)
	half := width / 2
	for _, r := range p {
		n := len(r)
		for i := 0; i < n; i++ {
			a, b := r[i], r[(i+1)%n]
			dx, dy := b[0]-a[0], b[1]-a[1]
			l := math.Hypot(dx, dy)
			if l == 0 {
				continue
			}
			nx, ny := -dy/l*half, dx/l*half
			s.z.MoveTo(float32(a[0]+nx), float32(a[1]+ny))
			s.z.LineTo(float32(b[0]+nx), float32(b[1]+ny))
			s.z.LineTo(float32(b[0]-nx), float32(b[1]-ny))
			s.z.LineTo(float32(a[0]-nx), float32(a[1]-ny))
			s.z.ClosePath()
		}
	}
	s.z.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{})
}

func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func EncodeWebP(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, img, nil)
}

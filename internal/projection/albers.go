package projection

import "math"

const radians = math.Pi / 180

// conic is an Albers conic equal-area projection with a rotation, a centre
// and a fixed inset placement.
type conic struct {
	n, c, r0   float64
	rotate     float64 // radians added to longitude
	cx, cy     float64 // raw position of the centre
	scale      float64 // relative to the composite scale
	offX, offY float64 // translate offsets, in units of the composite scale
}

func newConic(phi0, phi1, rotate, centerLon, centerLat, scale, offX, offY float64) conic {
	sy0 := math.Sin(phi0 * radians)
	n := (sy0 + math.Sin(phi1*radians)) / 2
	c := 1 + sy0*(2*n-sy0)
	p := conic{n: n, c: c, r0: math.Sqrt(c) / n, rotate: rotate * radians, scale: scale, offX: offX, offY: offY}
	p.cx, p.cy = p.raw(centerLon*radians, centerLat*radians)
	return p
}

func (p conic) raw(lambda, phi float64) (float64, float64) {
	r := math.Sqrt(math.Max(0, p.c-2*p.n*math.Sin(phi))) / p.n
	x := lambda * p.n
	return r * math.Sin(x), p.r0 - r*math.Cos(x)
}

func (p conic) project(lon, lat float64, k, tx, ty float64) (float64, float64) {
	lambda := wrap(lon*radians + p.rotate)
	xr, yr := p.raw(lambda, lat*radians)
	ks := k * p.scale
	return tx + p.offX*k + ks*(xr-p.cx), ty + p.offY*k - ks*(yr-p.cy)
}

func wrap(lambda float64) float64 {
	if lambda > math.Pi {
		return lambda - 2*math.Pi
	}
	if lambda < -math.Pi {
		return lambda + 2*math.Pi
	}
	return lambda
}

// extent is a clip rectangle in units of the composite scale around the translate.
type extent struct{ x0, y0, x1, y1 float64 }

func (e extent) contains(x, y, k, tx, ty float64) bool {
	return x >= tx+e.x0*k && x <= tx+e.x1*k && y >= ty+e.y0*k && y <= ty+e.y1*k
}

var (
	lower48 = newConic(29.5, 45.5, 96, -0.6, 38.7, 1, 0, 0)
	alaska  = newConic(55, 65, 154, -2, 58.5, 0.35, -0.307, 0.201)
	hawaii  = newConic(8, 18, 157, -3, 19.9, 1, -0.205, 0.212)

	lower48Extent = extent{-0.455, -0.238, 0.455, 0.238}
	alaskaExtent  = extent{-0.425, 0.120, -0.214, 0.234}
	hawaiiExtent  = extent{-0.214, 0.166, -0.115, 0.234}
)

// DefaultAlbersScale is the provisional scale of the composite projection.
const DefaultAlbersScale = 1070

// AlbersUSA is the composite conic equal-area projection of the lower 48 states
// with Alaska and Hawaii insets. A point is assigned to the first sub-projection
// whose clip extent contains it; points outside all three are rejected.
type AlbersUSA struct {
	p Params
}

func NewAlbersUSA() AlbersUSA {
	return AlbersUSA{p: Params{Scale: DefaultAlbersScale}}
}

func (a AlbersUSA) Params() Params { return a.p }

func (a AlbersUSA) WithParams(p Params) Projection { return AlbersUSA{p: p} }

func (a AlbersUSA) Project(lon, lat float64) (float64, float64, bool) {
	k, tx, ty := a.p.Scale, a.p.TranslateX, a.p.TranslateY
	if x, y := lower48.project(lon, lat, k, tx, ty); lower48Extent.contains(x, y, k, tx, ty) {
		return x, y, true
	}
	if x, y := alaska.project(lon, lat, k, tx, ty); alaskaExtent.contains(x, y, k, tx, ty) {
		return x, y, true
	}
	if x, y := hawaii.project(lon, lat, k, tx, ty); hawaiiExtent.contains(x, y, k, tx, ty) {
		return x, y, true
	}
	return 0, 0, false
}

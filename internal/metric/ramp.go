package metric

import (
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Ramp maps a value in [0, max] to a colour between Low and High. Alpha
// moves inside [AlphaMin, AlphaMax] so zero-valued regions stay visible.
type Ramp struct {
	Low      color.NRGBA
	High     color.NRGBA
	AlphaMin float64
	AlphaMax float64
}

func DefaultRamp() Ramp {
	return Ramp{
		Low:      color.NRGBA{R: 255, G: 205, B: 195, A: 255},
		High:     color.NRGBA{R: 255, A: 255},
		AlphaMin: 0.15,
		AlphaMax: 0.90,
	}
}

// Color returns the colour for v given the dataset maximum. A non-positive
// max yields the zero-value colour for everything.
func (r Ramp) Color(v, max float64) color.NRGBA {
	t := 0.0
	if max > 0 && v > 0 {
		t = math.Min(1, v/max)
	}
	lo := colorful.Color{R: float64(r.Low.R) / 255, G: float64(r.Low.G) / 255, B: float64(r.Low.B) / 255}
	hi := colorful.Color{R: float64(r.High.R) / 255, G: float64(r.High.G) / 255, B: float64(r.High.B) / 255}
	c := lo.BlendRgb(hi, t).Clamped()
	cr, cg, cb := c.RGB255()
	a := r.AlphaMin*(1-t) + r.AlphaMax*t
	return color.NRGBA{R: cr, G: cg, B: cb, A: uint8(math.Round(a * 255))}
}

// Zero is the colour of a feature with no metric.
func (r Ramp) Zero() color.NRGBA { return r.Color(0, 0) }

// Styler returns a per-feature fill function over joined records.
func Styler(records []Record, f Field, r Ramp) func(int) color.NRGBA {
	max := Max(records, f)
	return func(i int) color.NRGBA {
		if i < 0 || i >= len(records) {
			return r.Zero()
		}
		return r.Color(f.Value(records[i]), max)
	}
}

var printer = message.NewPrinter(language.English)

// Format renders tooltip text for one ZIP.
func Format(id string, r Record) string {
	var b strings.Builder
	if id == "" {
		id = "unknown"
	}
	b.WriteString("ZIP " + id + "\n")
	b.WriteString(printer.Sprintf("Impressions: %.0f\n", r.Impressions))
	b.WriteString(printer.Sprintf("Conversions: %.0f\n", r.Conversions))
	b.WriteString(printer.Sprintf("Spend: $%.2f\n", r.Spend))
	b.WriteString(printer.Sprintf("Conv. rate: %.2f%%", r.Rate()*100))
	return b.String()
}

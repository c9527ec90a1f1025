// Package config loads zipheat settings from a YAML file, an optional .env
// file and environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"zipheat/internal/geom"
	"zipheat/internal/metric"
	"zipheat/internal/projection"
	"zipheat/internal/render"
	"zipheat/internal/viewport"
)

type Config struct {
	Geometry Geometry `yaml:"geometry"`
	Metrics  Metrics  `yaml:"metrics"`
	View     View     `yaml:"view"`
	Style    Style    `yaml:"style"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
}

type Geometry struct {
	Shards     []string `yaml:"shards"`
	Object     string   `yaml:"object"`
	KeyFields  []string `yaml:"key_fields"`
	Projection string   `yaml:"projection"`
}

type Metrics struct {
	URI      string   `yaml:"uri"`
	Field    string   `yaml:"field"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
}

type Postgres struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type View struct {
	FitFraction  float64       `yaml:"fit_fraction"`
	ZoomFraction float64       `yaml:"zoom_fraction"`
	ScaleMin     float64       `yaml:"scale_min"`
	ScaleMax     float64       `yaml:"scale_max"`
	ZoomDuration time.Duration `yaml:"zoom_duration"`
}

type Style struct {
	Low            string  `yaml:"low"`
	High           string  `yaml:"high"`
	AlphaMin       float64 `yaml:"alpha_min"`
	AlphaMax       float64 `yaml:"alpha_max"`
	Stroke         string  `yaml:"stroke"`
	StrokeAlpha    float64 `yaml:"stroke_alpha"`
	StrokeWidth    float64 `yaml:"stroke_width"`
	Highlight      string  `yaml:"highlight"`
	HighlightWidth float64 `yaml:"highlight_width"`
	Background     string  `yaml:"background"`
}

type HTTP struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxImageSide   int           `yaml:"max_image_side"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Default() Config {
	return Config{
		Geometry: Geometry{Projection: "albers-usa"},
		Metrics: Metrics{
			Field:    "impressions",
			Postgres: Postgres{Table: "zip_metrics"},
			Redis:    Redis{Key: "zipheat:metrics"},
		},
		View: View{
			FitFraction:  0.95,
			ZoomFraction: 0.95,
			ScaleMin:     1,
			ScaleMax:     18,
			ZoomDuration: viewport.DefaultDuration,
		},
		Style: Style{
			Low:            "#ffcdc3",
			High:           "#ff0000",
			AlphaMin:       0.15,
			AlphaMax:       0.90,
			Stroke:         "#ffffff",
			StrokeAlpha:    0.1,
			StrokeWidth:    0.5,
			Highlight:      "#ffa500",
			HighlightWidth: 2,
			Background:     "#0b0f14",
		},
		HTTP: HTTP{
			Addr:           ":8080",
			RequestTimeout: 30 * time.Second,
			MaxImageSide:   4096,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path (optional), then envFile (optional, missing is fine),
// then the process environment.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	if v := getenv("ZIPHEAT_SHARDS"); v != "" {
		c.Geometry.Shards = splitList(v)
	}
	if v := getenv("ZIPHEAT_KEY_FIELDS"); v != "" {
		c.Geometry.KeyFields = splitList(v)
	}
	str("ZIPHEAT_OBJECT", &c.Geometry.Object)
	str("ZIPHEAT_PROJECTION", &c.Geometry.Projection)
	str("ZIPHEAT_METRICS", &c.Metrics.URI)
	str("ZIPHEAT_METRIC_FIELD", &c.Metrics.Field)
	str("DATABASE_URL", &c.Metrics.Postgres.URL)
	str("ZIPHEAT_PG_TABLE", &c.Metrics.Postgres.Table)
	str("REDIS_ADDR", &c.Metrics.Redis.Addr)
	str("REDIS_PASS", &c.Metrics.Redis.Password)
	str("ZIPHEAT_REDIS_KEY", &c.Metrics.Redis.Key)
	if v := getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Metrics.Redis.DB = n
		}
	}
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("ZIPHEAT_LOG", &c.Log.File)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	inUnit := func(name string, v float64) {
		if !(v > 0 && v <= 1) {
			errs = append(errs, fmt.Errorf("%s must be in (0, 1], got %v", name, v))
		}
	}
	inUnit("view.fit_fraction", c.View.FitFraction)
	inUnit("view.zoom_fraction", c.View.ZoomFraction)
	if !(c.View.ScaleMin > 0) || c.View.ScaleMax < c.View.ScaleMin || math.IsInf(c.View.ScaleMax, 0) {
		errs = append(errs, fmt.Errorf("view scale extent [%v, %v] is invalid", c.View.ScaleMin, c.View.ScaleMax))
	}
	if c.View.ZoomDuration < 0 {
		errs = append(errs, fmt.Errorf("view.zoom_duration must not be negative"))
	}
	if c.Style.AlphaMin < 0 || c.Style.AlphaMax > 1 || c.Style.AlphaMin > c.Style.AlphaMax {
		errs = append(errs, fmt.Errorf("style alpha band [%v, %v] is invalid", c.Style.AlphaMin, c.Style.AlphaMax))
	}
	for _, h := range []string{c.Style.Low, c.Style.High, c.Style.Stroke, c.Style.Highlight, c.Style.Background} {
		if _, err := colorful.Hex(h); err != nil {
			errs = append(errs, fmt.Errorf("style colour %q: %w", h, err))
		}
	}
	if _, err := metric.ParseField(c.Metrics.Field); err != nil {
		errs = append(errs, err)
	}
	if _, err := projection.ByName(c.Geometry.Projection); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.MaxImageSide <= 0 {
		errs = append(errs, fmt.Errorf("http.max_image_side must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) Extent() viewport.Extent {
	return viewport.Extent{ScaleMin: c.View.ScaleMin, ScaleMax: c.View.ScaleMax}
}

func (c Config) KeyFunc() geom.KeyFunc { return geom.PropertyKey(c.Geometry.KeyFields...) }

func (c Config) Field() metric.Field {
	f, _ := metric.ParseField(c.Metrics.Field)
	return f
}

func (c Config) Projection() projection.Projection {
	p, err := projection.ByName(c.Geometry.Projection)
	if err != nil {
		return projection.NewAlbersUSA()
	}
	return p
}

func (c Config) Ramp() metric.Ramp {
	return metric.Ramp{
		Low:      hexColor(c.Style.Low, 1),
		High:     hexColor(c.Style.High, 1),
		AlphaMin: c.Style.AlphaMin,
		AlphaMax: c.Style.AlphaMax,
	}
}

func (c Config) Renderer() render.Renderer {
	return render.Renderer{
		Stroke:         hexColor(c.Style.Stroke, c.Style.StrokeAlpha),
		BaseWidth:      c.Style.StrokeWidth,
		Highlight:      hexColor(c.Style.Highlight, 1),
		HighlightWidth: c.Style.HighlightWidth,
	}
}

func (c Config) Background() color.NRGBA { return hexColor(c.Style.Background, 1) }

// hexColor parses "#rrggbb"; invalid input (rejected by Validate) is black.
func hexColor(h string, alpha float64) color.NRGBA {
	cc, err := colorful.Hex(h)
	if err != nil {
		return color.NRGBA{A: uint8(math.Round(alpha * 255))}
	}
	r, g, b := cc.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(math.Max(0, math.Min(1, alpha)) * 255))}
}

package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zipheat/internal/metric"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if e := cfg.Extent(); e.ScaleMin != 1 || e.ScaleMax != 18 {
		t.Fatalf("extent %+v", e)
	}
	if cfg.View.ZoomDuration != 450*time.Millisecond {
		t.Fatalf("zoom duration %v", cfg.View.ZoomDuration)
	}
	r := cfg.Renderer()
	if r.Stroke != (color.NRGBA{R: 255, G: 255, B: 255, A: 26}) || r.BaseWidth != 0.5 {
		t.Fatalf("renderer %+v", r)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "zipheat.yaml")
	err := os.WriteFile(yml, []byte(`
geometry:
  shards: [a.topo.json, b.topo.json]
  key_fields: [GEOID20]
metrics:
  field: conversions
view:
  zoom_duration: 300ms
  scale_max: 12
style:
  high: "#00ff00"
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("ZIPHEAT_PG_TABLE=ads.by_zip\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// register cleanup so godotenv's write is undone
	t.Setenv("ZIPHEAT_PG_TABLE", "x")
	os.Unsetenv("ZIPHEAT_PG_TABLE")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(yml, envFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Geometry.Shards) != 2 || cfg.Geometry.KeyFields[0] != "GEOID20" {
		t.Fatalf("geometry %+v", cfg.Geometry)
	}
	if cfg.Field() != metric.Conversions || cfg.View.ZoomDuration != 300*time.Millisecond || cfg.View.ScaleMax != 12 {
		t.Fatalf("view/metrics %+v %+v", cfg.View, cfg.Metrics)
	}
	if cfg.View.FitFraction != 0.95 {
		t.Fatal("unset yaml keys should keep defaults")
	}
	if cfg.Metrics.Postgres.Table != "ads.by_zip" || cfg.HTTP.Addr != "127.0.0.1:9999" || cfg.Metrics.Redis.DB != 3 {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Metrics, cfg.HTTP)
	}
	if got := cfg.Ramp().High; got != (color.NRGBA{G: 255, A: 255}) {
		t.Fatalf("ramp high %v", got)
	}
	if id, ok := cfg.KeyFunc()(map[string]any{"GEOID20": "501", "ZCTA5CE20": "99999"}); !ok || id != "00501" {
		t.Fatalf("key func picked %q", id)
	}
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatal(err)
	}
}

func TestApplyEnvLists(t *testing.T) {
	cfg := Default()
	env := map[string]string{"ZIPHEAT_SHARDS": " a.json, ,b.json ", "LOG_LEVEL": "debug"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if strings.Join(cfg.Geometry.Shards, "|") != "a.json|b.json" || cfg.Log.Level != "debug" {
		t.Fatalf("cfg %+v %+v", cfg.Geometry, cfg.Log)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"fit fraction", func(c *Config) { c.View.FitFraction = 1.5 }, "fit_fraction"},
		{"extent", func(c *Config) { c.View.ScaleMin = 20 }, "scale extent"},
		{"alpha", func(c *Config) { c.Style.AlphaMin = 0.95 }, "alpha band"},
		{"colour", func(c *Config) { c.Style.Low = "red" }, "colour"},
		{"field", func(c *Config) { c.Metrics.Field = "clicks" }, "metric field"},
		{"projection", func(c *Config) { c.Geometry.Projection = "mercator" }, "projection"},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: got %v", tc.name, err)
		}
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"

	"zipheat/internal/config"
	"zipheat/internal/logging"
	"zipheat/internal/source"
	"zipheat/internal/tui"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "dotenv file, ignored when missing")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *envFile)
	if err != nil {
		log.Fatal(err)
	}
	// Positional arguments are geometry shards.
	if flag.NArg() > 0 {
		cfg.Geometry.Shards = flag.Args()
	}

	logger, closeLog, err := logging.NewFile(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()

	metrics, release, err := source.OpenMetrics(context.Background(), cfg.Metrics)
	if err != nil {
		log.Fatal(err)
	}
	defer release()

	m, err := tui.New(tui.Options{
		Loader: &source.Loader{
			Fetch:   source.DefaultFetcher(&http.Client{Timeout: cfg.HTTP.RequestTimeout}),
			Object:  cfg.Geometry.Object,
			Key:     cfg.KeyFunc(),
			Metrics: metrics,
			Log:     logger,
		},
		Shards:       cfg.Geometry.Shards,
		MetricsURI:   cfg.Metrics.URI,
		Projection:   cfg.Projection(),
		Renderer:     cfg.Renderer(),
		Ramp:         cfg.Ramp(),
		Field:        cfg.Field(),
		Extent:       cfg.Extent(),
		FitFraction:  cfg.View.FitFraction,
		ZoomFraction: cfg.View.ZoomFraction,
		ZoomDuration: cfg.View.ZoomDuration,
		Background:   cfg.Background(),
		Log:          logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run(); err != nil {
		log.Fatal(err)
	}
}

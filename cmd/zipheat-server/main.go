package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"zipheat/internal/config"
	"zipheat/internal/httpapi"
	"zipheat/internal/logging"
	"zipheat/internal/metrics"
	"zipheat/internal/source"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "dotenv file, ignored when missing")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *envFile)
	logger := logging.New(cfg.Log.Level, os.Stdout)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if len(cfg.Geometry.Shards) == 0 {
		logger.Fatal().Msg("no geometry shards configured (geometry.shards or ZIPHEAT_SHARDS)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricSrc, release, err := source.OpenMetrics(ctx, cfg.Metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open metrics backend")
	}
	defer release()

	m := metrics.New()
	loader := &source.Loader{
		Fetch:   source.DefaultFetcher(&http.Client{Timeout: cfg.HTTP.RequestTimeout}),
		Object:  cfg.Geometry.Object,
		Key:     cfg.KeyFunc(),
		Metrics: metricSrc,
		Log:     logger,
	}
	h := httpapi.NewHandler(logger, m, httpapi.Options{
		Projection:     cfg.Projection(),
		Renderer:       cfg.Renderer(),
		Ramp:           cfg.Ramp(),
		Field:          cfg.Field(),
		Extent:         cfg.Extent(),
		FitFraction:    cfg.View.FitFraction,
		ZoomFraction:   cfg.View.ZoomFraction,
		Background:     cfg.Background(),
		MaxImageSide:   cfg.HTTP.MaxImageSide,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	reload := func() {
		start := time.Now()
		ds, err := loader.Load(ctx, cfg.Geometry.Shards, cfg.Metrics.URI)
		if err != nil {
			logger.Error().Err(err).Msg("dataset load failed; keeping previous dataset")
			return
		}
		h.SetDataset(ds.Features, ds.Metrics)
		m.ObserveLoad(time.Since(start), len(ds.Features))
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloadLoop(ctx, logger, hup, reload)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("zipheat-server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

// reloadLoop loads the dataset once, then again on every hangup until ctx
// ends. Loads never overlap, so a slow load cannot overwrite a newer one.
func reloadLoop(ctx context.Context, logger zerolog.Logger, hup <-chan os.Signal, reload func()) {
	reload()
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info().Msg("SIGHUP: reloading dataset")
			reload()
		}
	}
}

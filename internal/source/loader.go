// Package source fetches geometry shards and metric tables and assembles
// them into a dataset. Every shard must succeed; there is no partial load.
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"zipheat/internal/geom"
	"zipheat/internal/metric"
)

const (
	StageFetch   = "fetch"
	StageDecode  = "decode"
	StageMetrics = "metrics"
)

// LoadError reports the first failure of a load attempt.
type LoadError struct {
	Stage string
	URI   string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URI, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type Dataset struct {
	Features []geom.Feature
	Metrics  metric.Table
}

// Fetcher returns the raw bytes behind a URI.
type Fetcher func(ctx context.Context, uri string) ([]byte, error)

type Loader struct {
	Fetch Fetcher
	// Object selects the TopoJSON object; empty takes the first.
	Object string
	// Key resolves feature identifiers; nil keeps decoded IDs.
	Key geom.KeyFunc
	// Metrics, when set, is used instead of fetching a metrics URI.
	Metrics metric.Source
	Log     zerolog.Logger
}

// Load fetches and decodes all shards and the metric table concurrently.
// Shards are merged in the order given.
func (l *Loader) Load(ctx context.Context, shards []string, metricsURI string) (*Dataset, error) {
	fetch := l.Fetch
	if fetch == nil {
		fetch = DefaultFetcher(nil)
	}
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	parts := make([][]geom.Feature, len(shards))
	for i, uri := range shards {
		g.Go(func() error {
			data, err := fetch(ctx, uri)
			if err != nil {
				return &LoadError{Stage: StageFetch, URI: uri, Err: err}
			}
			data, err = maybeGunzip(data)
			if err != nil {
				return &LoadError{Stage: StageDecode, URI: uri, Err: err}
			}
			fs, err := geom.DecodeObject(Name(uri), data, l.Object)
			if err != nil {
				return &LoadError{Stage: StageDecode, URI: uri, Err: err}
			}
			parts[i] = fs
			l.Log.Debug().Str("uri", uri).Int("features", len(fs)).Msg("shard decoded")
			return nil
		})
	}
	table := metric.Table{}
	switch {
	case l.Metrics != nil:
		g.Go(func() error {
			t, err := l.Metrics.Load(ctx)
			if err != nil {
				return &LoadError{Stage: StageMetrics, URI: fmt.Sprintf("%T", l.Metrics), Err: err}
			}
			table = t
			return nil
		})
	case metricsURI != "":
		g.Go(func() error {
			data, err := fetch(ctx, metricsURI)
			if err != nil {
				return &LoadError{Stage: StageMetrics, URI: metricsURI, Err: err}
			}
			if data, err = maybeGunzip(data); err == nil {
				table, err = metric.Decode(Name(metricsURI), data)
			}
			if err != nil {
				return &LoadError{Stage: StageMetrics, URI: metricsURI, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Log.Error().Err(err).Msg("load failed")
		return nil, err
	}
	features := geom.Merge(parts...).Features()
	if l.Key != nil {
		features = geom.AssignIDs(features, l.Key)
	}
	l.Log.Info().Int("shards", len(shards)).Int("features", len(features)).Int("metrics", len(table)).
		Dur("took", time.Since(start)).Msg("dataset loaded")
	return &Dataset{Features: features, Metrics: table}, nil
}

// DefaultFetcher reads http(s) URLs with client and everything else from
// the local filesystem (a file:// prefix is accepted).
func DefaultFetcher(client *http.Client) Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return func(ctx context.Context, uri string) ([]byte, error) {
		if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("http status %s", resp.Status)
			}
			return io.ReadAll(resp.Body)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(strings.TrimPrefix(uri, "file://"))
	}
}

// maybeGunzip inflates gzip payloads, detected by magic bytes.
func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// Name is the base name of a URI, used for display.
func Name(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	return path.Base(uri)
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"zipheat/internal/geom"
	"zipheat/internal/mapview"
	"zipheat/internal/metric"
	"zipheat/internal/metrics"
	"zipheat/internal/projection"
	"zipheat/internal/render"
	"zipheat/internal/viewport"
)

type Options struct {
	Projection     projection.Projection
	Renderer       render.Renderer
	Ramp           metric.Ramp
	Field          metric.Field
	Extent         viewport.Extent
	FitFraction    float64
	ZoomFraction   float64
	Background     color.NRGBA
	MaxImageSide   int
	RequestTimeout time.Duration
}

type dataset struct {
	features []geom.Feature
	records  []metric.Record
	byID     map[string]int
}

type sceneKey struct{ w, h int }

const maxScenes = 16

type Handler struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
	opts    Options

	mu     sync.Mutex
	ds     *dataset
	scenes map[sceneKey]*mapview.Scene

	fits     singleflight.Group
	newScene func(p projection.Projection, features []geom.Feature, w, h, fraction float64) (*mapview.Scene, error)
}

func NewHandler(log zerolog.Logger, m *metrics.Metrics, opts Options) *Handler {
	if opts.Projection == nil {
		opts.Projection = projection.NewAlbersUSA()
	}
	if opts.Extent == (viewport.Extent{}) {
		opts.Extent = viewport.DefaultExtent
	}
	if opts.FitFraction <= 0 {
		opts.FitFraction = 0.95
	}
	if opts.ZoomFraction <= 0 {
		opts.ZoomFraction = opts.FitFraction
	}
	if opts.MaxImageSide <= 0 {
		opts.MaxImageSide = 4096
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Handler{
		log:      log,
		metrics:  m,
		opts:     opts,
		scenes:   map[sceneKey]*mapview.Scene{},
		newScene: mapview.NewScene,
	}
}

// SetDataset swaps the served dataset and drops every cached scene.
func (h *Handler) SetDataset(features []geom.Feature, table metric.Table) {
	ds := &dataset{
		features: features,
		records:  metric.Join(features, table, nil),
		byID:     make(map[string]int, len(features)),
	}
	for i, f := range features {
		if _, dup := ds.byID[f.ID]; !dup && f.ID != "" {
			ds.byID[f.ID] = i
		}
	}
	h.mu.Lock()
	h.ds = ds
	h.scenes = map[sceneKey]*mapview.Scene{}
	h.mu.Unlock()
}

func (h *Handler) dataset() *dataset {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ds
}

// scene returns the shared scene for a viewport size, fitting it on first
// use. Fitting runs outside h.mu; concurrent misses for one size share a fit.
func (h *Handler) scene(w, hgt int) (*mapview.Scene, *dataset) {
	k := sceneKey{w, hgt}
	h.mu.Lock()
	ds := h.ds
	s, ok := h.scenes[k]
	h.mu.Unlock()
	if ds == nil {
		return nil, nil
	}
	if ok {
		return s, ds
	}

	v, _, _ := h.fits.Do(fmt.Sprintf("%p/%dx%d", ds, w, hgt), func() (any, error) {
		s, err := h.newScene(h.opts.Projection, ds.features, float64(w), float64(hgt), h.opts.FitFraction)
		if errors.Is(err, projection.ErrDegenerateGeometry) {
			h.log.Warn().Err(err).Int("w", w).Int("h", hgt).Msg("using unfitted projection")
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		// A swap during the fit leaves the new dataset's cache alone.
		if h.ds == ds {
			if len(h.scenes) >= maxScenes {
				h.scenes = map[sceneKey]*mapview.Scene{}
			}
			h.scenes[k] = s
		}
		return s, nil
	})
	return v.(*mapview.Scene), ds
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.opts.RequestTimeout))
	r.Use(h.accessLog)

	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/render", h.handleRender)
		r.Get("/pick", h.handlePick)
		r.Get("/zoom/{zip}", h.handleZoom)
		r.Get("/features/{zip}", h.handleFeature)
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, path, ww.Status(), time.Since(start))
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"encode response"}}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset()
	if ds == nil {
		h.writeError(w, http.StatusServiceUnavailable, "dataset_unavailable", "dataset not loaded", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "features": len(ds.features)})
}

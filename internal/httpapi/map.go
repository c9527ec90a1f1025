package httpapi

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"zipheat/internal/geom"
	"zipheat/internal/metric"
	"zipheat/internal/render"
	"zipheat/internal/viewport"
)

const (
	defaultWidth  = 800
	defaultHeight = 600
)

type transformDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

type pickResponse struct {
	Hit       bool           `json:"hit"`
	Index     int            `json:"index,omitempty"`
	ZIP       string         `json:"zip,omitempty"`
	Metrics   *metric.Record `json:"metrics,omitempty"`
	Tooltip   string         `json:"tooltip,omitempty"`
	Transform transformDTO   `json:"transform"`
}

type featureResponse struct {
	Index      int            `json:"index"`
	ZIP        string         `json:"zip"`
	Properties map[string]any `json:"properties"`
	Metrics    metric.Record  `json:"metrics"`
	Rate       float64        `json:"conversion_rate"`
	Bound      [4]float64     `json:"bound"`
}

// viewRequest is the viewport shared by render, pick and zoom.
type viewRequest struct {
	w, h int
	t    viewport.Transform
}

func (h *Handler) parseView(q url.Values) (viewRequest, error) {
	var v viewRequest
	var err error
	if v.w, err = intParam(q, "w", defaultWidth); err != nil {
		return v, err
	}
	if v.h, err = intParam(q, "h", defaultHeight); err != nil {
		return v, err
	}
	if v.w < 1 || v.h < 1 || v.w > h.opts.MaxImageSide || v.h > h.opts.MaxImageSide {
		return v, fmt.Errorf("w and h must be in [1, %d]", h.opts.MaxImageSide)
	}
	t := viewport.Identity
	if t.X, err = floatParam(q, "x", 0); err != nil {
		return v, err
	}
	if t.Y, err = floatParam(q, "y", 0); err != nil {
		return v, err
	}
	if t.K, err = floatParam(q, "k", 1); err != nil {
		return v, err
	}
	v.t = h.opts.Extent.Clamp(t)
	return v, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer", name)
	}
	return n, nil
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: not a finite number", name)
	}
	return f, nil
}

func (h *Handler) fieldParam(q url.Values) (metric.Field, error) {
	if s := q.Get("field"); s != "" {
		return metric.ParseField(s)
	}
	return h.opts.Field, nil
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.parseView(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}
	field, err := h.fieldParam(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}
	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "webp" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "format must be png or webp", map[string]any{"format": format})
		return
	}

	scene, ds := h.scene(v.w, v.h)
	if ds == nil {
		h.writeError(w, http.StatusServiceUnavailable, "dataset_unavailable", "dataset not loaded", nil)
		return
	}
	highlight := render.NoHighlight
	if zip := q.Get("zip"); zip != "" {
		if i, ok := ds.lookup(zip); ok {
			highlight = i
		}
	}

	start := time.Now()
	surf := render.NewRasterSurface(v.w, v.h, h.opts.Background)
	scene.Render(h.opts.Renderer, surf, v.t, metric.Styler(ds.records, field, h.opts.Ramp), highlight)

	var buf bytes.Buffer
	encode := render.EncodePNG
	if format == "webp" {
		encode = render.EncodeWebP
	}
	if err := encode(&buf, surf.Image()); err != nil {
		h.log.Error().Err(err).Str("format", format).Msg("encode image")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to encode image", nil)
		return
	}
	h.metrics.ObserveRender(format, time.Since(start))

	w.Header().Set("Content-Type", "image/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handlePick(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.parseView(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}
	if q.Get("sx") == "" || q.Get("sy") == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "sx and sy are required", nil)
		return
	}
	sx, err := floatParam(q, "sx", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}
	sy, err := floatParam(q, "sy", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	scene, ds := h.scene(v.w, v.h)
	if ds == nil {
		h.writeError(w, http.StatusServiceUnavailable, "dataset_unavailable", "dataset not loaded", nil)
		return
	}
	resp := pickResponse{Transform: transformDTO(v.t)}
	i, ok := scene.Pick(v.t, sx, sy)
	h.metrics.IncPick(ok)
	if ok {
		rec := ds.records[i]
		id := ds.features[i].ID
		resp.Hit, resp.Index, resp.ZIP, resp.Metrics = true, i, id, &rec
		resp.Tooltip = metric.Format(id, rec)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleZoom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.parseView(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}
	scene, ds := h.scene(v.w, v.h)
	if ds == nil {
		h.writeError(w, http.StatusServiceUnavailable, "dataset_unavailable", "dataset not loaded", nil)
		return
	}
	zip := chi.URLParam(r, "zip")
	i, ok := ds.lookup(zip)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "zip not found", map[string]any{"zip": zip})
		return
	}
	t, ok := scene.ZoomTarget(i, h.opts.ZoomFraction, h.opts.Extent)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "empty_geometry", "feature has no drawable geometry", map[string]any{"zip": zip})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"zip":       ds.features[i].ID,
		"index":     i,
		"transform": transformDTO(t),
	})
}

func (h *Handler) handleFeature(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset()
	if ds == nil {
		h.writeError(w, http.StatusServiceUnavailable, "dataset_unavailable", "dataset not loaded", nil)
		return
	}
	zip := chi.URLParam(r, "zip")
	i, ok := ds.lookup(zip)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "zip not found", map[string]any{"zip": zip})
		return
	}
	f := ds.features[i]
	b := f.Bound()
	h.writeJSON(w, http.StatusOK, featureResponse{
		Index:      i,
		ZIP:        f.ID,
		Properties: f.Properties,
		Metrics:    ds.records[i],
		Rate:       ds.records[i].Rate(),
		Bound:      [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
	})
}

func (d *dataset) lookup(zip string) (int, bool) {
	if i, ok := d.byID[zip]; ok {
		return i, true
	}
	if id, ok := geom.NormalizeZIP(zip); ok {
		i, ok := d.byID[id]
		return i, ok
	}
	return 0, false
}

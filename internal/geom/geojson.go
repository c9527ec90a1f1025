package geom

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// DecodeGeoJSON reads a FeatureCollection, a single Feature or a bare geometry.
// Non-polygonal features are kept with an empty geometry so indices stay stable.
func DecodeGeoJSON(data []byte) ([]Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		out := make([]Feature, 0, len(fc.Features))
		for _, f := range fc.Features {
			out = append(out, fromGeoJSON(f))
		}
		return out, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		return []Feature{fromGeoJSON(f)}, nil
	case "":
		return nil, errors.New("geojson: missing type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("geojson: %w", err)
		}
		return []Feature{{Geometry: toMultiPolygon(g.Geometry()), Properties: map[string]any{}}}, nil
	}
}

func fromGeoJSON(f *geojson.Feature) Feature {
	props := map[string]any(f.Properties)
	if props == nil {
		props = map[string]any{}
	}
	out := Feature{Properties: props}
	if f.Geometry != nil {
		out.Geometry = toMultiPolygon(f.Geometry)
	}
	if f.ID != nil {
		out.ID = fmt.Sprint(f.ID)
	}
	return out
}

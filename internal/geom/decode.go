package geom

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Decode picks a decoder by file name. A ".json" payload whose type is
// "Topology" is treated as TopoJSON.
func Decode(name string, data []byte) ([]Feature, error) {
	return DecodeObject(name, data, "")
}

// DecodeObject is Decode with an explicit TopoJSON object name; it is
// ignored for other formats.
func DecodeObject(name string, data []byte, object string) ([]Feature, error) {
	lower := strings.ToLower(path.Base(name))
	lower = strings.TrimSuffix(lower, ".gz")
	switch {
	case strings.HasSuffix(lower, ".topojson"), strings.HasSuffix(lower, ".topo.json"):
		return DecodeTopoJSON(data, object)
	case strings.HasSuffix(lower, ".geojson"):
		return DecodeGeoJSON(data)
	case strings.HasSuffix(lower, ".json"):
		if isTopology(data) {
			return DecodeTopoJSON(data, object)
		}
		return DecodeGeoJSON(data)
	case strings.HasSuffix(lower, ".kml"):
		return DecodeKML(data)
	case strings.HasSuffix(lower, ".wkt"):
		return DecodeWKT(data)
	}
	return nil, fmt.Errorf("unsupported geometry file: %s", name)
}

// Supported reports whether Decode understands the file name.
func Supported(name string) bool {
	lower := strings.TrimSuffix(strings.ToLower(name), ".gz")
	for _, ext := range []string{".topojson", ".json", ".geojson", ".kml", ".wkt"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isTopology(data []byte) bool {
	var head struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(data, &head) == nil && head.Type == "Topology"
}

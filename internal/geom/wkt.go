package geom

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// ParseWKT parses one POLYGON or MULTIPOLYGON, optionally prefixed with "id;".
func ParseWKT(line string) (Feature, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return Feature{}, errors.New("empty wkt")
	}
	var id string
	if i := strings.IndexByte(s, ';'); i >= 0 && !strings.HasPrefix(strings.ToUpper(s), "SRID") {
		id, s = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return Feature{}, fmt.Errorf("wkt: %w", err)
	}
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return Feature{}, fmt.Errorf("unsupported wkt type %s", g.GeoJSONType())
	}
	props := map[string]any{}
	if id != "" {
		props["id"] = id
	}
	return Feature{ID: id, Geometry: toMultiPolygon(g), Properties: props}, nil
}

// DecodeWKT reads one geometry per line; blank lines and '#' comments are skipped.
func DecodeWKT(data []byte) ([]Feature, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var out []Feature
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := ParseWKT(line)
		if err != nil {
			return nil, fmt.Errorf("wkt line %d: %w", n, err)
		}
		out = append(out, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("wkt: no geometries parsed")
	}
	return out, nil
}

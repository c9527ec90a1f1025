package geom

import (
	"testing"

	"github.com/paulmach/orb"
)

const topoFixture = `{
  "type": "Topology",
  "transform": {"scale": [1, 1], "translate": [100, 200]},
  "objects": {
    "zcta": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0]], "properties": {"ZCTA5CE20": "01001"}},
        {"type": "MultiPolygon", "arcs": [[[1, 2]]], "properties": {"ZCTA5CE20": 2134}},
        {"type": "Polygon", "arcs": [[9]], "properties": {"ZCTA5CE20": "99999"}},
        {"type": null, "properties": {"ZCTA5CE20": "00000"}}
      ]
    }
  },
  "arcs": [
    [[0, 0], [10, 0], [0, 10], [-10, 0], [0, -10]],
    [[10, 0], [10, 0], [0, 10], [-10, 0]],
    [[10, 10], [0, -10]]
  ]
}`

func TestDecodeTopoJSON(t *testing.T) {
	fs, err := DecodeTopoJSON([]byte(topoFixture), "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fs) != 4 {
		t.Fatalf("expected 4 features, got %d", len(fs))
	}
	want := orb.Ring{{100, 200}, {110, 200}, {110, 210}, {100, 210}, {100, 200}}
	if got := fs[0].Geometry[0][0]; !got.Equal(want) {
		t.Fatalf("ring 0: got %v want %v", got, want)
	}
	want = orb.Ring{{110, 200}, {120, 200}, {120, 210}, {110, 210}, {110, 200}}
	if got := fs[1].Geometry[0][0]; !got.Equal(want) {
		t.Fatalf("stitched ring: got %v want %v", got, want)
	}
	if !fs[2].Empty() {
		t.Fatalf("out-of-range arc should leave an empty geometry")
	}
	if !fs[3].Empty() {
		t.Fatalf("null geometry should be empty")
	}
}

func TestTopoRingReversedArc(t *testing.T) {
	arcs := [][]orb.Point{{{0, 0}, {1, 0}}, {{1, 0}, {1, 1}, {0, 0}}}
	ring, err := topoRing([]int{0, 1}, arcs)
	if err != nil {
		t.Fatal(err)
	}
	if len(ring) != 4 {
		t.Fatalf("shared endpoint should be kept once: %v", ring)
	}
	rev, err := topoRing([]int{^1}, arcs)
	if err != nil {
		t.Fatal(err)
	}
	if !rev.Equal(orb.Ring{{0, 0}, {1, 1}, {1, 0}}) {
		t.Fatalf("reversed arc: %v", rev)
	}
}

func TestDecodeTopoJSONMissingObject(t *testing.T) {
	if _, err := DecodeTopoJSON([]byte(topoFixture), "nope"); err == nil {
		t.Fatal("expected error for unknown object")
	}
	if _, err := DecodeTopoJSON([]byte(`{"type":"FeatureCollection"}`), ""); err == nil {
		t.Fatal("expected error for non-topology")
	}
}

func TestDecodeGeoJSON(t *testing.T) {
	data := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","id":7,"properties":{"ZIP":"10001"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
	  {"type":"Feature","properties":{"ZIP":"10002"},"geometry":{"type":"Point","coordinates":[0,0]}}
	]}`
	fs, err := DecodeGeoJSON([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fs))
	}
	if fs[0].ID != "7" || fs[0].Empty() {
		t.Fatalf("unexpected first feature: %+v", fs[0])
	}
	if !fs[1].Empty() {
		t.Fatalf("point feature should carry no polygon")
	}
}

func TestDecodeKML(t *testing.T) {
	data := `<?xml version="1.0"?>
<kml><Document><Folder><Placemark><name>02134</name>
<ExtendedData><Data name="city"><value>Boston</value></Data></ExtendedData>
<Polygon><outerBoundaryIs><LinearRing><coordinates>0,0,0 1,0,0 1,1,0 0,0,0</coordinates></LinearRing></outerBoundaryIs></Polygon>
</Placemark></Folder></Document></kml>`
	fs, err := DecodeKML([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 || fs[0].ID != "02134" {
		t.Fatalf("unexpected features: %+v", fs)
	}
	if fs[0].Properties["city"] != "Boston" {
		t.Fatalf("extended data not copied: %v", fs[0].Properties)
	}
	if len(fs[0].Geometry) != 1 || len(fs[0].Geometry[0][0]) != 4 {
		t.Fatalf("unexpected geometry: %v", fs[0].Geometry)
	}
}

func TestParseWKT(t *testing.T) {
	cases := []struct {
		in     string
		id     string
		polys  int
		rings0 int
	}{
		{"POLYGON((0 0, 1 0, 1 1, 0 0))", "", 1, 1},
		{"10001;POLYGON ((0 0, 4 0, 4 4, 0 0), (1 1, 2 1, 2 2, 1 1))", "10001", 1, 2},
		{"MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 6, 5 5), (5.1 5.1, 5.2 5.1, 5.2 5.2, 5.1 5.1)))", "", 2, 1},
	}
	for _, c := range cases {
		f, err := ParseWKT(c.in)
		if err != nil {
			t.Fatalf("%q: %v", c.in, err)
		}
		if f.ID != c.id || len(f.Geometry) != c.polys || len(f.Geometry[0]) != c.rings0 {
			t.Fatalf("%q: got id=%q polys=%d rings0=%d", c.in, f.ID, len(f.Geometry), len(f.Geometry[0]))
		}
	}
	if _, err := ParseWKT("LINESTRING(0 0, 1 1)"); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestDecodeDispatch(t *testing.T) {
	fs, err := Decode("shard-1.json", []byte(topoFixture))
	if err != nil || len(fs) != 4 {
		t.Fatalf("topology in .json: %v %d", err, len(fs))
	}
	if _, err := Decode("x.shp", nil); err == nil {
		t.Fatal("expected unsupported file error")
	}
	if !Supported("a.topo.json.gz") || Supported("a.csv") {
		t.Fatal("Supported mismatch")
	}
}

func TestPropertyKey(t *testing.T) {
	key := PropertyKey("GEOID20", "ZIP")
	cases := []struct {
		props map[string]any
		want  string
		ok    bool
	}{
		{map[string]any{"GEOID20": "02134"}, "02134", true},
		{map[string]any{"ZIP": 501.0}, "00501", true},
		{map[string]any{"GEOID20": "", "ZIP": "123"}, "00123", true},
		{map[string]any{"ZIP": "10001-1234"}, "10001", true},
		{map[string]any{"other": "1"}, "", false},
	}
	for _, c := range cases {
		got, ok := key(c.props)
		if got != c.want || ok != c.ok {
			t.Fatalf("%v: got %q,%v want %q,%v", c.props, got, ok, c.want, c.ok)
		}
	}
}

func TestMergeKeepsShardOrder(t *testing.T) {
	a := []Feature{{ID: "a1"}, {ID: "a2"}}
	b := []Feature{{ID: "b1"}}
	s := Merge(a, b)
	if s.Len() != 3 || s.At(0).ID != "a1" || s.At(2).ID != "b1" {
		t.Fatalf("unexpected order: %+v", s.Features())
	}
	if _, ok := s.Bound(); ok {
		t.Fatal("store without geometry should have no bound")
	}
	if i, ok := s.Index("b1"); !ok || i != 2 {
		t.Fatalf("Index(b1) = %d,%v", i, ok)
	}
}

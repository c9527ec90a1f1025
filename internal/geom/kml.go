package geom

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

type kmlRing struct {
	Coordinates string `xml:"LinearRing>coordinates"`
}

type kmlPolygon struct {
	Outer kmlRing   `xml:"outerBoundaryIs"`
	Inner []kmlRing `xml:"innerBoundaryIs"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type kmlPlacemark struct {
	Name     string          `xml:"name"`
	Polygons []kmlPolygon    `xml:"Polygon"`
	Multi    []kmlPolygon    `xml:"MultiGeometry>Polygon"`
	Data     []kmlData       `xml:"ExtendedData>Data"`
	Simple   []kmlSimpleData `xml:"ExtendedData>SchemaData>SimpleData"`
}

// DecodeKML extracts Placemark polygons at any nesting depth (Document, Folder).
// The Placemark name is stored as the "name" property; ExtendedData becomes properties.
func DecodeKML(data []byte) ([]Feature, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []Feature
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, err
		}
		out = append(out, pm.feature())
	}
	if len(out) == 0 {
		return nil, errors.New("kml: no placemarks found")
	}
	return out, nil
}

func (pm kmlPlacemark) feature() Feature {
	props := map[string]any{}
	if pm.Name != "" {
		props["name"] = strings.TrimSpace(pm.Name)
	}
	for _, d := range pm.Data {
		props[d.Name] = strings.TrimSpace(d.Value)
	}
	for _, d := range pm.Simple {
		props[d.Name] = strings.TrimSpace(d.Value)
	}
	var mp orb.MultiPolygon
	for _, p := range append(pm.Polygons, pm.Multi...) {
		poly := orb.Polygon{parseKMLCoords(p.Outer.Coordinates)}
		for _, in := range p.Inner {
			poly = append(poly, parseKMLCoords(in.Coordinates))
		}
		mp = append(mp, poly)
	}
	return Feature{ID: strings.TrimSpace(pm.Name), Geometry: mp, Properties: props}
}

// KML coordinates are "lon,lat[,alt]" tuples separated by whitespace; altitude is ignored.
func parseKMLCoords(s string) orb.Ring {
	var ring orb.Ring
	for _, tuple := range strings.Fields(s) {
		vals := strings.Split(tuple, ",")
		if len(vals) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring
}

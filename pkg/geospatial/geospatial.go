package geospatial

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var (
	ErrNoGeometry     = errors.New("invalid GeoJSON: no geometry")
	ErrNotPolygon     = errors.New("invalid GeoJSON: expected a Polygon or MultiPolygon")
	ErrTooFewVertices = errors.New("polygon needs at least 3 vertices")
)

// Polygon builds a closed single-ring polygon from vertices in order.
// Points are lng/lat as orb expects.
func Polygon(vertices []orb.Point) (orb.Polygon, error) {
	if len(vertices) < 3 {
		return nil, ErrTooFewVertices
	}

	ring := make(orb.Ring, 0, len(vertices)+1)
	ring = append(ring, vertices...)
	if !ring.Closed() {
		ring = append(ring, vertices[0])
	}
	return orb.Polygon{ring}, nil
}

// BoundaryFeature wraps a polygon as a GeoJSON feature with a bbox
func BoundaryFeature(poly orb.Polygon, properties map[string]interface{}) *geojson.Feature {
	feature := geojson.NewFeature(poly)
	feature.BBox = geojson.NewBBox(poly.Bound())
	for k, v := range properties {
		feature.Properties[k] = v
	}
	return feature
}

// VertexCollection renders each vertex as a point feature, so the map can
// place beacon markers even when no polygon can be drawn yet.
func VertexCollection(vertices []orb.Point, labels []string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, v := range vertices {
		f := geojson.NewFeature(v)
		f.Properties["index"] = i
		if i < len(labels) {
			f.Properties["beaconId"] = labels[i]
		}
		fc.Append(f)
	}
	return fc
}

// Bounds returns the bounding box of the vertices, used by the map to fit
// its viewport.
func Bounds(vertices []orb.Point) (orb.Bound, bool) {
	if len(vertices) == 0 {
		return orb.Bound{}, false
	}
	return orb.MultiPoint(vertices).Bound(), true
}

// GeodesicArea returns the area in square meters on the spherical earth
func GeodesicArea(g orb.Geometry) float64 {
	return geo.Area(g)
}

// CalculateCentroid returns the area weighted centroid of a geometry
func CalculateCentroid(g orb.Geometry) orb.Point {
	c, _ := planar.CentroidArea(g)
	return c
}

// ValidateGeoJSON decodes a Feature, FeatureCollection or bare geometry and
// returns the first geometry found.
func ValidateGeoJSON(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	switch head.Type {
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature: %w", err)
		}
		if feature.Geometry == nil {
			return nil, ErrNoGeometry
		}
		return feature.Geometry, nil

	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature collection: %w", err)
		}
		for _, f := range fc.Features {
			if f.Geometry != nil {
				return f.Geometry, nil
			}
		}
		return nil, ErrNoGeometry

	default:
		geometry, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse geometry: %w", err)
		}
		if geometry.Coordinates == nil {
			return nil, ErrNoGeometry
		}
		return geometry.Coordinates, nil
	}
}

// OuterRing returns the vertices of the first polygon's outer ring with the
// closing vertex dropped.
func OuterRing(g orb.Geometry) ([]orb.Point, error) {
	var poly orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		poly = v
	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, ErrNoGeometry
		}
		poly = v[0]
	default:
		return nil, ErrNotPolygon
	}

	if len(poly) == 0 {
		return nil, ErrNoGeometry
	}
	ring := poly[0]
	if len(ring) > 1 && ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, ErrTooFewVertices
	}
	return append([]orb.Point(nil), ring...), nil
}

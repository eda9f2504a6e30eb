package geospatial

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parcel = []orb.Point{
	{36.8219, -1.2921},
	{36.8225, -1.2925},
	{36.8215, -1.2930},
	{36.8205, -1.2928},
}

func TestPolygonClosesRing(t *testing.T) {
	poly, err := Polygon(parcel)
	require.NoError(t, err)

	require.Len(t, poly, 1)
	assert.Len(t, poly[0], len(parcel)+1)
	assert.True(t, poly[0].Closed())

	_, err = Polygon(parcel[:2])
	assert.ErrorIs(t, err, ErrTooFewVertices)
}

func TestGeodesicAreaNearEquator(t *testing.T) {
	poly, err := Polygon(parcel)
	require.NoError(t, err)

	area := GeodesicArea(poly)
	assert.Greater(t, area, 0.0)

	centroid := CalculateCentroid(poly)
	assert.True(t, poly.Bound().Contains(centroid))
}

func TestBounds(t *testing.T) {
	b, ok := Bounds(parcel)
	require.True(t, ok)
	assert.Equal(t, orb.Point{36.8205, -1.2930}, b.Min)
	assert.Equal(t, orb.Point{36.8225, -1.2921}, b.Max)

	_, ok = Bounds(nil)
	assert.False(t, ok)
}

func TestBoundaryFeatureRoundTrip(t *testing.T) {
	poly, err := Polygon(parcel)
	require.NoError(t, err)

	feature := BoundaryFeature(poly, map[string]interface{}{"titleNumber": "LR 12345/67"})
	data, err := json.Marshal(feature)
	require.NoError(t, err)

	g, err := ValidateGeoJSON(data)
	require.NoError(t, err)

	ring, err := OuterRing(g)
	require.NoError(t, err)
	assert.Equal(t, parcel, ring)
}

func TestValidateGeoJSONShapes(t *testing.T) {
	bare := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`
	g, err := ValidateGeoJSON([]byte(bare))
	require.NoError(t, err)
	ring, err := OuterRing(g)
	require.NoError(t, err)
	assert.Len(t, ring, 3)

	collection := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]},"properties":{}}]}`
	g, err = ValidateGeoJSON([]byte(collection))
	require.NoError(t, err)
	ring, err = OuterRing(g)
	require.NoError(t, err)
	assert.Len(t, ring, 4)

	point := `{"type":"Point","coordinates":[36.8,-1.29]}`
	g, err = ValidateGeoJSON([]byte(point))
	require.NoError(t, err)
	_, err = OuterRing(g)
	assert.ErrorIs(t, err, ErrNotPolygon)

	_, err = ValidateGeoJSON([]byte(`{"type":"FeatureCollection","features":[]}`))
	assert.ErrorIs(t, err, ErrNoGeometry)

	_, err = ValidateGeoJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestVertexCollection(t *testing.T) {
	fc := VertexCollection(parcel, []string{"A", "B"})

	require.Len(t, fc.Features, 4)
	assert.Equal(t, "A", fc.Features[0].Properties["beaconId"])
	_, labelled := fc.Features[3].Properties["beaconId"]
	assert.False(t, labelled)
}

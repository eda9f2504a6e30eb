package parcels

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/geospatial"
)

// BoundaryView is what the map consumer needs to draw the parcel
type BoundaryView struct {
	Vertices *geojson.FeatureCollection `json:"vertices"`
	Polygon  *geojson.Feature           `json:"polygon,omitempty"`
	BBox     []float64                  `json:"bbox,omitempty"`
	Centroid []float64                  `json:"centroid,omitempty"`
	Summary  draft.Summary              `json:"summary"`
}

// NewBoundaryView derives the map geometry from the valid coordinates of d.
// The polygon is present only once it is drawable.
func NewBoundaryView(d *draft.Draft) BoundaryView {
	var vertices []orb.Point
	var labels []string
	for _, c := range d.Coordinates {
		p, ok := c.Parsed()
		if !ok {
			continue
		}
		vertices = append(vertices, orb.Point{p.Lng, p.Lat})
		labels = append(labels, c.BeaconID)
	}

	summary := d.Summary()
	view := BoundaryView{
		Vertices: geospatial.VertexCollection(vertices, labels),
		Summary:  summary,
	}

	if bound, ok := geospatial.Bounds(vertices); ok {
		view.BBox = []float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}
	}

	if poly, err := geospatial.Polygon(vertices); err == nil {
		view.Polygon = geospatial.BoundaryFeature(poly, map[string]interface{}{
			"titleNumber":      d.TitleNumber,
			"areaSquareMeters": summary.AreaSquareMeters,
			"areaDisplay":      summary.AreaDisplay,
		})
		c := geospatial.CalculateCentroid(poly)
		view.Centroid = []float64{c.Lon(), c.Lat()}
	}

	return view
}

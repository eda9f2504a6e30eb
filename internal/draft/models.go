package draft

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/geospatial"
)

// DocumentKind identifies one of the two required plan documents
type DocumentKind string

const (
	DocumentDeedPlan   DocumentKind = "deedPlan"
	DocumentSurveyPlan DocumentKind = "surveyPlan"
)

// ParseDocumentKind maps a route parameter onto a DocumentKind
func ParseDocumentKind(s string) (DocumentKind, bool) {
	switch DocumentKind(s) {
	case DocumentDeedPlan, DocumentSurveyPlan:
		return DocumentKind(s), true
	}
	return "", false
}

// Attachment is an uploaded file held in memory. Data never reaches the
// persisted snapshot.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// DocumentSlot holds a plan document as text, file or both
type DocumentSlot struct {
	Text string      `json:"text"`
	File *Attachment `json:"file,omitempty"`
}

// Present reports whether either text or file is provided
func (d DocumentSlot) Present() bool {
	return strings.TrimSpace(d.Text) != "" || d.File != nil
}

// Draft is the in-progress state of one parcel submission
type Draft struct {
	TitleNumber     string                `json:"titleNumber"`
	County          string                `json:"county"`
	LandSize        string                `json:"landSize"`
	LandSizeUnit    boundary.LandSizeUnit `json:"landSizeUnit"`
	DeedPlan        DocumentSlot          `json:"deedPlan"`
	SurveyPlan      DocumentSlot          `json:"surveyPlan"`
	SupportingTexts []string              `json:"supportingDocsTexts"`
	SupportingFiles []Attachment          `json:"supportingDocs"`
	Coordinates     []boundary.Coordinate `json:"coordinates"`
}

// NewDraft returns the empty draft shape
func NewDraft() *Draft {
	return &Draft{
		LandSizeUnit:    boundary.UnitAcres,
		SupportingTexts: []string{""},
		SupportingFiles: []Attachment{},
		Coordinates:     []boundary.Coordinate{},
	}
}

// Clone returns a deep copy. Attachment bytes are shared since they are
// never mutated after upload.
func (d *Draft) Clone() *Draft {
	out := *d
	out.DeedPlan.File = cloneAttachment(d.DeedPlan.File)
	out.SurveyPlan.File = cloneAttachment(d.SurveyPlan.File)
	out.SupportingTexts = append([]string{}, d.SupportingTexts...)
	out.SupportingFiles = append([]Attachment{}, d.SupportingFiles...)
	out.Coordinates = append([]boundary.Coordinate{}, d.Coordinates...)
	return &out
}

// Document returns the slot for kind
func (d *Draft) Document(kind DocumentKind) *DocumentSlot {
	if kind == DocumentSurveyPlan {
		return &d.SurveyPlan
	}
	return &d.DeedPlan
}

// ValidPoints returns the valid vertices in list order
func (d *Draft) ValidPoints() []boundary.Point {
	return boundary.ValidPoints(d.Coordinates)
}

// Summary is the derived view over a draft. It is computed on demand and
// never stored.
type Summary struct {
	TotalCoordinates     int                   `json:"totalCoordinates"`
	ValidCoordinates     int                   `json:"validCoordinates"`
	Completeness         boundary.Completeness `json:"completeness"`
	MissingCoordinates   int                   `json:"missingCoordinates"`
	StatusText           string                `json:"statusText"`
	AreaSquareMeters     float64               `json:"areaSquareMeters"`
	AreaDisplay          string                `json:"areaDisplay"`
	AreaUnits            boundary.AreaUnits    `json:"areaUnits"`
	GeodesicSquareMeters float64               `json:"geodesicSquareMeters"`
	DeclaredSquareMeters *float64              `json:"declaredSquareMeters,omitempty"`
	Ready                bool                  `json:"ready"`
}

// Summary derives completeness, area and readiness from the current draft
func (d *Draft) Summary() Summary {
	points := d.ValidPoints()
	state := boundary.Classify(len(points))
	area := boundary.ComputeArea(points)

	s := Summary{
		TotalCoordinates:   len(d.Coordinates),
		ValidCoordinates:   len(points),
		Completeness:       state,
		MissingCoordinates: boundary.MissingCoordinates(len(points)),
		StatusText:         boundary.StatusText(len(points)),
		AreaSquareMeters:   area,
		AreaDisplay:        boundary.FormatArea(area),
		AreaUnits:          boundary.AreaInUnits(area),
		Ready:              boundary.Ready(state, d.TitleNumber, d.DeedPlan.Text, d.DeedPlan.File != nil),
	}

	if poly, err := geospatial.Polygon(OrbPoints(points)); err == nil {
		s.GeodesicSquareMeters = geospatial.GeodesicArea(poly)
	}

	if size, err := strconv.ParseFloat(strings.TrimSpace(d.LandSize), 64); err == nil && size > 0 {
		m2 := d.LandSizeUnit.ToSquareMeters(size)
		s.DeclaredSquareMeters = &m2
	}

	return s
}

// OrbPoints converts lat/lng vertices into orb's lng/lat order
func OrbPoints(points []boundary.Point) []orb.Point {
	out := make([]orb.Point, len(points))
	for i, p := range points {
		out[i] = orb.Point{p.Lng, p.Lat}
	}
	return out
}

func cloneAttachment(a *Attachment) *Attachment {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

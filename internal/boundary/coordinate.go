package boundary

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Axis identifies which half of a coordinate pair is being validated
type Axis string

const (
	AxisLatitude  Axis = "lat"
	AxisLongitude Axis = "lng"
)

// Label returns the human readable axis name used in messages
func (a Axis) Label() string {
	if a == AxisLongitude {
		return "Longitude"
	}
	return "Latitude"
}

// Limit returns the absolute bound of the axis in degrees
func (a Axis) Limit() float64 {
	if a == AxisLongitude {
		return 180
	}
	return 90
}

// Coordinate is one user-entered boundary vertex. Latitude and longitude stay
// as raw text until parsed, so partially typed values survive a restore.
type Coordinate struct {
	ID       string `json:"id"`
	BeaconID string `json:"beaconId"`
	Lat      string `json:"lat"`
	Lng      string `json:"lng"`
}

// Point is a parsed vertex in decimal degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validation is the outcome of validating a single axis value
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// NewCoordinate mints a coordinate with a fresh opaque id
func NewCoordinate(beaconID, lat, lng string) Coordinate {
	return Coordinate{
		ID:       uuid.NewString(),
		BeaconID: beaconID,
		Lat:      lat,
		Lng:      lng,
	}
}

// ParseCoordinateValue converts raw user text to a finite number. A lone sign,
// empty text and anything that does not parse as a finite float is rejected.
func ParseCoordinateValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || s == "+" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ValidateCoordinate checks one axis value and returns the first applicable
// message: required, format, then range.
func ValidateCoordinate(raw string, axis Axis) Validation {
	label := axis.Label()

	if strings.TrimSpace(raw) == "" {
		return Validation{Message: label + " is required"}
	}

	v, ok := ParseCoordinateValue(raw)
	if !ok {
		return Validation{Message: "Invalid " + label + " format"}
	}

	limit := axis.Limit()
	if v < -limit || v > limit {
		return Validation{Message: label + " must be between " + formatLimit(-limit) + " and " + formatLimit(limit)}
	}

	return Validation{Valid: true}
}

// IsValidCoordinatePair reports whether both axes of c validate
func IsValidCoordinatePair(c Coordinate) bool {
	return ValidateCoordinate(c.Lat, AxisLatitude).Valid &&
		ValidateCoordinate(c.Lng, AxisLongitude).Valid
}

// Parsed returns the numeric vertex for a valid coordinate
func (c Coordinate) Parsed() (Point, bool) {
	if !IsValidCoordinatePair(c) {
		return Point{}, false
	}
	lat, _ := ParseCoordinateValue(c.Lat)
	lng, _ := ParseCoordinateValue(c.Lng)
	return Point{Lat: lat, Lng: lng}, true
}

// ValidPoints filters coords down to the valid vertices, preserving order
func ValidPoints(coords []Coordinate) []Point {
	points := make([]Point, 0, len(coords))
	for _, c := range coords {
		if p, ok := c.Parsed(); ok {
			points = append(points, p)
		}
	}
	return points
}

// CountValid returns the number of valid coordinates in coords
func CountValid(coords []Coordinate) int {
	n := 0
	for _, c := range coords {
		if IsValidCoordinatePair(c) {
			n++
		}
	}
	return n
}

func formatLimit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

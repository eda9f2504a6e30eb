package boundary

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MetersPerDegree is the equatorial length of one degree used for the
	// flat-earth square-degree conversion.
	MetersPerDegree = 111320.0

	SquareMetersPerHectare = 10000.0
	SquareMetersPerKm2     = 1000000.0
	SquareMetersPerAcre    = 4046.86
)

// AreaUnits is the secondary breakdown of a computed area
type AreaUnits struct {
	SquareMeters     float64 `json:"squareMeters"`
	Hectares         float64 `json:"hectares"`
	Acres            float64 `json:"acres"`
	SquareKilometers float64 `json:"squareKilometers"`
}

// SignedAreaSquareDegrees returns half the shoelace sum over (lng, lat)
// treated as planar (x, y). Reversing the vertex order flips the sign.
func SignedAreaSquareDegrees(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].Lng*points[j].Lat - points[j].Lng*points[i].Lat
	}
	return sum / 2
}

// ComputeArea returns the polygon area in square meters using the
// equirectangular approximation. Fewer than three vertices yield zero.
func ComputeArea(points []Point) float64 {
	return math.Abs(SignedAreaSquareDegrees(points)) * MetersPerDegree * MetersPerDegree
}

// FormatArea renders an area with a scale appropriate unit
func FormatArea(squareMeters float64) string {
	switch {
	case squareMeters <= 0:
		return "0 m²"
	case squareMeters < SquareMetersPerHectare:
		return fmt.Sprintf("%.2f m²", squareMeters)
	case squareMeters < SquareMetersPerKm2:
		return fmt.Sprintf("%.2f hectares", squareMeters/SquareMetersPerHectare)
	default:
		return fmt.Sprintf("%.2f km²", squareMeters/SquareMetersPerKm2)
	}
}

// AreaInUnits converts square meters into every reported unit
func AreaInUnits(squareMeters float64) AreaUnits {
	return AreaUnits{
		SquareMeters:     squareMeters,
		Hectares:         squareMeters / SquareMetersPerHectare,
		Acres:            squareMeters / SquareMetersPerAcre,
		SquareKilometers: squareMeters / SquareMetersPerKm2,
	}
}

// LandSizeUnit is the unit a declared land size is expressed in
type LandSizeUnit string

const (
	UnitAcres    LandSizeUnit = "acres"
	UnitSqm      LandSizeUnit = "sqm"
	UnitHectares LandSizeUnit = "hectares"
)

// LandSizeUnits lists the accepted declared size units in display order
var LandSizeUnits = []LandSizeUnit{UnitAcres, UnitSqm, UnitHectares}

// ParseLandSizeUnit returns the unit for s, or false if it is not recognised
func ParseLandSizeUnit(s string) (LandSizeUnit, bool) {
	u := LandSizeUnit(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range LandSizeUnits {
		if u == known {
			return u, true
		}
	}
	return "", false
}

// ToSquareMeters converts a declared size in this unit to square meters
func (u LandSizeUnit) ToSquareMeters(size float64) float64 {
	switch u {
	case UnitSqm:
		return size
	case UnitHectares:
		return size * SquareMetersPerHectare
	default:
		return size * SquareMetersPerAcre
	}
}

package boundary

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePoints = []Point{
	{Lat: -1.2921, Lng: 36.8219},
	{Lat: -1.2925, Lng: 36.8225},
	{Lat: -1.2930, Lng: 36.8215},
	{Lat: -1.2928, Lng: 36.8205},
}

func unitSquare() []Point {
	return []Point{
		{Lat: 0, Lng: 0},
		{Lat: 1, Lng: 0},
		{Lat: 1, Lng: 1},
		{Lat: 0, Lng: 1},
	}
}

func TestParseCoordinateValue(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"-1.2921", -1.2921, true},
		{"  36.8219 ", 36.8219, true},
		{"+45", 45, true},
		{"1e1", 10, true},
		{"", 0, false},
		{"   ", 0, false},
		{"-", 0, false},
		{"+", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-Infinity", 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, ok := ParseCoordinateValue(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		axis    Axis
		valid   bool
		message string
	}{
		{"empty latitude", "", AxisLatitude, false, "Latitude is required"},
		{"blank longitude", "  ", AxisLongitude, false, "Longitude is required"},
		{"bare sign", "-", AxisLatitude, false, "Invalid Latitude format"},
		{"garbage longitude", "east", AxisLongitude, false, "Invalid Longitude format"},
		{"latitude above range", "91", AxisLatitude, false, "Latitude must be between -90 and 90"},
		{"latitude below range", "-90.0001", AxisLatitude, false, "Latitude must be between -90 and 90"},
		{"longitude above range", "180.5", AxisLongitude, false, "Longitude must be between -180 and 180"},
		{"latitude boundary", "-90", AxisLatitude, true, ""},
		{"longitude boundary", "180", AxisLongitude, true, ""},
		{"latitude in range", "-1.2921", AxisLatitude, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCoordinate(tt.raw, tt.axis)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestRangeMessageTakesPrecedenceOverFormat(t *testing.T) {
	got := ValidateCoordinate("91", AxisLatitude)

	assert.False(t, got.Valid)
	assert.Equal(t, "Latitude must be between -90 and 90", got.Message)
	assert.NotContains(t, got.Message, "format")
}

func TestIsValidCoordinatePairMatchesParser(t *testing.T) {
	values := []string{"", "-", "0", "45.5", "-89.9", "90", "91", "-180", "179.99", "181", "x", "1e2"}

	for _, lat := range values {
		for _, lng := range values {
			c := Coordinate{Lat: lat, Lng: lng}
			pLat, okLat := ParseCoordinateValue(lat)
			pLng, okLng := ParseCoordinateValue(lng)
			want := okLat && okLng && math.Abs(pLat) <= 90 && math.Abs(pLng) <= 180

			assert.Equal(t, want, IsValidCoordinatePair(c), "lat=%q lng=%q", lat, lng)
		}
	}
}

func TestValidPointsPreservesOrder(t *testing.T) {
	coords := []Coordinate{
		NewCoordinate("A", "-1.2921", "36.8219"),
		NewCoordinate("B", "91", "36.8225"),
		NewCoordinate("C", "-1.2930", "36.8215"),
		NewCoordinate("D", "", "36.8205"),
	}

	points := ValidPoints(coords)

	require.Len(t, points, 2)
	assert.Equal(t, Point{Lat: -1.2921, Lng: 36.8219}, points[0])
	assert.Equal(t, Point{Lat: -1.2930, Lng: 36.8215}, points[1])
	assert.Equal(t, 2, CountValid(coords))
}

func TestNewCoordinateMintsUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := NewCoordinate("", "", "")
		require.NotEmpty(t, c.ID)
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	result := ParseCSV("A,-1.2921,36.8219\nbad,row\nB,-1.2925,36.8225\nC,-1.2930,36.8215")

	require.Equal(t, 3, result.Accepted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "A", result.Coordinates[0].BeaconID)
	assert.Equal(t, "B", result.Coordinates[1].BeaconID)
	assert.Equal(t, "C", result.Coordinates[2].BeaconID)
	assert.Equal(t, CompletenessComplete, Classify(CountValid(result.Coordinates)))
}

func TestParseCSVRowHandling(t *testing.T) {
	text := "\r\n" +
		" A , -1.50 , 36.80 ,extra,columns\r\n" +
		"   \n" +
		"B,north,36.8\n" +
		"C,NaN,36.8\n" +
		"D,-1.2,\n" +
		"E,-1.2,36.9"

	result := ParseCSV(text)

	require.Equal(t, 2, result.Accepted)
	assert.Equal(t, 3, result.Skipped)

	first := result.Coordinates[0]
	assert.Equal(t, "A", first.BeaconID)
	assert.Equal(t, "-1.5", first.Lat)
	assert.Equal(t, "36.8", first.Lng)
	assert.Equal(t, "E", result.Coordinates[1].BeaconID)
	assert.NotEqual(t, first.ID, result.Coordinates[1].ID)
}

func TestParseCSVKeepsOutOfRangeNumbers(t *testing.T) {
	result := ParseCSV("A,95,36.8")

	require.Equal(t, 1, result.Accepted)
	assert.False(t, IsValidCoordinatePair(result.Coordinates[0]))
}

func TestReadCSV(t *testing.T) {
	result, err := ReadCSV(bytes.NewBufferString("A,-1.2921,36.8219\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)

	_, err = ReadCSV(bytes.NewBufferString("beacon,lat,lng\nno,numbers,here\n"))
	assert.True(t, errors.Is(err, ErrNoCoordinates))
}

func TestImportModeApply(t *testing.T) {
	existing := []Coordinate{NewCoordinate("X", "1", "1")}
	imported := []Coordinate{NewCoordinate("A", "2", "2"), NewCoordinate("B", "3", "3")}

	replaced := ParseImportMode("").Apply(existing, imported)
	assert.Equal(t, imported, replaced)

	appended := ParseImportMode("Append").Apply(existing, imported)
	require.Len(t, appended, 3)
	assert.Equal(t, "X", appended[0].BeaconID)
	assert.Equal(t, "B", appended[2].BeaconID)
}

func TestComputeAreaNeedsThreeVertices(t *testing.T) {
	assert.Equal(t, 0.0, ComputeArea(nil))
	assert.Equal(t, 0.0, ComputeArea(samplePoints[:1]))
	assert.Equal(t, 0.0, ComputeArea(samplePoints[:2]))
	assert.Equal(t, 0.0, SignedAreaSquareDegrees(samplePoints[:2]))
}

func TestComputeAreaUnitSquare(t *testing.T) {
	square := unitSquare()

	assert.InDelta(t, -1.0, SignedAreaSquareDegrees(square), 1e-12)
	assert.InDelta(t, 111320.0*111320.0, ComputeArea(square), 1e-3)
}

func TestComputeAreaRotationAndReversal(t *testing.T) {
	base := SignedAreaSquareDegrees(samplePoints)
	require.NotZero(t, base)

	for shift := 1; shift < len(samplePoints); shift++ {
		rotated := append(append([]Point{}, samplePoints[shift:]...), samplePoints[:shift]...)
		assert.InDelta(t, base, SignedAreaSquareDegrees(rotated), 1e-12)
		assert.InDelta(t, ComputeArea(samplePoints), ComputeArea(rotated), 1e-6)
	}

	reversed := make([]Point, len(samplePoints))
	for i, p := range samplePoints {
		reversed[len(samplePoints)-1-i] = p
	}
	assert.InDelta(t, -base, SignedAreaSquareDegrees(reversed), 1e-12)
	assert.InDelta(t, ComputeArea(samplePoints), ComputeArea(reversed), 1e-6)
}

func TestSampleParcel(t *testing.T) {
	area := ComputeArea(samplePoints)

	assert.Greater(t, area, 0.0)
	assert.Equal(t, CompletenessComplete, Classify(len(samplePoints)))
	assert.True(t, Ready(Classify(len(samplePoints)), "LR 12345/67", "Deed plan registered in 2020", false))
}

func TestFormatArea(t *testing.T) {
	tests := []struct {
		m2   float64
		want string
	}{
		{0, "0 m²"},
		{-12, "0 m²"},
		{5000, "5000.00 m²"},
		{9999.5, "9999.50 m²"},
		{10000, "1.00 hectares"},
		{25000, "2.50 hectares"},
		{1000000, "1.00 km²"},
		{2500000, "2.50 km²"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatArea(tt.m2), "area %v", tt.m2)
	}
}

func TestAreaInUnits(t *testing.T) {
	units := AreaInUnits(40468.6)

	assert.InDelta(t, 40468.6, units.SquareMeters, 1e-9)
	assert.InDelta(t, 4.04686, units.Hectares, 1e-9)
	assert.InDelta(t, 10.0, units.Acres, 1e-9)
	assert.InDelta(t, 0.0404686, units.SquareKilometers, 1e-12)
}

func TestLandSizeUnits(t *testing.T) {
	u, ok := ParseLandSizeUnit(" Hectares ")
	require.True(t, ok)
	assert.Equal(t, UnitHectares, u)
	assert.InDelta(t, 25000.0, u.ToSquareMeters(2.5), 1e-9)

	_, ok = ParseLandSizeUnit("furlongs")
	assert.False(t, ok)

	assert.InDelta(t, 4046.86, UnitAcres.ToSquareMeters(1), 1e-9)
	assert.InDelta(t, 12.5, UnitSqm.ToSquareMeters(12.5), 1e-9)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, CompletenessEmpty, Classify(0))
	assert.Equal(t, CompletenessInsufficient, Classify(1))
	assert.Equal(t, CompletenessInsufficient, Classify(2))
	assert.Equal(t, CompletenessComplete, Classify(3))
	assert.Equal(t, CompletenessComplete, Classify(40))
	assert.Equal(t, Classify(2), Classify(2))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Add coordinates", StatusText(0))
	assert.Equal(t, "Need 2 more", StatusText(1))
	assert.Equal(t, "Need 1 more", StatusText(2))
	assert.Equal(t, "Complete", StatusText(3))
	assert.Equal(t, 1, MissingCoordinates(2))
	assert.Equal(t, 0, MissingCoordinates(5))
}

func TestReady(t *testing.T) {
	complete := CompletenessComplete

	assert.True(t, Ready(complete, "LR 1", "", true))
	assert.True(t, Ready(complete, "LR 1", "text", false))
	assert.False(t, Ready(complete, "  ", "text", true))
	assert.False(t, Ready(complete, "LR 1", " ", false))
	assert.False(t, Ready(CompletenessInsufficient, "LR 1", "text", true))
}

func TestNormalizeCounty(t *testing.T) {
	assert.Len(t, Counties, 47)

	c, ok := NormalizeCounty("nairobi")
	assert.True(t, ok)
	assert.Equal(t, "Nairobi", c)

	c, ok = NormalizeCounty("")
	assert.True(t, ok)
	assert.Empty(t, c)

	_, ok = NormalizeCounty("Atlantis")
	assert.False(t, ok)
}

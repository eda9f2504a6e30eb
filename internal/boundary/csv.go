package boundary

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoCoordinates is returned when an import yields no usable rows
var ErrNoCoordinates = errors.New("no valid coordinates found")

// CSVErrorMessage is the user facing message for a failed import
const CSVErrorMessage = "Error parsing CSV file. Please check the format."

// ImportMode selects how imported coordinates combine with the existing list
type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportAppend  ImportMode = "append"
)

// ParseImportMode maps request text onto an ImportMode, defaulting to replace
func ParseImportMode(s string) ImportMode {
	if ImportMode(strings.ToLower(strings.TrimSpace(s))) == ImportAppend {
		return ImportAppend
	}
	return ImportReplace
}

// Apply combines imported coordinates with the existing list
func (m ImportMode) Apply(existing, imported []Coordinate) []Coordinate {
	if m == ImportAppend {
		out := make([]Coordinate, 0, len(existing)+len(imported))
		out = append(out, existing...)
		return append(out, imported...)
	}
	return imported
}

// ImportResult describes the rows accepted from one import
type ImportResult struct {
	Coordinates []Coordinate `json:"coordinates"`
	Accepted    int          `json:"accepted"`
	Skipped     int          `json:"skipped"`
}

// ParseCSV reads beaconId,lat,lng rows. Blank rows are ignored, short rows and
// rows with non-numeric lat/lng are skipped, and columns past the third are
// dropped. Lat/lng range is not checked here; out of range values surface as
// coordinate errors once the rows are in the draft.
func ParseCSV(text string) ImportResult {
	var result ImportResult

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			result.Skipped++
			continue
		}

		lat, okLat := ParseCoordinateValue(parts[1])
		lng, okLng := ParseCoordinateValue(parts[2])
		if !okLat || !okLng {
			result.Skipped++
			continue
		}

		result.Coordinates = append(result.Coordinates, NewCoordinate(
			strings.TrimSpace(parts[0]),
			strconv.FormatFloat(lat, 'f', -1, 64),
			strconv.FormatFloat(lng, 'f', -1, 64),
		))
	}

	result.Accepted = len(result.Coordinates)
	return result
}

// ReadCSV reads an uploaded file and parses it. ErrNoCoordinates is returned
// when nothing was accepted.
func ReadCSV(r io.Reader) (ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to read csv: %w", err)
	}

	result := ParseCSV(string(data))
	if result.Accepted == 0 {
		return result, ErrNoCoordinates
	}
	return result, nil
}

package boundary

import (
	"fmt"
	"strings"
)

// MinVertices is the number of valid coordinates needed to close a polygon
const MinVertices = 3

// Completeness classifies how close a coordinate set is to a usable boundary
type Completeness string

const (
	CompletenessEmpty        Completeness = "empty"
	CompletenessInsufficient Completeness = "insufficient"
	CompletenessComplete     Completeness = "complete"
)

// Classify maps a valid coordinate count onto a completeness state
func Classify(validCount int) Completeness {
	switch {
	case validCount <= 0:
		return CompletenessEmpty
	case validCount < MinVertices:
		return CompletenessInsufficient
	default:
		return CompletenessComplete
	}
}

// MissingCoordinates returns how many more valid coordinates are needed
func MissingCoordinates(validCount int) int {
	if validCount >= MinVertices {
		return 0
	}
	if validCount < 0 {
		return MinVertices
	}
	return MinVertices - validCount
}

// StatusText is the short label shown next to the coordinate list
func StatusText(validCount int) string {
	switch Classify(validCount) {
	case CompletenessEmpty:
		return "Add coordinates"
	case CompletenessInsufficient:
		return fmt.Sprintf("Need %d more", MissingCoordinates(validCount))
	default:
		return "Complete"
	}
}

// Ready reports whether a draft may be submitted
func Ready(state Completeness, titleNumber, deedPlanText string, hasDeedPlanFile bool) bool {
	if state != CompletenessComplete {
		return false
	}
	if strings.TrimSpace(titleNumber) == "" {
		return false
	}
	return strings.TrimSpace(deedPlanText) != "" || hasDeedPlanFile
}

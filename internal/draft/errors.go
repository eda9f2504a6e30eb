package draft

import (
	"sort"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
)

// ErrorKind tags an ErrorKey
type ErrorKind string

const (
	FieldError      ErrorKind = "field"
	CoordinateError ErrorKind = "coordinate"
)

// Field error slots
const (
	FieldTitleNumber    = "titleNumber"
	FieldCounty         = "county"
	FieldLandSize       = "landSize"
	FieldLandSizeUnit   = "landSizeUnit"
	FieldDeedPlan       = "deedPlan"
	FieldDeedPlanFile   = "deedPlanFile"
	FieldSurveyPlanFile = "surveyPlanFile"
	FieldSupportingDocs = "supportingDocs"
	FieldCoordinates    = "coordinates"
)

// ErrorKey addresses one error slot. Field errors set Field; coordinate
// errors set CoordinateID and Axis.
type ErrorKey struct {
	Kind         ErrorKind
	Field        string
	CoordinateID string
	Axis         boundary.Axis
}

// FieldKey returns the slot for a named form field
func FieldKey(field string) ErrorKey {
	return ErrorKey{Kind: FieldError, Field: field}
}

// CoordinateKey returns the slot for one axis of one coordinate
func CoordinateKey(id string, axis boundary.Axis) ErrorKey {
	return ErrorKey{Kind: CoordinateError, CoordinateID: id, Axis: axis}
}

// ErrorEntry is the wire form of one error slot
type ErrorEntry struct {
	Kind         ErrorKind     `json:"kind"`
	Field        string        `json:"field,omitempty"`
	CoordinateID string        `json:"coordinateId,omitempty"`
	Axis         boundary.Axis `json:"axis,omitempty"`
	Message      string        `json:"message"`
}

// ErrorSet is a collection of field-scoped messages
type ErrorSet map[ErrorKey]string

// Set writes message into key's slot
func (s ErrorSet) Set(key ErrorKey, message string) {
	s[key] = message
}

// Clear empties key's slot
func (s ErrorSet) Clear(key ErrorKey) {
	delete(s, key)
}

// Get returns the message in key's slot
func (s ErrorSet) Get(key ErrorKey) (string, bool) {
	msg, ok := s[key]
	return msg, ok
}

// ClearCoordinate removes every slot belonging to coordinate id
func (s ErrorSet) ClearCoordinate(id string) {
	for k := range s {
		if k.Kind == CoordinateError && k.CoordinateID == id {
			delete(s, k)
		}
	}
}

// ClearCoordinates removes every coordinate slot
func (s ErrorSet) ClearCoordinates() {
	for k := range s {
		if k.Kind == CoordinateError {
			delete(s, k)
		}
	}
}

// Clone copies the set
func (s ErrorSet) Clone() ErrorSet {
	out := make(ErrorSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Entries lists the slots in a stable order: fields first, by name, then
// coordinates by id and axis.
func (s ErrorSet) Entries() []ErrorEntry {
	entries := make([]ErrorEntry, 0, len(s))
	for k, msg := range s {
		entries = append(entries, ErrorEntry{
			Kind:         k.Kind,
			Field:        k.Field,
			CoordinateID: k.CoordinateID,
			Axis:         k.Axis,
			Message:      msg,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Kind != b.Kind {
			return a.Kind == FieldError
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.CoordinateID != b.CoordinateID {
			return a.CoordinateID < b.CoordinateID
		}
		return a.Axis < b.Axis
	})
	return entries
}

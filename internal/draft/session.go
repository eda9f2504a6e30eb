package draft

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
	"land-portal/parcel-portal/parcel-portal-backend/internal/metrics"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/geospatial"
)

var (
	ErrSessionClosed      = errors.New("draft session is closed")
	ErrCoordinateNotFound = errors.New("coordinate not found")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidCounty      = errors.New("unknown county")
	ErrInvalidLandUnit    = errors.New("unknown land size unit")
)

// Import sources
const (
	SourceCSV     = "csv"
	SourceGeoJSON = "geojson"
)

// FieldsUpdate carries scalar field edits. Nil fields are left unchanged.
type FieldsUpdate struct {
	TitleNumber  *string `json:"titleNumber"`
	County       *string `json:"county"`
	LandSize     *string `json:"landSize"`
	LandSizeUnit *string `json:"landSizeUnit"`
}

// CoordinateUpdate carries edits to one coordinate. Nil fields are left
// unchanged.
type CoordinateUpdate struct {
	BeaconID *string `json:"beaconId"`
	Lat      *string `json:"lat"`
	Lng      *string `json:"lng"`
}

// View is a consistent read of the draft with its derived summary and
// current error slots.
type View struct {
	Draft   *Draft       `json:"draft"`
	Summary Summary      `json:"summary"`
	Errors  []ErrorEntry `json:"errors"`
}

// Session is the single writer for the draft. Every mutation completes under
// the session lock; persistence is scheduled after the lock is released.
type Session struct {
	mu     sync.Mutex
	draft  *Draft
	errors ErrorSet
	closed bool

	persister *Persister
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Open restores the persisted draft and starts a session. Restore failures
// are logged and the empty draft is used.
func Open(ctx context.Context, persister *Persister, logger *zap.Logger, m *metrics.Metrics) *Session {
	logger = logger.With(zap.String("component", "draft_session"))

	d, err := persister.Restore(ctx)
	if err != nil {
		logger.Warn("Failed to restore saved draft, starting empty", zap.String("key", persister.Key()), zap.Error(err))
	}

	return &Session{
		draft:     d,
		errors:    make(ErrorSet),
		persister: persister,
		logger:    logger,
		metrics:   m,
	}
}

// Snapshot returns a copy of the current draft
func (s *Session) Snapshot() *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// View returns the draft, its summary and error slots from one lock hold
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		Draft:   s.draft.Clone(),
		Summary: s.draft.Summary(),
		Errors:  s.errors.Entries(),
	}
}

// Errors returns a copy of the error slots
func (s *Session) Errors() ErrorSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors.Clone()
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// edit runs fn under the lock and schedules a write when fn reports a change
func (s *Session) edit(fn func() (changed bool, err error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	changed, err := fn()
	s.mu.Unlock()

	if changed {
		s.persister.Schedule(s.Snapshot)
	}
	return err
}

// UpdateFields applies scalar field edits. An unknown county or unit sets
// that field's error slot and leaves the stored value unchanged.
func (s *Session) UpdateFields(u FieldsUpdate) error {
	return s.edit(func() (bool, error) {
		changed := false
		var errs []error

		if u.TitleNumber != nil {
			s.draft.TitleNumber = *u.TitleNumber
			s.errors.Clear(FieldKey(FieldTitleNumber))
			changed = true
		}
		if u.County != nil {
			if county, ok := boundary.NormalizeCounty(*u.County); ok {
				s.draft.County = county
				s.errors.Clear(FieldKey(FieldCounty))
				changed = true
			} else {
				s.errors.Set(FieldKey(FieldCounty), "Please select a valid county")
				errs = append(errs, ErrInvalidCounty)
			}
		}
		if u.LandSize != nil {
			s.draft.LandSize = *u.LandSize
			s.errors.Clear(FieldKey(FieldLandSize))
			changed = true
		}
		if u.LandSizeUnit != nil {
			if unit, ok := boundary.ParseLandSizeUnit(*u.LandSizeUnit); ok {
				s.draft.LandSizeUnit = unit
				s.errors.Clear(FieldKey(FieldLandSizeUnit))
				changed = true
			} else {
				s.errors.Set(FieldKey(FieldLandSizeUnit), "Land size unit must be acres, sqm or hectares")
				errs = append(errs, ErrInvalidLandUnit)
			}
		}

		return changed, errors.Join(errs...)
	})
}

// SetDocumentText sets the text form of a plan document
func (s *Session) SetDocumentText(kind DocumentKind, text string) error {
	return s.edit(func() (bool, error) {
		s.draft.Document(kind).Text = text
		if kind == DocumentDeedPlan && strings.TrimSpace(text) != "" {
			s.errors.Clear(FieldKey(FieldDeedPlan))
		}
		return true, nil
	})
}

// AttachDocument validates and attaches a plan document file. A rejected file
// sets the document's file slot and leaves any previous file in place.
func (s *Session) AttachDocument(kind DocumentKind, name string, r io.Reader) (Attachment, error) {
	att, readErr := ReadAttachment(name, r)

	fileKey := FieldKey(FieldDeedPlanFile)
	if kind == DocumentSurveyPlan {
		fileKey = FieldKey(FieldSurveyPlanFile)
	}

	err := s.edit(func() (bool, error) {
		if readErr != nil {
			s.errors.Set(fileKey, AttachmentMessage(readErr))
			return false, readErr
		}
		s.draft.Document(kind).File = &att
		s.errors.Clear(fileKey)
		if kind == DocumentDeedPlan {
			s.errors.Clear(FieldKey(FieldDeedPlan))
		}
		return true, nil
	})
	return att, err
}

// RemoveDocumentFile detaches a plan document file
func (s *Session) RemoveDocumentFile(kind DocumentKind) error {
	return s.edit(func() (bool, error) {
		slot := s.draft.Document(kind)
		if slot.File == nil {
			return false, nil
		}
		slot.File = nil
		return true, nil
	})
}

// AddSupportingText appends an empty supporting text entry and returns its
// index.
func (s *Session) AddSupportingText() (int, error) {
	var index int
	err := s.edit(func() (bool, error) {
		s.draft.SupportingTexts = append(s.draft.SupportingTexts, "")
		index = len(s.draft.SupportingTexts) - 1
		return true, nil
	})
	return index, err
}

// UpdateSupportingText replaces the text at index
func (s *Session) UpdateSupportingText(index int, text string) error {
	return s.edit(func() (bool, error) {
		if index < 0 || index >= len(s.draft.SupportingTexts) {
			return false, ErrIndexOutOfRange
		}
		s.draft.SupportingTexts[index] = text
		return true, nil
	})
}

// RemoveSupportingText deletes the text entry at index
func (s *Session) RemoveSupportingText(index int) error {
	return s.edit(func() (bool, error) {
		texts := s.draft.SupportingTexts
		if index < 0 || index >= len(texts) {
			return false, ErrIndexOutOfRange
		}
		s.draft.SupportingTexts = append(texts[:index:index], texts[index+1:]...)
		return true, nil
	})
}

// AddSupportingFile validates and appends a supporting document file
func (s *Session) AddSupportingFile(name string, r io.Reader) (Attachment, error) {
	att, readErr := ReadAttachment(name, r)

	err := s.edit(func() (bool, error) {
		if readErr != nil {
			s.errors.Set(FieldKey(FieldSupportingDocs), AttachmentMessage(readErr))
			return false, readErr
		}
		s.draft.SupportingFiles = append(s.draft.SupportingFiles, att)
		s.errors.Clear(FieldKey(FieldSupportingDocs))
		return true, nil
	})
	return att, err
}

// RemoveSupportingFile deletes the supporting file at index
func (s *Session) RemoveSupportingFile(index int) error {
	return s.edit(func() (bool, error) {
		files := s.draft.SupportingFiles
		if index < 0 || index >= len(files) {
			return false, ErrIndexOutOfRange
		}
		s.draft.SupportingFiles = append(files[:index:index], files[index+1:]...)
		return true, nil
	})
}

// AddCoordinate appends a coordinate with a fresh id. Empty values are
// allowed; the user fills them in later.
func (s *Session) AddCoordinate(beaconID, lat, lng string) (boundary.Coordinate, error) {
	c := boundary.NewCoordinate(beaconID, lat, lng)

	err := s.edit(func() (bool, error) {
		s.draft.Coordinates = append(s.draft.Coordinates, c)
		s.validateAxisLocked(c.ID, boundary.AxisLatitude, c.Lat)
		s.validateAxisLocked(c.ID, boundary.AxisLongitude, c.Lng)
		return true, nil
	})
	return c, err
}

// UpdateCoordinate edits one coordinate. Only the slots of the edited axes
// are touched.
func (s *Session) UpdateCoordinate(id string, u CoordinateUpdate) (boundary.Coordinate, error) {
	var updated boundary.Coordinate

	err := s.edit(func() (bool, error) {
		i := s.indexLocked(id)
		if i < 0 {
			return false, ErrCoordinateNotFound
		}

		c := &s.draft.Coordinates[i]
		if u.BeaconID != nil {
			c.BeaconID = *u.BeaconID
		}
		if u.Lat != nil {
			c.Lat = *u.Lat
			s.validateAxisLocked(id, boundary.AxisLatitude, c.Lat)
		}
		if u.Lng != nil {
			c.Lng = *u.Lng
			s.validateAxisLocked(id, boundary.AxisLongitude, c.Lng)
		}
		updated = *c
		return true, nil
	})
	return updated, err
}

// RemoveCoordinate deletes a coordinate and its error slots
func (s *Session) RemoveCoordinate(id string) error {
	return s.edit(func() (bool, error) {
		i := s.indexLocked(id)
		if i < 0 {
			return false, ErrCoordinateNotFound
		}
		coords := s.draft.Coordinates
		s.draft.Coordinates = append(coords[:i:i], coords[i+1:]...)
		s.errors.ClearCoordinate(id)
		return true, nil
	})
}

// ImportCSV reads an uploaded CSV and merges it per mode. When nothing is
// accepted the list is left untouched and the coordinates slot is set.
func (s *Session) ImportCSV(r io.Reader, mode boundary.ImportMode) (boundary.ImportResult, error) {
	result, readErr := boundary.ReadCSV(r)
	s.metrics.ObserveImport(SourceCSV, readErr == nil, result.Skipped)

	err := s.edit(func() (bool, error) {
		if readErr != nil {
			s.errors.Set(FieldKey(FieldCoordinates), boundary.CSVErrorMessage)
			return false, readErr
		}
		s.applyImportLocked(result.Coordinates, mode)
		return true, nil
	})
	if readErr != nil {
		s.logger.Info("CSV import rejected", zap.Int("skipped", result.Skipped), zap.Error(readErr))
	}
	return result, err
}

// ImportGeoJSON takes the outer ring of a Polygon feature as the boundary.
// Vertices are labelled B1, B2, ... in ring order.
func (s *Session) ImportGeoJSON(data []byte, mode boundary.ImportMode) (boundary.ImportResult, error) {
	var result boundary.ImportResult

	ring, parseErr := parseBoundaryRing(data)
	if parseErr == nil {
		for i, p := range ring {
			result.Coordinates = append(result.Coordinates, boundary.NewCoordinate(
				fmt.Sprintf("B%d", i+1),
				formatDegrees(p.Lat()),
				formatDegrees(p.Lon()),
			))
		}
		result.Accepted = len(result.Coordinates)
	}
	s.metrics.ObserveImport(SourceGeoJSON, parseErr == nil, 0)

	err := s.edit(func() (bool, error) {
		if parseErr != nil {
			s.errors.Set(FieldKey(FieldCoordinates), "Error parsing GeoJSON boundary. Please check the format.")
			return false, parseErr
		}
		s.applyImportLocked(result.Coordinates, mode)
		return true, nil
	})
	return result, err
}

func parseBoundaryRing(data []byte) ([]orb.Point, error) {
	g, err := geospatial.ValidateGeoJSON(data)
	if err != nil {
		return nil, err
	}
	return geospatial.OuterRing(g)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *Session) applyImportLocked(imported []boundary.Coordinate, mode boundary.ImportMode) {
	if mode != boundary.ImportAppend {
		s.errors.ClearCoordinates()
	}
	s.draft.Coordinates = mode.Apply(s.draft.Coordinates, imported)
	s.errors.Clear(FieldKey(FieldCoordinates))
	for _, c := range imported {
		s.validateAxisLocked(c.ID, boundary.AxisLatitude, c.Lat)
		s.validateAxisLocked(c.ID, boundary.AxisLongitude, c.Lng)
	}
}

// LoadSample replaces the draft with the demonstration parcel
func (s *Session) LoadSample() error {
	return s.edit(func() (bool, error) {
		s.draft = SampleDraft()
		s.errors = make(ErrorSet)
		return true, nil
	})
}

// ApplyPreconditionErrors writes the given messages into their field slots
// and clears the other precondition slots. No other slot is touched.
func (s *Session) ApplyPreconditionErrors(messages map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, field := range []string{FieldTitleNumber, FieldDeedPlan, FieldCoordinates} {
		if msg, ok := messages[field]; ok {
			s.errors.Set(FieldKey(field), msg)
		} else {
			s.errors.Clear(FieldKey(field))
		}
	}
}

// Clear resets the draft to its empty shape and deletes the snapshot
func (s *Session) Clear(ctx context.Context) error {
	if s.Closed() {
		return ErrSessionClosed
	}

	return s.persister.Clear(ctx, func() {
		s.mu.Lock()
		s.draft = NewDraft()
		s.errors = make(ErrorSet)
		s.mu.Unlock()
	})
}

// Close flushes pending writes and rejects further edits. Calling it more
// than once is a no-op.
func (s *Session) Close(ctx context.Context) error {
	// Edits are rejected from here on, so nothing is scheduled after the flush.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.persister.Flush(ctx); err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}
	return nil
}

// validateAxisLocked sets the slot when value is non-empty and invalid,
// otherwise clears it.
func (s *Session) validateAxisLocked(id string, axis boundary.Axis, value string) {
	key := CoordinateKey(id, axis)
	v := boundary.ValidateCoordinate(value, axis)
	if !v.Valid && strings.TrimSpace(value) != "" {
		s.errors.Set(key, v.Message)
		return
	}
	s.errors.Clear(key)
}

func (s *Session) indexLocked(id string) int {
	for i, c := range s.draft.Coordinates {
		if c.ID == id {
			return i
		}
	}
	return -1
}

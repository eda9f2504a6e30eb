package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file type
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat resolves a format name, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Filename returns a download name for a parcel export
func (f Format) Filename(titleNumber string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(titleNumber))
	if base == "" {
		base = "parcel"
	}
	return fmt.Sprintf("%s_beacons.%s", base, f)
}

// Row is one beacon in the schedule
type Row struct {
	Index    int
	BeaconID string
	Lat      string
	Lng      string
	Valid    bool
}

// Schedule is a beacon schedule with its parcel summary
type Schedule struct {
	TitleNumber  string
	County       string
	LandSize     string
	LandSizeUnit string
	Rows         []Row
	Summary      draft.Summary
	GeneratedAt  time.Time
}

// NewSchedule builds the schedule for d
func NewSchedule(d *draft.Draft, now time.Time) Schedule {
	s := Schedule{
		TitleNumber:  d.TitleNumber,
		County:       d.County,
		LandSize:     d.LandSize,
		LandSizeUnit: string(d.LandSizeUnit),
		Rows:         make([]Row, 0, len(d.Coordinates)),
		Summary:      d.Summary(),
		GeneratedAt:  now,
	}
	for i, c := range d.Coordinates {
		s.Rows = append(s.Rows, Row{
			Index:    i + 1,
			BeaconID: c.BeaconID,
			Lat:      strings.TrimSpace(c.Lat),
			Lng:      strings.TrimSpace(c.Lng),
			Valid:    boundary.IsValidCoordinatePair(c),
		})
	}
	return s
}

// Write renders the draft in the given format
func Write(w io.Writer, format Format, d *draft.Draft, now time.Time) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, d.Coordinates, DefaultCSVOptions())
	case FormatXLSX:
		return WriteXLSX(w, NewSchedule(d, now), DefaultExcelOptions())
	case FormatPDF:
		return WritePDF(w, NewSchedule(d, now), DefaultPDFOptions())
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

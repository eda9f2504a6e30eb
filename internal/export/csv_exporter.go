package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
)

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter     rune `json:"delimiter"`
	UseCRLF       bool `json:"use_crlf"`
	IncludeHeader bool `json:"include_header"`
	// IncludeInvalid keeps rows that do not parse. The importer skips them.
	IncludeInvalid bool `json:"include_invalid"`
	// ImporterDialect rewrites beacon ids so no field needs quoting, since
	// the importer splits on bare commas.
	ImporterDialect bool `json:"importer_dialect"`
}

// DefaultCSVOptions returns options whose output the CSV importer accepts
// row for row.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:       ',',
		ImporterDialect: true,
	}
}

var importerDialect = strings.NewReplacer(
	",", ";",
	`"`, "'",
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
)

// importerBeaconID maps a free-text beacon id onto text the importer reads
// back unchanged.
func importerBeaconID(id string) string {
	return strings.TrimSpace(importerDialect.Replace(id))
}

// WriteCSV writes beaconId,lat,lng rows in list order
func WriteCSV(w io.Writer, coords []boundary.Coordinate, options CSVOptions) error {
	writer := csv.NewWriter(w)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}
	writer.UseCRLF = options.UseCRLF

	if options.IncludeHeader {
		if err := writer.Write([]string{"beaconId", "lat", "lng"}); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, c := range coords {
		record := []string{c.BeaconID, c.Lat, c.Lng}
		if options.ImporterDialect {
			record[0] = importerBeaconID(c.BeaconID)
		}
		if p, ok := c.Parsed(); ok {
			record[1] = strconv.FormatFloat(p.Lat, 'f', -1, 64)
			record[2] = strconv.FormatFloat(p.Lng, 'f', -1, 64)
		} else if !options.IncludeInvalid {
			continue
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

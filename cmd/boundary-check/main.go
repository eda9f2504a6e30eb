package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
	"land-portal/parcel-portal/parcel-portal-backend/internal/export"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/logger"
)

func main() {
	input := flag.String("in", "", "beacon CSV file (beaconId,lat,lng per row, no header)")
	output := flag.String("out", "", "optional export file")
	format := flag.String("format", "pdf", "export format: csv, xlsx or pdf")
	title := flag.String("title", "", "title number printed on exports")
	flag.Parse()

	log, err := logger.NewLogger("development", "warn")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*input, *output, *format, *title, log); err != nil {
		log.Error("Boundary check failed", zap.String("file", *input), zap.Error(err))
		os.Exit(1)
	}
}

func run(input, output, format, title string, log *zap.Logger) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	result, err := boundary.ReadCSV(f)
	if err != nil {
		fmt.Println(boundary.CSVErrorMessage)
		return err
	}

	d := draft.NewDraft()
	d.TitleNumber = title
	d.Coordinates = result.Coordinates
	sum := d.Summary()

	fmt.Printf("Rows accepted:     %d\n", result.Accepted)
	fmt.Printf("Rows skipped:      %d\n", result.Skipped)
	fmt.Printf("Valid coordinates: %d of %d\n", sum.ValidCoordinates, sum.TotalCoordinates)
	fmt.Printf("Status:            %s\n", sum.StatusText)
	fmt.Printf("Area:              %s\n", sum.AreaDisplay)
	fmt.Printf("Area (acres):      %.2f\n", sum.AreaUnits.Acres)
	fmt.Printf("Geodesic area:     %.2f m²\n", sum.GeodesicSquareMeters)

	for _, c := range d.Coordinates {
		for _, axis := range []boundary.Axis{boundary.AxisLatitude, boundary.AxisLongitude} {
			raw := c.Lat
			if axis == boundary.AxisLongitude {
				raw = c.Lng
			}
			if v := boundary.ValidateCoordinate(raw, axis); !v.Valid {
				fmt.Printf("  beacon %q: %s\n", c.BeaconID, v.Message)
			}
		}
	}

	if output == "" {
		return nil
	}

	fm, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := export.Write(out, fm, d, time.Now()); err != nil {
		return err
	}
	log.Info("Export written", zap.String("file", output), zap.String("format", string(fm)))
	return nil
}

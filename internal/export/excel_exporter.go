package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	BeaconSheet  string            `json:"beacon_sheet"`
	SummarySheet string            `json:"summary_sheet"`
	FreezeHeader bool              `json:"freeze_header"`
	AutoFilter   bool              `json:"auto_filter"`
	NumberFormat string            `json:"number_format"`
	HeaderStyle  *ExcelStyleConfig `json:"header_style,omitempty"`
	DataStyle    *ExcelStyleConfig `json:"data_style,omitempty"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"` // left, center, right
	Border    bool   `json:"border"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		BeaconSheet:  "Beacons",
		SummarySheet: "Summary",
		FreezeHeader: true,
		AutoFilter:   true,
		NumberFormat: "#,##0.00",
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "4472C4",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
		DataStyle: &ExcelStyleConfig{
			FontSize:  11,
			Alignment: "left",
			Border:    true,
		},
	}
}

var beaconColumns = []string{"#", "Beacon", "Latitude", "Longitude", "Valid"}

// WriteXLSX writes the beacon schedule and parcel summary as a workbook
func WriteXLSX(w io.Writer, s Schedule, options ExcelOptions) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", options.BeaconSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeBeaconSheet(file, s, options); err != nil {
		return err
	}
	if _, err := file.NewSheet(options.SummarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSummarySheet(file, s, options); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeBeaconSheet(file *excelize.File, s Schedule, options ExcelOptions) error {
	sheet := options.BeaconSheet

	headerStyle, err := createStyle(file, options.HeaderStyle)
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	dataStyle, err := createStyle(file, options.DataStyle)
	if err != nil {
		return fmt.Errorf("failed to create data style: %w", err)
	}

	for i, col := range beaconColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
		if headerStyle > 0 {
			file.SetCellStyle(sheet, cell, cell, headerStyle)
		}
	}

	for r, row := range s.Rows {
		valid := "no"
		if row.Valid {
			valid = "yes"
		}
		values := []interface{}{row.Index, row.BeaconID, row.Lat, row.Lng, valid}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := file.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if dataStyle > 0 {
				file.SetCellStyle(sheet, cell, cell, dataStyle)
			}
		}
	}

	if options.FreezeHeader {
		file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	if options.AutoFilter && len(s.Rows) > 0 {
		lastCol, _ := excelize.CoordinatesToCellName(len(beaconColumns), len(s.Rows)+1)
		file.AutoFilter(sheet, "A1:"+lastCol, nil)
	}
	file.SetColWidth(sheet, "B", "D", 16)

	return nil
}

func writeSummarySheet(file *excelize.File, s Schedule, options ExcelOptions) error {
	sheet := options.SummarySheet

	labelStyle, err := createStyle(file, options.HeaderStyle)
	if err != nil {
		return fmt.Errorf("failed to create label style: %w", err)
	}
	numberStyle := 0
	if options.NumberFormat != "" {
		numberStyle, err = file.NewStyle(&excelize.Style{CustomNumFmt: &options.NumberFormat})
		if err != nil {
			return fmt.Errorf("failed to create number style: %w", err)
		}
	}

	sum := s.Summary
	rows := []struct {
		label  string
		value  interface{}
		number bool
	}{
		{"Title number", s.TitleNumber, false},
		{"County", s.County, false},
		{"Declared size", fmt.Sprintf("%s %s", s.LandSize, s.LandSizeUnit), false},
		{"Coordinates", sum.TotalCoordinates, false},
		{"Valid coordinates", sum.ValidCoordinates, false},
		{"Status", sum.StatusText, false},
		{"Area", sum.AreaDisplay, false},
		{"Area (m²)", sum.AreaSquareMeters, true},
		{"Area (hectares)", sum.AreaUnits.Hectares, true},
		{"Area (acres)", sum.AreaUnits.Acres, true},
		{"Geodesic area (m²)", sum.GeodesicSquareMeters, true},
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05"), false},
	}

	for i, r := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := file.SetCellValue(sheet, labelCell, r.label); err != nil {
			return fmt.Errorf("failed to set cell value: %w", err)
		}
		if err := file.SetCellValue(sheet, valueCell, r.value); err != nil {
			return fmt.Errorf("failed to set cell value: %w", err)
		}
		if labelStyle > 0 {
			file.SetCellStyle(sheet, labelCell, labelCell, labelStyle)
		}
		if r.number && numberStyle > 0 {
			file.SetCellStyle(sheet, valueCell, valueCell, numberStyle)
		}
	}
	file.SetColWidth(sheet, "A", "A", 22)
	file.SetColWidth(sheet, "B", "B", 30)

	return nil
}

// createStyle creates an Excel style from config. A nil config yields 0.
func createStyle(file *excelize.File, config *ExcelStyleConfig) (int, error) {
	if config == nil {
		return 0, nil
	}

	style := &excelize.Style{
		Font: &excelize.Font{
			Bold:  config.FontBold,
			Size:  float64(config.FontSize),
			Color: config.FontColor,
		},
	}
	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}
	if config.Alignment != "" {
		style.Alignment = &excelize.Alignment{Horizontal: config.Alignment}
	}
	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	return file.NewStyle(style)
}

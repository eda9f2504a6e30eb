package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string     `json:"page_size"`   // A4, Letter, Legal
	Orientation    string     `json:"orientation"` // portrait, landscape
	Title          string     `json:"title"`
	DateFormat     string     `json:"date_format"`
	IncludePageNum bool       `json:"include_page_num"`
	HeaderColor    PDFColor   `json:"header_color"`
	AlternateRows  bool       `json:"alternate_rows"`
	AlternateColor PDFColor   `json:"alternate_color"`
	FontFamily     string     `json:"font_family"`
	FontSize       float64    `json:"font_size"`
	TitleFontSize  float64    `json:"title_font_size"`
	Margins        PDFMargins `json:"margins"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "portrait",
		Title:          "Parcel Boundary Summary",
		DateFormat:     "2006-01-02 15:04",
		IncludePageNum: true,
		HeaderColor:    PDFColor{R: 68, G: 114, B: 196},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       10,
		TitleFontSize:  16,
		Margins: PDFMargins{
			Left:   15,
			Right:  15,
			Top:    20,
			Bottom: 20,
		},
	}
}

// pdfWriter renders one schedule
type pdfWriter struct {
	pdf     *gofpdf.Fpdf
	tr      func(string) string
	options PDFOptions
}

// WritePDF renders the parcel summary and beacon table
func WritePDF(w io.Writer, s Schedule, options PDFOptions) error {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(true, options.Margins.Bottom)

	g := &pdfWriter{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		options: options,
	}
	g.setFooter()

	pdf.AddPage()
	g.addTitle(s)
	g.addSummary(s)
	pdf.Ln(6)
	g.addBeaconTable(s.Rows)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func (g *pdfWriter) addTitle(s Schedule) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
	g.pdf.SetTextColor(128, 128, 128)
	g.pdf.CellFormat(0, 6, "Generated: "+s.GeneratedAt.Format(g.options.DateFormat), "", 1, "R", false, 0, "")
	g.pdf.Ln(4)
}

func (g *pdfWriter) addSummary(s Schedule) {
	sum := s.Summary
	items := [][2]string{
		{"Title number", s.TitleNumber},
		{"County", s.County},
		{"Declared size", fmt.Sprintf("%s %s", s.LandSize, s.LandSizeUnit)},
		{"Coordinates", fmt.Sprintf("%d (%d valid)", sum.TotalCoordinates, sum.ValidCoordinates)},
		{"Status", sum.StatusText},
		{"Area", sum.AreaDisplay},
		{"Area (acres)", fmt.Sprintf("%.2f", sum.AreaUnits.Acres)},
		{"Geodesic area", fmt.Sprintf("%.2f m²", sum.GeodesicSquareMeters)},
	}

	g.pdf.SetTextColor(0, 0, 0)
	for _, item := range items {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.CellFormat(50, 6, item[0]+":", "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.CellFormat(0, 6, g.tr(item[1]), "", 1, "L", false, 0, "")
	}
}

func (g *pdfWriter) addBeaconTable(rows []Row) {
	widths := []float64{15, 55, 45, 45, 20}

	g.addTableHeader(widths)
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	_, pageHeight := g.pdf.GetPageSize()
	for i, row := range rows {
		if g.options.AlternateRows && i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		if g.pdf.GetY()+7 > pageHeight-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader(widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		valid := "No"
		if row.Valid {
			valid = "Yes"
		}
		cells := []string{fmt.Sprintf("%d", row.Index), row.BeaconID, row.Lat, row.Lng, valid}
		for j, val := range cells {
			g.pdf.CellFormat(widths[j], 7, g.tr(truncate(val, 28)), "1", 0, "L", true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

func (g *pdfWriter) addTableHeader(widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+1)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	for i, label := range beaconColumns {
		g.pdf.CellFormat(widths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

func (g *pdfWriter) setFooter() {
	g.pdf.SetFooterFunc(func() {
		if !g.options.IncludePageNum {
			return
		}
		g.pdf.SetY(-15)
		g.pdf.SetFont(g.options.FontFamily, "", 8)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

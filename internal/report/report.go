// Package report renders a load calculation result as a PDF, an XLSX
// workbook or plain text.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
)

// Format is an output format for a rendered report.
type Format string

// Supported formats.
const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatText Format = "text"
)

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/plain; charset=utf-8"
}

// Report is the content of one rendered calculation.
type Report struct {
	Title       string
	ProjectID   string
	GeneratedAt time.Time
	Result      *calc.LoadCalculationResult
	// Units is set for multi-family reports.
	Units []calc.UnitTemplate
}

// Render writes r in format f.
func Render(f Format, r Report) ([]byte, error) {
	if r.Result == nil {
		return nil, fmt.Errorf("report %q has no result", r.Title)
	}
	switch f {
	case FormatPDF:
		return RenderPDF(r)
	case FormatXLSX:
		return RenderXLSX(r)
	case FormatText:
		var buf bytes.Buffer
		if err := RenderText(&buf, r); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported report format %q", f)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// summary returns the label/value pairs shown above the breakdown.
func summary(r Report) [][2]string {
	res := r.Result
	rows := [][2]string{}
	if r.ProjectID != "" {
		rows = append(rows, [2]string{"Project", r.ProjectID})
	}
	if !r.GeneratedAt.IsZero() {
		rows = append(rows, [2]string{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)})
	}
	rows = append(rows,
		[2]string{"Service", fmt.Sprintf("%s V, %d phase", fixed(res.Voltage, 0), res.Phases)},
		[2]string{"Total connected load", fixed(res.TotalConnectedVA, 0) + " VA"},
		[2]string{"Total demand load", fixed(res.TotalDemandVA, 0) + " VA"},
	)
	if res.ContinuousVA > 0 {
		rows = append(rows, [2]string{"Continuous load", fixed(res.ContinuousVA, 0) + " VA"})
	}
	rows = append(rows,
		[2]string{"Service current", fixed(res.ServiceAmps, 1) + " A"},
		[2]string{"Recommended service", fmt.Sprintf("%d A", res.RecommendedServiceSize)},
		[2]string{"Service conductors", fmt.Sprintf("%s %s", res.ServiceConductorSize, res.ConductorMaterial)},
		[2]string{"Neutral conductor", res.NeutralConductorSize},
		[2]string{"Grounding electrode conductor", res.GECSize},
		[2]string{"Neutral load", fmt.Sprintf("%s VA (%s A, %s%% reduction)",
			fixed(res.NeutralLoadVA, 0), fixed(res.NeutralAmps, 1), fixed(res.NeutralReductionPercent, 0))},
	)
	return rows
}

// RenderPDF renders r as a single A4 document.
func RenderPDF(r Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, tr(r.Title))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summary(r) {
		pdf.CellFormat(60, 6, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := []float64{78, 26, 26, 16, 44}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range []string{"Load", "Connected VA", "Demand VA", "Factor", "Reference"} {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, e := range r.Result.Breakdown {
		desc := e.Description
		if e.Continuous {
			desc += " (continuous)"
		}
		pdf.CellFormat(widths[0], 6, tr(truncate(desc, 60)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fixed(e.ConnectedVA, 0), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, fixed(e.DemandVA, 0), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fixed(e.DemandFactor, 2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, tr(e.CodeReference), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	if len(r.Units) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Unit panels")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 9)
		for _, u := range r.Units {
			pdf.Cell(0, 5, tr(unitLine(u)))
			pdf.Ln(5)
		}
	}

	if len(r.Result.Warnings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Warnings")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 9)
		for _, w := range r.Result.Warnings {
			pdf.MultiCell(0, 5, tr("- "+w), "", "L", false)
		}
	}

	if len(r.Result.CodeReferences) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, tr("References: "+strings.Join(r.Result.CodeReferences, ", ")), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Sheet names used by RenderXLSX.
const (
	SheetSummary   = "summary"
	SheetBreakdown = "breakdown"
	SheetUnits     = "units"
	SheetWarnings  = "warnings"
)

// RenderXLSX renders r as a workbook with summary and breakdown sheets,
// plus units and warnings sheets when there is content for them.
func RenderXLSX(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	w := &sheetWriter{f: f}

	w.set(SheetSummary, "A1", r.Title)
	for i, row := range summary(r) {
		w.set(SheetSummary, cell("A", i+3), row[0])
		w.set(SheetSummary, cell("B", i+3), row[1])
	}

	w.sheet(SheetBreakdown)
	for i, h := range []string{"Category", "Description", "Connected VA", "Demand VA", "Demand factor", "Continuous", "Reference"} {
		w.set(SheetBreakdown, cell(string(rune('A'+i)), 1), h)
	}
	for i, e := range r.Result.Breakdown {
		row := i + 2
		w.set(SheetBreakdown, cell("A", row), string(e.Category))
		w.set(SheetBreakdown, cell("B", row), e.Description)
		w.set(SheetBreakdown, cell("C", row), e.ConnectedVA)
		w.set(SheetBreakdown, cell("D", row), e.DemandVA)
		w.set(SheetBreakdown, cell("E", row), e.DemandFactor)
		w.set(SheetBreakdown, cell("F", row), e.Continuous)
		w.set(SheetBreakdown, cell("G", row), e.CodeReference)
	}
	total := len(r.Result.Breakdown) + 2
	w.set(SheetBreakdown, cell("B", total), "Total")
	w.set(SheetBreakdown, cell("C", total), r.Result.TotalConnectedVA)
	w.set(SheetBreakdown, cell("D", total), r.Result.TotalDemandVA)

	if len(r.Units) > 0 {
		w.sheet(SheetUnits)
		for i, h := range []string{"Unit", "Count", "Area ft²", "Calculated VA", "Service A", "Panel A"} {
			w.set(SheetUnits, cell(string(rune('A'+i)), 1), h)
		}
		for i, u := range r.Units {
			row := i + 2
			w.set(SheetUnits, cell("A", row), u.Name)
			w.set(SheetUnits, cell("B", row), u.UnitCount)
			w.set(SheetUnits, cell("C", row), u.SquareFootage)
			if u.Derived != nil {
				w.set(SheetUnits, cell("D", row), u.Derived.CalculatedLoadVA)
				w.set(SheetUnits, cell("E", row), u.Derived.ServiceAmps)
				w.set(SheetUnits, cell("F", row), u.Derived.PanelSize)
			}
		}
	}

	if len(r.Result.Warnings) > 0 {
		w.sheet(SheetWarnings)
		for i, msg := range r.Result.Warnings {
			w.set(SheetWarnings, cell("A", i+1), msg)
		}
	}

	if w.err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", w.err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first excelize error so cell writes stay terse.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) sheet(name string) {
	if w.err != nil {
		return
	}
	_, w.err = w.f.NewSheet(name)
}

func (w *sheetWriter) set(sheet, axis string, v interface{}) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellValue(sheet, axis, v)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// RenderText writes r as aligned plain text.
func RenderText(out io.Writer, r Report) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, r.Title)
	fmt.Fprintln(tw)
	for _, row := range summary(r) {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "LOAD\tCONNECTED VA\tDEMAND VA\tFACTOR\tREFERENCE")
	for _, e := range r.Result.Breakdown {
		desc := e.Description
		if e.Continuous {
			desc += " (continuous)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			desc, fixed(e.ConnectedVA, 0), fixed(e.DemandVA, 0), fixed(e.DemandFactor, 2), e.CodeReference)
	}
	for _, u := range r.Units {
		fmt.Fprintf(tw, "\n%s", unitLine(u))
	}
	if len(r.Units) > 0 {
		fmt.Fprintln(tw)
	}
	if len(r.Result.Warnings) > 0 {
		fmt.Fprintln(tw, "\nWarnings:")
		for _, w := range r.Result.Warnings {
			fmt.Fprintf(tw, "  - %s\n", w)
		}
	}
	return tw.Flush()
}

func unitLine(u calc.UnitTemplate) string {
	line := fmt.Sprintf("%s x%d, %s ft²", u.Name, u.UnitCount, fixed(u.SquareFootage, 0))
	if u.Derived != nil {
		line += fmt.Sprintf(": %s VA, %s A, %d A panel",
			fixed(u.Derived.CalculatedLoadVA, 0), fixed(u.Derived.ServiceAmps, 1), u.Derived.PanelSize)
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

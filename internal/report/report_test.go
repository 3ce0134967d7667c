package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
)

func dwellingReport(t *testing.T) Report {
	t.Helper()
	engine := calc.NewEngine(nil, calc.Options{})
	res, err := engine.CalculateSingleDwelling(calc.DwellingInput{
		SquareFootage:          2000,
		SmallApplianceCircuits: 2,
		LaundryCircuit:         true,
		Appliances: calc.Appliances{
			calc.Range{Enabled: true, KW: 12},
			calc.Dryer{Enabled: true, KW: 5},
			calc.EVCharger{Enabled: true, KW: 7.2, Continuous: true},
		},
	})
	require.NoError(t, err)
	return Report{
		Title:       "Single-family dwelling load calculation",
		ProjectID:   "proj-1",
		GeneratedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Result:      res,
	}
}

func TestRenderPDF(t *testing.T) {
	out, err := RenderPDF(dwellingReport(t))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "expected a PDF header")
}

func TestRenderXLSX(t *testing.T) {
	r := dwellingReport(t)

	out, err := RenderXLSX(r)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetBreakdown}, f.GetSheetList())

	title, err := f.GetCellValue(SheetSummary, "A1")
	require.NoError(t, err)
	assert.Equal(t, r.Title, title)

	project, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", project)

	header, err := f.GetCellValue(SheetBreakdown, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Demand VA", header)

	rows, err := f.GetRows(SheetBreakdown)
	require.NoError(t, err)
	assert.Len(t, rows, len(r.Result.Breakdown)+2, "header, one row per entry and a total")
	assert.Equal(t, "Total", rows[len(rows)-1][1])
}

func TestRenderXLSX_MultiFamilyAddsUnitsSheet(t *testing.T) {
	engine := calc.NewEngine(nil, calc.Options{})
	res, err := engine.CalculateMultiUnit(calc.MultiUnitInput{
		Units: []calc.UnitTemplate{{Name: "1BR", SquareFootage: 750, UnitCount: 2, SmallApplianceCircuits: 2}},
	})
	require.NoError(t, err)

	out, err := RenderXLSX(Report{Title: "Building", Result: &res.LoadCalculationResult, Units: res.Units})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), SheetUnits)
	assert.Contains(t, f.GetSheetList(), SheetWarnings, "fewer than three units warns")
	name, err := f.GetCellValue(SheetUnits, "A2")
	require.NoError(t, err)
	assert.Equal(t, "1BR", name)
}

func TestRenderText(t *testing.T) {
	r := dwellingReport(t)
	var buf bytes.Buffer

	require.NoError(t, RenderText(&buf, r))

	out := buf.String()
	assert.Contains(t, out, r.Title)
	assert.Contains(t, out, "Project:")
	assert.Contains(t, out, "Recommended service:")
	assert.Contains(t, out, "LOAD")
	assert.Contains(t, out, "Generated:")
}

func TestRender(t *testing.T) {
	r := dwellingReport(t)

	for _, f := range []Format{FormatPDF, FormatXLSX, FormatText} {
		t.Run(string(f), func(t *testing.T) {
			out, err := Render(f, r)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := Render(Format("docx"), r)
		assert.ErrorContains(t, err, "unsupported report format")
	})

	t.Run("missing result", func(t *testing.T) {
		_, err := Render(FormatPDF, Report{Title: "empty"})
		assert.Error(t, err)
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
	assert.Contains(t, FormatText.ContentType(), "text/plain")
}

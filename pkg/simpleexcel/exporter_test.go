package simpleexcel

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type point struct {
	Age     int
	Rate    decimal.Decimal
	Earning *decimal.Decimal
}

func points() []point {
	e1, e2 := decimal.RequireFromString("14.75"), decimal.RequireFromString("17")
	return []point{
		{Age: 16, Rate: decimal.RequireFromString("5.9"), Earning: &e1},
		{Age: 17, Rate: decimal.RequireFromString("6.8"), Earning: &e2},
		{Age: 18, Rate: decimal.RequireFromString("7.77")},
	}
}

func openBook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// zipEntry returns the named part of an xlsx package.
func zipEntry(t *testing.T, data []byte, name string) (string, bool) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, zf := range zr.File {
		if zf.Name != name {
			continue
		}
		rc, err := zf.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b), true
	}
	return "", false
}

func TestDataExporter_SectionLayout(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Earnings").
		AddSection(&SectionConfig{
			ID:         "summary",
			Title:      "Summary",
			ShowHeader: true,
			Columns: []ColumnConfig{
				{FieldName: "label", Header: "Field", Width: 20},
				{FieldName: "value", Header: "Value"},
			},
			Data: []map[string]interface{}{
				{"label": "Role", "value": "Shelf stacker"},
				{"label": "Age", "value": 18},
			},
		}).
		AddSection(&SectionConfig{
			ID:         "ages",
			ShowHeader: true,
			Columns: []ColumnConfig{
				{FieldName: "Age", Header: "Age"},
				{FieldName: "Rate", Header: "Rate", NumFmt: "0.00"},
				{FieldName: "Earning", Header: "Earning", NumFmt: "0.00"},
			},
			Data: points(),
		})

	f, err := exporter.BuildExcel()
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Earnings"}, f.GetSheetList())

	testCases := map[string]struct {
		cell string
		want string
		raw  bool
	}{
		"title":                     {cell: "A1", want: "Summary"},
		"summary header":            {cell: "B2", want: "Value"},
		"summary row":               {cell: "B3", want: "Shelf stacker"},
		"summary int":               {cell: "B4", want: "18"},
		"gap row":                   {cell: "A5", want: ""},
		"second section header":     {cell: "A6", want: "Age"},
		"first data row":            {cell: "A7", want: "16"},
		"decimal written as number": {cell: "B7", want: "5.9", raw: true},
		"number format applied":     {cell: "B7", want: "5.90"},
		"pointer decimal":           {cell: "C8", want: "17", raw: true},
		"nil pointer is blank":      {cell: "C9", want: ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, err := f.GetCellValue("Earnings", tc.cell, excelize.Options{RawCellValue: tc.raw})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	cellType, err := f.GetCellType("Earnings", "B7")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)

	width, err := f.GetColWidth("Earnings", "A")
	require.NoError(t, err)
	assert.Equal(t, 20.0, width)

	merged, err := f.GetMergeCells("Earnings")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "B1", merged[0].GetEndAxis())
}

func TestDataExporter_HorizontalAndPosition(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Side").
		AddSection(&SectionConfig{
			Direction: SectionDirectionHorizontal,
			Columns:   []ColumnConfig{{FieldName: "Age"}},
			Data:      points(),
		}).
		AddSection(&SectionConfig{
			Direction: SectionDirectionHorizontal,
			Columns:   []ColumnConfig{{FieldName: "Age"}},
			Data:      points()[:1],
		}).
		AddSection(&SectionConfig{
			Position: "F10",
			Columns:  []ColumnConfig{{FieldName: "Age"}},
			Data:     &[]point{{Age: 21}},
		})

	f, err := exporter.BuildExcel()
	require.NoError(t, err)
	defer f.Close()

	for cell, want := range map[string]string{"A1": "16", "C1": "16", "C2": "", "F10": "21"} {
		got, err := f.GetCellValue("Side", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}
}

func TestDataExporter_InvalidPosition(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Bad").AddSection(&SectionConfig{ID: "x", Position: "not-a-cell"})

	_, err := exporter.BuildExcel()
	assert.Error(t, err)
}

func TestDataExporter_LockedSectionProtectsSheet(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Locked").AddSection(&SectionConfig{
		Locked:  true,
		Columns: []ColumnConfig{{FieldName: "Age"}},
		Data:    points(),
	})

	f, err := exporter.BuildExcel()
	require.NoError(t, err)
	defer f.Close()

	styleID, err := f.GetCellStyle("Locked", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Protection)
	assert.True(t, style.Protection.Locked)
}

func TestDataExporter_Chart(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Earnings by age").
		AddSection(&SectionConfig{
			ID:         "ages",
			ShowHeader: true,
			Columns: []ColumnConfig{
				{FieldName: "Age", Header: "Age"},
				{FieldName: "Rate", Header: "Rate"},
			},
			Data: points(),
		}).
		AddChart(&ChartConfig{
			ID:            "rates",
			Title:         "Rate by age",
			SectionID:     "ages",
			CategoryField: "Age",
			ValueFields:   []string{"Rate"},
			XAxisTitle:    "Age",
		})

	data, err := exporter.ToBytes()
	require.NoError(t, err)

	chart, ok := zipEntry(t, data, "xl/charts/chart1.xml")
	require.True(t, ok, "workbook has no chart part")
	assert.Contains(t, chart, "!$A$2:$A$4")
	assert.Contains(t, chart, "!$B$2:$B$4")
	assert.Contains(t, chart, "!$B$1<")
	assert.Contains(t, chart, "Rate by age")
}

func TestDataExporter_ChartErrors(t *testing.T) {
	testCases := map[string]struct {
		chart ChartConfig
	}{
		"unknown section":        {chart: ChartConfig{ID: "c", SectionID: "nope", CategoryField: "Age"}},
		"unknown category field": {chart: ChartConfig{ID: "c", SectionID: "ages", CategoryField: "Nope"}},
		"unknown value field":    {chart: ChartConfig{ID: "c", SectionID: "ages", CategoryField: "Age", ValueFields: []string{"Nope"}}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			chart := tc.chart
			exporter := NewDataExporter()
			exporter.AddSheet("S").
				AddSection(&SectionConfig{ID: "ages", Columns: []ColumnConfig{{FieldName: "Age"}}, Data: points()}).
				AddChart(&chart)

			_, err := exporter.BuildExcel()
			assert.Error(t, err)
		})
	}
}

func TestDataExporter_ChartSkippedWithoutData(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("Empty").
		AddSection(&SectionConfig{ID: "ages", Columns: []ColumnConfig{{FieldName: "Age"}}, Data: []point{}}).
		AddChart(&ChartConfig{ID: "c", SectionID: "ages", CategoryField: "Age", ValueFields: []string{"Age"}})

	data, err := exporter.ToBytes()
	require.NoError(t, err)
	_, ok := zipEntry(t, data, "xl/charts/chart1.xml")
	assert.False(t, ok)
}

const reportYaml = `
sheets:
  - name: "Report"
    sections:
      - id: "rows"
        title: "Rates"
        show_header: true
        title_style:
          font:
            bold: true
            size: 14
        header_style:
          font:
            bold: true
            color: "#FFFFFF"
          fill:
            color: "#4F81BD"
        columns:
          - field_name: "Age"
            header: "Age"
          - field_name: "Rate"
            header: "Rate"
            num_fmt: "0.00"
    charts:
      - id: "line"
        type: "col"
        section_id: "rows"
        category_field: "Age"
        value_fields: ["Rate"]
        position: "E2"
`

func TestDataExporter_YamlTemplate(t *testing.T) {
	exporter, err := NewDataExporterFromYamlConfig(reportYaml)
	require.NoError(t, err)
	exporter.BindSectionData("rows", points())

	data, err := exporter.ToBytes()
	require.NoError(t, err)

	f := openBook(t, data)
	assert.Equal(t, []string{"Report"}, f.GetSheetList())

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Rates", rows[0][0])
	assert.Equal(t, []string{"Age", "Rate"}, rows[1])
	assert.Equal(t, []string{"18", "7.77"}, rows[4])

	styleID, err := f.GetCellStyle("Report", "A2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, "pattern", style.Fill.Type)

	chart, ok := zipEntry(t, data, "xl/charts/chart1.xml")
	require.True(t, ok)
	assert.Contains(t, chart, "barChart")
}

func TestDataExporter_YamlErrors(t *testing.T) {
	_, err := NewDataExporterFromYamlConfig("sheets: [")
	assert.Error(t, err)
}

func TestDataExporter_TemplateAndProgrammaticSheets(t *testing.T) {
	exporter, err := NewDataExporterFromYamlConfig(reportYaml)
	require.NoError(t, err)
	exporter.BindSectionData("rows", points())
	exporter.AddSheet("Notes").AddSection(&SectionConfig{
		ShowHeader: true,
		Columns:    []ColumnConfig{{FieldName: "Age", Header: "Age"}},
		Data:       points()[:1],
	})

	path := filepath.Join(t.TempDir(), "mixed.xlsx")
	require.NoError(t, exporter.ExportToExcel(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Report", "Notes"}, f.GetSheetList())

	age, err := f.GetCellValue("Notes", "A2")
	require.NoError(t, err)
	assert.Equal(t, "16", age)
}

func TestDataExporter_ToCSV(t *testing.T) {
	exporter := NewDataExporter()
	exporter.AddSheet("One").AddSection(&SectionConfig{
		ShowHeader: true,
		Columns: []ColumnConfig{
			{FieldName: "Age", Header: "Age"},
			{FieldName: "Rate", Header: "Rate", NumFmt: "0.00"},
		},
		Data: points()[:2],
	})
	exporter.AddSheet("Two").AddSection(&SectionConfig{
		Columns: []ColumnConfig{{FieldName: "Age"}},
		Data:    points()[2:],
	})

	out, err := exporter.ToCSVBytes()
	require.NoError(t, err)

	// sheets are separated by an empty line, which readers skip
	r := csv.NewReader(strings.NewReader(string(out)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Age", "Rate"},
		{"16", "5.90"},
		{"17", "6.80"},
		{"18"},
	}, records)
}

package simpleexcel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Constants & Types
// =============================================================================

const (
	SectionDirectionHorizontal = "horizontal"
	SectionDirectionVertical   = "vertical"
)

const (
	ChartTypeLine   = "line"
	ChartTypeColumn = "col"
	ChartTypeBar    = "bar"
)

// DataExporter is the main entry point for exporting data.
type DataExporter struct {
	template *ReportTemplate
	// data holds data bound to specific section IDs (for YAML flow)
	data map[string]interface{}
	// sheets holds manually added sheets (for programmatic flow)
	sheets []*SheetBuilder
}

// ReportTemplate represents the YAML structure.
type ReportTemplate struct {
	Sheets []SheetTemplate `yaml:"sheets"`
}

// SheetTemplate represents a sheet in the YAML.
type SheetTemplate struct {
	Name     string          `yaml:"name"`
	Sections []SectionConfig `yaml:"sections"`
	Charts   []ChartConfig   `yaml:"charts"`
}

// SectionConfig defines a section of data in a sheet.
type SectionConfig struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Data        interface{}    `yaml:"-"` // Data is bound at runtime
	Locked      bool           `yaml:"locked"`
	ShowHeader  bool           `yaml:"show_header"`
	Direction   string         `yaml:"direction"` // "horizontal" or "vertical"
	Position    string         `yaml:"position"`  // e.g., "A1"
	TitleStyle  *StyleTemplate `yaml:"title_style"`
	HeaderStyle *StyleTemplate `yaml:"header_style"`
	Columns     []ColumnConfig `yaml:"columns"`
}

// ColumnConfig defines a column in a section.
type ColumnConfig struct {
	FieldName string  `yaml:"field_name"` // Struct field name or map key
	Header    string  `yaml:"header"`
	Width     float64 `yaml:"width"`
	NumFmt    string  `yaml:"num_fmt"` // Excel number format, e.g. "0.00"
}

// ChartConfig plots columns of a rendered section. Categories come from
// CategoryField and one series is drawn per entry of ValueFields.
type ChartConfig struct {
	ID            string   `yaml:"id"`
	Type          string   `yaml:"type"` // "line", "col" or "bar"
	Title         string   `yaml:"title"`
	SectionID     string   `yaml:"section_id"`
	CategoryField string   `yaml:"category_field"`
	ValueFields   []string `yaml:"value_fields"`
	Position      string   `yaml:"position"`
	Width         uint     `yaml:"width"`
	Height        uint     `yaml:"height"`
	XAxisTitle    string   `yaml:"x_axis_title"`
	YAxisTitle    string   `yaml:"y_axis_title"`
}

// StyleTemplate defines basic styling.
type StyleTemplate struct {
	Font   *FontTemplate `yaml:"font"`
	Fill   *FillTemplate `yaml:"fill"`
	Locked *bool         `yaml:"locked"`
	NumFmt string        `yaml:"num_fmt"`
}

type FontTemplate struct {
	Bold  bool    `yaml:"bold"`
	Size  float64 `yaml:"size"`
	Color string  `yaml:"color"` // Hex color
}

type FillTemplate struct {
	Color string `yaml:"color"` // Hex color
}

// placement records where a section's data rows ended up.
type placement struct {
	sheet    string
	startCol int
	firstRow int // first data row
	lastRow  int // last data row, < firstRow when there is no data
	header   int // header row, 0 when hidden
	columns  []ColumnConfig
}

// =============================================================================
// Constructors
// =============================================================================

func NewDataExporter() *DataExporter {
	return &DataExporter{
		data:   make(map[string]interface{}),
		sheets: []*SheetBuilder{},
	}
}

// NewDataExporterFromYamlConfig parses a report template from YAML text.
func NewDataExporterFromYamlConfig(config string) (*DataExporter, error) {
	return newDataExporterFromReader(strings.NewReader(config))
}

func newDataExporterFromReader(r io.Reader) (*DataExporter, error) {
	var tmpl ReportTemplate
	if err := yaml.NewDecoder(r).Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	return &DataExporter{
		template: &tmpl,
		data:     make(map[string]interface{}),
	}, nil
}

// =============================================================================
// Fluent API
// =============================================================================

// AddSheet starts a new sheet builder.
func (e *DataExporter) AddSheet(name string) *SheetBuilder {
	sb := &SheetBuilder{
		exporter: e,
		name:     name,
		sections: []*SectionConfig{},
	}
	e.sheets = append(e.sheets, sb)
	return sb
}

// BindSectionData binds data to a section ID (for YAML-based export).
func (e *DataExporter) BindSectionData(id string, data interface{}) *DataExporter {
	e.data[id] = data
	return e
}

// BuildExcel creates the workbook in memory. The caller owns the returned file.
func (e *DataExporter) BuildExcel() (*excelize.File, error) {
	f := excelize.NewFile()
	placed := make(map[string]placement)

	sheetIndex := 0
	addSheet := func(name string) error {
		defer func() { sheetIndex++ }()
		if sheetIndex == 0 {
			return f.SetSheetName("Sheet1", name)
		}
		if idx, _ := f.GetSheetIndex(name); idx != -1 {
			return nil
		}
		_, err := f.NewSheet(name)
		return err
	}

	// 1. Process YAML Template Sheets
	if e.template != nil {
		for _, sheetTmpl := range e.template.Sheets {
			if err := addSheet(sheetTmpl.Name); err != nil {
				f.Close()
				return nil, err
			}

			sections := make([]*SectionConfig, len(sheetTmpl.Sections))
			for j := range sheetTmpl.Sections {
				sec := sheetTmpl.Sections[j]
				if data, ok := e.data[sec.ID]; ok {
					sec.Data = data
				}
				sections[j] = &sec
			}
			charts := make([]*ChartConfig, len(sheetTmpl.Charts))
			for j := range sheetTmpl.Charts {
				charts[j] = &sheetTmpl.Charts[j]
			}

			if err := e.renderSections(f, sheetTmpl.Name, sections, placed); err != nil {
				f.Close()
				return nil, err
			}
			if err := renderCharts(f, sheetTmpl.Name, charts, placed); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	// 2. Process Programmatic Sheets, appended after the template
	for _, sb := range e.sheets {
		if err := addSheet(sb.name); err != nil {
			f.Close()
			return nil, err
		}
		if err := e.renderSections(f, sb.name, sb.sections, placed); err != nil {
			f.Close()
			return nil, err
		}
		if err := renderCharts(f, sb.name, sb.charts, placed); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// ExportToExcel generates the Excel file on disk.
func (e *DataExporter) ExportToExcel(path string) error {
	f, err := e.BuildExcel()
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// ToBytes exports the Excel file to an in-memory byte slice.
func (e *DataExporter) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.ToWriter(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToWriter writes the Excel file to the provided io.Writer.
func (e *DataExporter) ToWriter(w io.Writer) error {
	f, err := e.BuildExcel()
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}

// ToCSV exports every sheet as CSV to the provided io.Writer. Cells are
// written with their number format applied; sheets are separated by an empty
// record.
func (e *DataExporter) ToCSV(w io.Writer) error {
	f, err := e.BuildExcel()
	if err != nil {
		return err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets found")
	}

	csvWriter := csv.NewWriter(w)
	for i, sheet := range sheets {
		if i > 0 {
			if err := csvWriter.Write([]string{}); err != nil {
				return fmt.Errorf("error writing CSV row: %v", err)
			}
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("failed to get rows: %v", err)
		}
		for _, row := range rows {
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("error writing CSV row: %v", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ToCSVBytes exports the workbook as CSV and returns it as a byte slice.
func (e *DataExporter) ToCSVBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.ToCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// SheetBuilder
// =============================================================================

type SheetBuilder struct {
	exporter *DataExporter
	name     string
	sections []*SectionConfig
	charts   []*ChartConfig
}

func (sb *SheetBuilder) AddSection(config *SectionConfig) *SheetBuilder {
	sb.sections = append(sb.sections, config)
	return sb
}

// AddChart plots data of a section of this or an earlier sheet.
func (sb *SheetBuilder) AddChart(config *ChartConfig) *SheetBuilder {
	sb.charts = append(sb.charts, config)
	return sb
}

func (sb *SheetBuilder) Build() *DataExporter {
	return sb.exporter
}

// =============================================================================
// Rendering Logic
// =============================================================================

func (e *DataExporter) renderSections(f *excelize.File, sheet string, sections []*SectionConfig, placed map[string]placement) error {
	// Trackers for layout
	maxRow := 1            // Next available row for Vertical sections (1-based)
	nextColHorizontal := 1 // Next available col for Horizontal sections (1-based)

	hasLockedSections := false

	for _, sec := range sections {
		if sec.Locked {
			hasLockedSections = true
		}

		isHorizontal := sec.Direction == SectionDirectionHorizontal

		startCol := 1
		startRow := 1

		if sec.Position != "" {
			c, r, err := excelize.CellNameToCoordinates(sec.Position)
			if err != nil {
				return fmt.Errorf("section %s: invalid position %q: %w", sec.ID, sec.Position, err)
			}
			startCol, startRow = c, r
		} else if isHorizontal {
			startCol = nextColHorizontal
		} else {
			startRow = maxRow
		}

		currentRow := startRow
		where := placement{sheet: sheet, startCol: startCol, columns: sec.Columns}

		// Locked only takes effect once the sheet is protected, so every cell
		// carries the section's flag explicitly.
		effective := func(base *StyleTemplate, numFmt string) *StyleTemplate {
			s := &StyleTemplate{}
			if base != nil {
				*s = *base
			}
			if numFmt != "" {
				s.NumFmt = numFmt
			}
			locked := sec.Locked
			s.Locked = &locked
			return s
		}

		// Render Title
		if sec.Title != "" {
			cell, _ := excelize.CoordinatesToCellName(startCol, currentRow)
			if err := f.SetCellValue(sheet, cell, sec.Title); err != nil {
				return err
			}

			styleID, err := createStyle(f, effective(sec.TitleStyle, ""))
			if err != nil {
				return err
			}

			endCell := cell
			if len(sec.Columns) > 1 {
				endCell, _ = excelize.CoordinatesToCellName(startCol+len(sec.Columns)-1, currentRow)
				if err := f.MergeCell(sheet, cell, endCell); err != nil {
					return err
				}
			}
			if err := f.SetCellStyle(sheet, cell, endCell, styleID); err != nil {
				return err
			}

			currentRow++
		}

		// Render Header
		if sec.ShowHeader {
			styleID, err := createStyle(f, effective(sec.HeaderStyle, ""))
			if err != nil {
				return err
			}
			for i, col := range sec.Columns {
				cell, _ := excelize.CoordinatesToCellName(startCol+i, currentRow)
				if err := f.SetCellValue(sheet, cell, col.Header); err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
					return err
				}
			}
			where.header = currentRow
			currentRow++
		}

		for i, col := range sec.Columns {
			if col.Width > 0 {
				colName, _ := excelize.ColumnNumberToName(startCol + i)
				if err := f.SetColWidth(sheet, colName, colName, col.Width); err != nil {
					return err
				}
			}
		}

		// Render Data
		where.firstRow = currentRow
		dataVal := reflect.ValueOf(sec.Data)
		if dataVal.Kind() == reflect.Ptr {
			dataVal = dataVal.Elem()
		}
		if dataVal.Kind() == reflect.Slice || dataVal.Kind() == reflect.Array {
			styles := make([]int, len(sec.Columns))
			for j, col := range sec.Columns {
				id, err := createStyle(f, effective(nil, col.NumFmt))
				if err != nil {
					return err
				}
				styles[j] = id
			}

			for i := 0; i < dataVal.Len(); i++ {
				item := dataVal.Index(i)
				for j, col := range sec.Columns {
					cell, _ := excelize.CoordinatesToCellName(startCol+j, currentRow)
					if err := f.SetCellValue(sheet, cell, extractValue(item, col.FieldName)); err != nil {
						return err
					}
					if err := f.SetCellStyle(sheet, cell, cell, styles[j]); err != nil {
						return err
					}
				}
				currentRow++
			}
		}
		where.lastRow = currentRow - 1

		if sec.ID != "" {
			placed[sec.ID] = where
		}

		// Update global trackers, leaving one blank row between vertical sections
		if currentRow+1 > maxRow {
			maxRow = currentRow + 1
		}
		nextColHorizontal = startCol + len(sec.Columns) + 1
	}

	if hasLockedSections {
		if err := f.ProtectSheet(sheet, &excelize.SheetProtectionOptions{
			SelectLockedCells:   true,
			SelectUnlockedCells: true,
		}); err != nil {
			return err
		}
	}

	return nil
}

func renderCharts(f *excelize.File, sheet string, charts []*ChartConfig, placed map[string]placement) error {
	for _, cfg := range charts {
		where, ok := placed[cfg.SectionID]
		if !ok {
			return fmt.Errorf("chart %s: unknown section %q", cfg.ID, cfg.SectionID)
		}
		if where.lastRow < where.firstRow {
			// nothing to plot
			continue
		}

		catCol, ok := where.column(cfg.CategoryField)
		if !ok {
			return fmt.Errorf("chart %s: section %s has no column %q", cfg.ID, cfg.SectionID, cfg.CategoryField)
		}

		chart := &excelize.Chart{
			Type:      chartType(cfg.Type),
			Dimension: excelize.ChartDimension{Width: 480, Height: 290},
			Legend:    excelize.ChartLegend{Position: "bottom"},
		}
		if cfg.Width > 0 {
			chart.Dimension.Width = cfg.Width
		}
		if cfg.Height > 0 {
			chart.Dimension.Height = cfg.Height
		}
		if cfg.Title != "" {
			chart.Title = []excelize.RichTextRun{{Text: cfg.Title}}
		}
		if cfg.XAxisTitle != "" {
			chart.XAxis.Title = []excelize.RichTextRun{{Text: cfg.XAxisTitle}}
		}
		if cfg.YAxisTitle != "" {
			chart.YAxis.Title = []excelize.RichTextRun{{Text: cfg.YAxisTitle}}
		}

		for _, field := range cfg.ValueFields {
			valCol, ok := where.column(field)
			if !ok {
				return fmt.Errorf("chart %s: section %s has no column %q", cfg.ID, cfg.SectionID, field)
			}
			series := excelize.ChartSeries{
				Categories: where.rangeRef(catCol),
				Values:     where.rangeRef(valCol),
			}
			if where.header > 0 {
				series.Name = where.cellRef(valCol, where.header)
			}
			chart.Series = append(chart.Series, series)
		}

		position := cfg.Position
		if position == "" {
			col, _ := excelize.ColumnNumberToName(where.startCol + len(where.columns) + 1)
			position = fmt.Sprintf("%s%d", col, max(where.header, where.firstRow))
		}
		if err := f.AddChart(sheet, position, chart); err != nil {
			return fmt.Errorf("chart %s: %w", cfg.ID, err)
		}
	}
	return nil
}

func chartType(name string) excelize.ChartType {
	switch name {
	case ChartTypeColumn:
		return excelize.Col
	case ChartTypeBar:
		return excelize.Bar
	default:
		return excelize.Line
	}
}

func (p placement) column(field string) (int, bool) {
	for i, col := range p.columns {
		if col.FieldName == field {
			return p.startCol + i, true
		}
	}
	return 0, false
}

func (p placement) cellRef(col, row int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return fmt.Sprintf("'%s'!$%s$%d", p.sheet, name, row)
}

func (p placement) rangeRef(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return fmt.Sprintf("'%s'!$%s$%d:$%s$%d", p.sheet, name, p.firstRow, name, p.lastRow)
}

// floater is implemented by decimal types that should be written as numbers.
type floater interface {
	Float64() (float64, bool)
}

func extractValue(item reflect.Value, fieldName string) interface{} {
	for item.Kind() == reflect.Ptr || item.Kind() == reflect.Interface {
		if item.IsNil() {
			return ""
		}
		item = item.Elem()
	}

	var v reflect.Value
	switch item.Kind() {
	case reflect.Struct:
		v = item.FieldByName(fieldName)
	case reflect.Map:
		if item.Type().Key().Kind() == reflect.String {
			v = item.MapIndex(reflect.ValueOf(fieldName).Convert(item.Type().Key()))
		}
	}
	if !v.IsValid() || !v.CanInterface() {
		return ""
	}
	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return ""
	}

	val := v.Interface()
	if fl, ok := val.(floater); ok {
		f, _ := fl.Float64()
		return f
	}
	return val
}

func createStyle(f *excelize.File, tmpl *StyleTemplate) (int, error) {
	style := &excelize.Style{}
	if tmpl == nil {
		return f.NewStyle(style)
	}
	if tmpl.Font != nil {
		style.Font = &excelize.Font{
			Bold:  tmpl.Font.Bold,
			Size:  tmpl.Font.Size,
			Color: strings.TrimPrefix(tmpl.Font.Color, "#"),
		}
	}
	if tmpl.Fill != nil {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{strings.TrimPrefix(tmpl.Fill.Color, "#")},
			Pattern: 1,
		}
	}
	if tmpl.Locked != nil {
		style.Protection = &excelize.Protection{
			Locked: *tmpl.Locked,
		}
	}
	if tmpl.NumFmt != "" {
		numFmt := tmpl.NumFmt
		style.CustomNumFmt = &numFmt
	}
	return f.NewStyle(style)
}

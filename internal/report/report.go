// Package report renders a calculation as a printable workbook.
package report

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/wage"
	"github.com/locvowork/wage_calculator/pkg/simpleexcel"
	"github.com/shopspring/decimal"
)

//go:embed layout.yaml
var layoutYAML string

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"
)

// Report is everything shown in an exported report.
type Report struct {
	Result      *domain.WageResult
	Shifts      []domain.ShiftEntry
	Earnings    []domain.AgeEarning
	GeneratedAt time.Time
}

type summaryRow struct {
	Role        string
	Age         int
	Rate        decimal.Decimal
	TotalHours  decimal.Decimal
	WeeklyWage  decimal.Decimal
	MonthlyWage decimal.Decimal
}

type detailRow struct {
	Item  string
	Value string
}

type shiftRow struct {
	Number  int
	Hours   float64
	Minutes float64
}

// ContentType returns the MIME type of a report format.
func ContentType(format string) string {
	if format == FormatCSV {
		return ContentTypeCSV
	}
	return ContentTypeXLSX
}

// FileName returns the download name of a report.
func FileName(r Report, format string) string {
	ts := r.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	role := ""
	if r.Result != nil {
		role = string(r.Result.Role) + "_"
	}
	return fmt.Sprintf("wage_report_%s%s.%s", role, ts.UTC().Format("20060102_150405"), format)
}

func newExporter(r Report) (*simpleexcel.DataExporter, error) {
	if r.Result == nil {
		return nil, fmt.Errorf("report has no result")
	}

	exporter, err := simpleexcel.NewDataExporterFromYamlConfig(layoutYAML)
	if err != nil {
		return nil, fmt.Errorf("load report layout: %w", err)
	}

	res := r.Result
	exporter.BindSectionData("summary", []summaryRow{{
		Role:        res.Role.Label(),
		Age:         res.Age,
		Rate:        res.Rate,
		TotalHours:  res.TotalHours.Round(2),
		WeeklyWage:  res.WeeklyWage,
		MonthlyWage: res.MonthlyWage,
	}})

	shifts := make([]shiftRow, len(r.Shifts))
	for i, s := range r.Shifts {
		shifts[i] = shiftRow{Number: i + 1, Hours: s.Hours, Minutes: s.Minutes}
	}
	exporter.BindSectionData("shifts", shifts)
	exporter.BindSectionData("earnings", r.Earnings)

	exporter.AddSheet("Details").AddSection(&simpleexcel.SectionConfig{
		ID:         "details",
		Title:      "Calculation details",
		ShowHeader: true,
		TitleStyle: &simpleexcel.StyleTemplate{Font: &simpleexcel.FontTemplate{Bold: true}},
		Columns: []simpleexcel.ColumnConfig{
			{FieldName: "Item", Header: "Item", Width: 22},
			{FieldName: "Value", Header: "Value", Width: 22},
		},
		Data: []detailRow{
			{Item: "Generated at", Value: r.GeneratedAt.UTC().Format(time.RFC3339)},
			{Item: "Total minutes", Value: res.TotalMinutes.String()},
			{Item: "Weeks per month", Value: wage.WeeksPerMonth.String()},
		},
	})

	return exporter, nil
}

// Bytes renders the report in the given format.
func Bytes(r Report, format string) ([]byte, error) {
	exporter, err := newExporter(r)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatXLSX:
		data, err = exporter.ToBytes()
	case FormatCSV:
		data, err = exporter.ToCSVBytes()
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s report: %w", format, err)
	}
	return data, nil
}

// Save writes the report to path in the given format.
func Save(path string, r Report, format string) error {
	exporter, err := newExporter(r)
	if err != nil {
		return err
	}

	switch format {
	case FormatXLSX:
		err = exporter.ExportToExcel(path)
	case FormatCSV:
		var data []byte
		if data, err = exporter.ToCSVBytes(); err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return fmt.Errorf("save %s report: %w", format, err)
	}
	return nil
}

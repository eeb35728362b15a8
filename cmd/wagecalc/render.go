package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/service"
	"github.com/locvowork/wage_calculator/internal/wage"
	"github.com/shopspring/decimal"
)

const chartWidth = 30

var (
	lightForeground = lipgloss.Color("#101F38")
	lightAccent     = lipgloss.Color("#2E7D32")
	lightMuted      = lipgloss.Color("#6B7280")
	lightBorder     = lipgloss.Color("#D6DAE0")

	darkForeground = lipgloss.Color("#F2F2F2")
	darkAccent     = lipgloss.Color("#8BC34A")
	darkMuted      = lipgloss.Color("#9AA5B8")
	darkBorder     = lipgloss.Color("#2A3850")

	destructive = lipgloss.Color("#E53935")
)

// palette holds the styles of one color scheme.
type palette struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Muted lipgloss.Style
	Bar   lipgloss.Style
	Error lipgloss.Style
	Box   lipgloss.Style
}

func newPalette(w io.Writer, dark bool) palette {
	fg, accent, muted, border := lightForeground, lightAccent, lightMuted, lightBorder
	if dark {
		fg, accent, muted, border = darkForeground, darkAccent, darkMuted, darkBorder
	}

	r := lipgloss.NewRenderer(w)
	return palette{
		Title: r.NewStyle().Bold(true).Foreground(accent),
		Label: r.NewStyle().Foreground(muted).Width(14),
		Value: r.NewStyle().Bold(true).Foreground(fg),
		Muted: r.NewStyle().Foreground(muted),
		Bar:   r.NewStyle().Foreground(accent),
		Error: r.NewStyle().Foreground(destructive),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}

func euro(d decimal.Decimal) string {
	return "€ " + d.StringFixed(2)
}

func renderResult(p palette, res *domain.WageResult) string {
	rows := [][2]string{
		{"Hourly rate", euro(res.Rate)},
		{"Total hours", res.TotalHours.StringFixed(2)},
		{"Weekly wage", euro(res.WeeklyWage)},
		{"Monthly wage", euro(res.MonthlyWage)},
	}

	lines := []string{p.Title.Render(fmt.Sprintf("%s, age %d", res.Role.Label(), res.Age)), ""}
	for _, row := range rows {
		lines = append(lines, p.Label.Render(row[0])+p.Value.Render(row[1]))
	}
	return p.Box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderRates(p palette, role domain.Role, rates []service.AgeRate) string {
	var sb strings.Builder
	sb.WriteString(p.Title.Render(role.Label() + " rates"))
	sb.WriteString("\n")
	sb.WriteString(p.Label.Render("Age") + p.Muted.Render("Hourly rate"))
	sb.WriteString("\n")
	for _, r := range rates {
		sb.WriteString(p.Label.Render(fmt.Sprint(r.Age)) + p.Value.Render(euro(r.Rate)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderChart draws earnings per age as horizontal bars scaled to the
// highest earning.
func renderChart(p palette, role domain.Role, series []domain.AgeEarning) string {
	top := decimal.Zero
	for _, pt := range series {
		if pt.Earning.GreaterThan(top) {
			top = pt.Earning
		}
	}

	var sb strings.Builder
	sb.WriteString(p.Title.Render("Weekly earnings by age, " + role.Label()))
	for _, pt := range series {
		n := 0
		if top.IsPositive() {
			n = int(pt.Earning.Mul(decimal.NewFromInt(chartWidth)).Div(top).Round(0).IntPart())
		}
		bar := p.Bar.Render(strings.Repeat("█", n)) + strings.Repeat(" ", chartWidth-n)
		fmt.Fprintf(&sb, "\n%3d │%s %s", pt.Age, bar, euro(pt.Earning))
	}
	return sb.String()
}

func renderDurations(p palette, list wage.DurationList) string {
	lines := []string{p.Label.Render("Total") + p.Value.Render(fmt.Sprint(list.Total))}
	if len(list.Values) > 0 {
		values := make([]string, len(list.Values))
		for i, v := range list.Values {
			values[i] = fmt.Sprint(v)
		}
		lines = append(lines, p.Label.Render("Used")+strings.Join(values, ", "))
	}
	if len(list.Rejected) > 0 {
		lines = append(lines, p.Label.Render("Ignored")+p.Error.Render(strings.Join(list.Rejected, ", ")))
	}
	return strings.Join(lines, "\n")
}

func renderAges(ages []int) string {
	out := make([]string, len(ages))
	for i, a := range ages {
		out[i] = fmt.Sprint(a)
	}
	return strings.Join(out, " ")
}

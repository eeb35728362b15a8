package handler

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/service"
	"github.com/locvowork/wage_calculator/internal/wage"
	"github.com/shopspring/decimal"
)

// HeaderSessionID ties a calculation to a stored session in the history.
const HeaderSessionID = "X-Session-ID"

// ==================== Requests ====================

// CalculateRequest accepts either explicit shifts or the quick-entry form.
// The form is used as soon as hours or minutes are present; age may then be
// sent as text.
type CalculateRequest struct {
	Role    string              `json:"role"`
	Age     interface{}         `json:"age"`
	Shifts  []domain.ShiftEntry `json:"shifts"`
	Hours   *string             `json:"hours"`
	Minutes *string             `json:"minutes"`
}

func (r CalculateRequest) IsForm() bool {
	return r.Hours != nil || r.Minutes != nil
}

func (r CalculateRequest) Form() domain.WageForm {
	form := domain.WageForm{Role: r.Role, Age: r.ageText()}
	if r.Hours != nil {
		form.Hours = *r.Hours
	}
	if r.Minutes != nil {
		form.Minutes = *r.Minutes
	}
	return form
}

// Query converts the request to a WageQuery. An age that is not a whole
// number becomes 0, which validation reports as an invalid age.
func (r CalculateRequest) Query() domain.WageQuery {
	role, _ := domain.ParseRole(r.Role)
	age, _ := strconv.Atoi(strings.TrimSpace(r.ageText()))
	return domain.WageQuery{Role: role, Age: age, Shifts: r.Shifts}
}

func (r CalculateRequest) ageText() string {
	switch v := r.Age.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v != math.Trunc(v) {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

type EarningsByAgeRequest struct {
	Role   string              `json:"role"`
	Shifts []domain.ShiftEntry `json:"shifts"`
}

type ParseDurationsRequest struct {
	Text string `json:"text"`
}

type DarkModeRequest struct {
	DarkMode *bool `json:"dark_mode"`
}

// SessionRequest is the body of a session save.
type SessionRequest struct {
	Role        string              `json:"role"`
	Age         int                 `json:"age"`
	Shifts      []domain.ShiftEntry `json:"shifts"`
	HoursText   string              `json:"hours_text"`
	MinutesText string              `json:"minutes_text"`
	DarkMode    bool                `json:"dark_mode"`
}

func (r SessionRequest) Snapshot() domain.SessionSnapshot {
	role, _ := domain.ParseRole(r.Role)
	return domain.SessionSnapshot{
		Role:        role,
		Age:         r.Age,
		Shifts:      r.Shifts,
		HoursText:   r.HoursText,
		MinutesText: r.MinutesText,
		DarkMode:    r.DarkMode,
	}
}

// ==================== Responses ====================

type WageResultResponse struct {
	CalculationID string              `json:"calculation_id,omitempty"`
	Role          domain.Role         `json:"role"`
	RoleLabel     string              `json:"role_label"`
	Age           int                 `json:"age"`
	Rate          string              `json:"rate"`
	Shifts        []domain.ShiftEntry `json:"shifts"`
	TotalMinutes  string              `json:"total_minutes"`
	TotalHours    string              `json:"total_hours"`
	WeeklyWage    string              `json:"weekly_wage"`
	MonthlyWage   string              `json:"monthly_wage"`
}

func NewWageResultResponse(calc *service.Calculation) WageResultResponse {
	res := calc.Result
	return WageResultResponse{
		CalculationID: calc.ID,
		Role:          res.Role,
		RoleLabel:     res.Role.Label(),
		Age:           res.Age,
		Rate:          money(res.Rate),
		Shifts:        calc.Query.Shifts,
		TotalMinutes:  res.TotalMinutes.String(),
		TotalHours:    money(res.TotalHours),
		WeeklyWage:    money(res.WeeklyWage),
		MonthlyWage:   money(res.MonthlyWage),
	}
}

type AgeEarningResponse struct {
	Age     int    `json:"age"`
	Rate    string `json:"rate"`
	Earning string `json:"earning"`
}

type EarningsByAgeResponse struct {
	Role   domain.Role          `json:"role"`
	Series []AgeEarningResponse `json:"series"`
}

func NewEarningsByAgeResponse(role domain.Role, series []domain.AgeEarning) EarningsByAgeResponse {
	out := EarningsByAgeResponse{Role: role, Series: make([]AgeEarningResponse, len(series))}
	for i, p := range series {
		out.Series[i] = AgeEarningResponse{Age: p.Age, Rate: money(p.Rate), Earning: money(p.Earning)}
	}
	return out
}

type AgeRateResponse struct {
	Age  int    `json:"age"`
	Rate string `json:"rate"`
}

type RatesResponse struct {
	Role  domain.Role       `json:"role"`
	Label string            `json:"label"`
	Rates []AgeRateResponse `json:"rates"`
}

func NewRatesResponse(role domain.Role, rates []service.AgeRate) RatesResponse {
	out := RatesResponse{Role: role, Label: role.Label(), Rates: make([]AgeRateResponse, len(rates))}
	for i, r := range rates {
		out.Rates[i] = AgeRateResponse{Age: r.Age, Rate: money(r.Rate)}
	}
	return out
}

type CalculationRecordResponse struct {
	CalculationID string      `json:"calculation_id"`
	SessionID     string      `json:"session_id,omitempty"`
	Role          domain.Role `json:"role"`
	Age           int         `json:"age"`
	ShiftCount    int         `json:"shift_count"`
	TotalHours    string      `json:"total_hours"`
	WeeklyWage    string      `json:"weekly_wage"`
	MonthlyWage   string      `json:"monthly_wage"`
	CalculatedAt  string      `json:"calculated_at"`
}

func NewHistoryResponse(records []domain.CalculationRecord) []CalculationRecordResponse {
	out := make([]CalculationRecordResponse, len(records))
	for i, r := range records {
		out[i] = CalculationRecordResponse{
			CalculationID: r.CalculationID,
			SessionID:     r.SessionID,
			Role:          r.Role,
			Age:           r.Age,
			ShiftCount:    r.ShiftCount,
			TotalHours:    money(r.TotalHours),
			WeeklyWage:    money(r.WeeklyWage),
			MonthlyWage:   money(r.MonthlyWage),
			CalculatedAt:  r.CalculatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}

type SessionResponse struct {
	SessionID string                 `json:"session_id"`
	Snapshot  domain.SessionSnapshot `json:"snapshot"`
}

// ValidationErrorResponse lists every invalid field of a request.
type ValidationErrorResponse struct {
	Errors wage.ValidationErrors `json:"errors"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

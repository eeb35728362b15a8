package wage

import (
	"fmt"
	"strings"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// RoundingMode selects how currency amounts are rounded to cents.
type RoundingMode int

const (
	// RoundHalfUp rounds halves away from zero: 22.975 -> 22.98.
	RoundHalfUp RoundingMode = iota
	// RoundHalfEven rounds halves to the even cent (banker's rounding).
	RoundHalfEven
)

// ParseRoundingMode maps a configuration value to a RoundingMode.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "half_up", "halfup":
		return RoundHalfUp, nil
	case "bank", "bankers", "half_even", "halfeven":
		return RoundHalfEven, nil
	}
	return RoundHalfUp, fmt.Errorf("unknown rounding mode %q", s)
}

func (m RoundingMode) String() string {
	if m == RoundHalfEven {
		return "half_even"
	}
	return "half_up"
}

var (
	minutesPerHour = decimal.NewFromInt(60)
	// WeeksPerMonth is the fixed approximation used for monthly projections.
	WeeksPerMonth = decimal.RequireFromString("4.33")
)

// Option configures an Engine.
type Option func(*Engine)

// WithRounding sets the rounding mode for displayed amounts.
func WithRounding(mode RoundingMode) Option {
	return func(e *Engine) {
		e.rounding = mode
	}
}

// Engine computes wages from a rate table. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	table    *RateTable
	rounding RoundingMode
}

// NewEngine creates an engine over table.
func NewEngine(table *RateTable, opts ...Option) *Engine {
	e := &Engine{table: table, rounding: RoundHalfUp}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rounding returns the configured rounding mode.
func (e *Engine) Rounding() RoundingMode {
	return e.rounding
}

// RatesForRole returns the age to rate mapping of role.
func (e *Engine) RatesForRole(role domain.Role) map[int]decimal.Decimal {
	return e.table.Rates(role)
}

// ValidAges returns the ages with a rate for role, ascending.
func (e *Engine) ValidAges(role domain.Role) []int {
	return e.table.Ages(role)
}

// AgeRange returns the lowest and highest valid age of role.
func (e *Engine) AgeRange(role domain.Role) (youngest, oldest int, ok bool) {
	ages := e.ValidAges(role)
	if len(ages) == 0 {
		return 0, 0, false
	}
	return ages[0], ages[len(ages)-1], true
}

// KeepAge reports whether age is still selectable after switching to role.
// It returns 0 and false when the age has to be cleared.
func (e *Engine) KeepAge(role domain.Role, age int) (int, bool) {
	if _, ok := e.table.Rate(role, age); ok {
		return age, true
	}
	return 0, false
}

// TotalMinutes sums the worked minutes of shifts. Durations must be finite.
func TotalMinutes(shifts []domain.ShiftEntry) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shifts {
		total = total.Add(decimal.NewFromFloat(s.Hours).Mul(minutesPerHour)).Add(decimal.NewFromFloat(s.Minutes))
	}
	return total
}

// Calculate validates q and computes the weekly and monthly wage. Invalid
// input yields ValidationErrors and no result.
func (e *Engine) Calculate(q domain.WageQuery) (*domain.WageResult, error) {
	vq, err := e.ValidateQuery(q)
	if err != nil {
		return nil, err
	}
	return e.compute(vq)
}

func (e *Engine) compute(vq ValidatedQuery) (*domain.WageResult, error) {
	q := vq.Query()

	rate, err := e.rateFor(q.Role, q.Age)
	if err != nil {
		return nil, err
	}

	minutes := TotalMinutes(q.Shifts)
	weekly := earning(rate, minutes)

	return &domain.WageResult{
		Role:            q.Role,
		Age:             q.Age,
		Rate:            rate,
		TotalMinutes:    minutes,
		TotalHours:      minutes.Div(minutesPerHour),
		WeeklyWage:      e.round(weekly),
		MonthlyWage:     e.round(weekly.Mul(WeeksPerMonth)),
		WeeklyWageExact: weekly,
	}, nil
}

// EarningsByAge returns, for every valid age of role, what the given shifts
// would earn. An empty shift list is allowed and yields zero earnings.
func (e *Engine) EarningsByAge(role domain.Role, shifts []domain.ShiftEntry) ([]domain.AgeEarning, error) {
	var errs ValidationErrors
	if !role.Valid() {
		errs = append(errs, FieldError{
			Field:   "role",
			Code:    CodeInvalidRole,
			Message: fmt.Sprintf("unknown role %q", role),
		})
	}
	errs = append(errs, validateShifts(shifts)...)
	if len(errs) > 0 {
		return nil, errs
	}

	minutes := TotalMinutes(shifts)
	ages := e.ValidAges(role)
	series := make([]domain.AgeEarning, 0, len(ages))
	for _, age := range ages {
		rate, err := e.rateFor(role, age)
		if err != nil {
			return nil, err
		}
		series = append(series, domain.AgeEarning{
			Age:     age,
			Rate:    rate,
			Earning: e.round(earning(rate, minutes)),
		})
	}
	return series, nil
}

func (e *Engine) rateFor(role domain.Role, age int) (decimal.Decimal, error) {
	rate, ok := e.table.Rate(role, age)
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no positive rate for %s at age %d", ErrRateTableInconsistency, role, age)
	}
	return rate, nil
}

// earning multiplies before dividing so cent amounts stay exact.
func earning(rate, minutes decimal.Decimal) decimal.Decimal {
	return rate.Mul(minutes).Div(minutesPerHour)
}

func (e *Engine) round(d decimal.Decimal) decimal.Decimal {
	if e.rounding == RoundHalfEven {
		return d.RoundBank(2)
	}
	return d.Round(2)
}

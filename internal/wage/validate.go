package wage

import (
	"fmt"
	"math"

	"github.com/locvowork/wage_calculator/internal/domain"
)

// ValidatedQuery is a WageQuery that passed ValidateQuery.
type ValidatedQuery struct {
	query domain.WageQuery
}

// Query returns the validated input.
func (v ValidatedQuery) Query() domain.WageQuery {
	return v.query
}

// ValidateQuery checks every rule against q and returns all violations at
// once. The returned error is a ValidationErrors.
func (e *Engine) ValidateQuery(q domain.WageQuery) (ValidatedQuery, error) {
	var errs ValidationErrors

	if !q.Role.Valid() {
		errs = append(errs, FieldError{
			Field:   "role",
			Code:    CodeInvalidRole,
			Message: fmt.Sprintf("unknown role %q", q.Role),
		})
	} else if _, ok := e.table.Rate(q.Role, q.Age); !ok {
		youngest, oldest, _ := e.AgeRange(q.Role)
		errs = append(errs, FieldError{
			Field:   "age",
			Code:    CodeInvalidAge,
			Message: fmt.Sprintf("no rate for age %d as %s (valid ages %d-%d)", q.Age, q.Role.Label(), youngest, oldest),
		})
	}

	errs = append(errs, validateShifts(q.Shifts)...)

	if len(q.Shifts) == 0 {
		errs = append(errs, FieldError{
			Field:   "shifts",
			Code:    CodeNoShifts,
			Message: "at least one shift is required",
		})
	}

	if len(errs) > 0 {
		return ValidatedQuery{}, errs
	}
	return ValidatedQuery{query: q}, nil
}

func validateShifts(shifts []domain.ShiftEntry) ValidationErrors {
	var errs ValidationErrors
	for i, s := range shifts {
		idx := i
		if !finite(s.Hours) || s.Hours < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("shifts[%d].hours", i),
				Index:   &idx,
				Code:    CodeInvalidShift,
				Message: "hours must be a non-negative number",
			})
		}
		if !finite(s.Minutes) || s.Minutes < 0 || s.Minutes >= 60 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("shifts[%d].minutes", i),
				Index:   &idx,
				Code:    CodeInvalidShift,
				Message: "minutes must be at least 0 and below 60",
			})
		}
		if s.Hours == 0 && s.Minutes == 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("shifts[%d]", i),
				Index:   &idx,
				Code:    CodeInvalidShift,
				Message: "shift must not be empty",
			})
		}
	}
	return errs
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package wage

import (
	"math"
	"strconv"
	"strings"

	"github.com/locvowork/wage_calculator/internal/domain"
)

// QueryFromForm converts the quick-entry text fields into a WageQuery. The
// hour and minute lists are summed and folded into a single shift. Problems
// that only exist at the text level are returned as field errors; range
// checks are left to ValidateQuery.
func QueryFromForm(form domain.WageForm) (domain.WageQuery, ValidationErrors) {
	var errs ValidationErrors

	role, _ := domain.ParseRole(form.Role)
	q := domain.WageQuery{Role: role}

	ageText := strings.TrimSpace(form.Age)
	if ageText == "" {
		errs = append(errs, FieldError{Field: "age", Code: CodeInvalidAge, Message: "age is required"})
	} else if age, err := strconv.Atoi(ageText); err != nil {
		errs = append(errs, FieldError{Field: "age", Code: CodeInvalidAge, Message: "age must be a whole number"})
	} else {
		q.Age = age
	}

	hours := ParseDurations(form.Hours)
	minutes := ParseDurations(form.Minutes)
	if hours.Malformed {
		errs = append(errs, FieldError{
			Field:   "hours",
			Code:    CodeMalformedDuration,
			Message: "hours must be comma separated non-negative numbers",
		})
	}
	if minutes.Malformed {
		errs = append(errs, FieldError{
			Field:   "minutes",
			Code:    CodeMalformedDuration,
			Message: "minutes must be comma separated non-negative numbers",
		})
	}

	blank := strings.TrimSpace(form.Hours) == "" && strings.TrimSpace(form.Minutes) == ""
	if !blank && !hours.Malformed && !minutes.Malformed {
		extraHours := math.Floor(minutes.Total / 60)
		q.Shifts = []domain.ShiftEntry{{
			Hours:   hours.Total + extraHours,
			Minutes: minutes.Total - extraHours*60,
		}}
	}

	return q, errs
}

// ResolveForm turns the quick-entry fields into a query that passes
// validation. Form and validation errors are reported as one batch.
func (e *Engine) ResolveForm(form domain.WageForm) (domain.WageQuery, error) {
	q, formErrs := QueryFromForm(form)

	vq, err := e.ValidateQuery(q)
	if err != nil || len(formErrs) > 0 {
		valErrs, _ := AsValidationErrors(err)
		return domain.WageQuery{}, mergeFormErrors(formErrs, valErrs)
	}
	return vq.Query(), nil
}

// CalculateForm is ResolveForm followed by Calculate.
func (e *Engine) CalculateForm(form domain.WageForm) (*domain.WageResult, error) {
	q, err := e.ResolveForm(form)
	if err != nil {
		return nil, err
	}
	return e.Calculate(q)
}

// mergeFormErrors drops validation errors that only restate a problem
// already reported on the text fields.
func mergeFormErrors(formErrs, valErrs ValidationErrors) ValidationErrors {
	durationErr := formErrs.HasField("hours") || formErrs.HasField("minutes")
	merged := append(ValidationErrors{}, formErrs...)
	for _, fe := range valErrs {
		if fe.Field == "age" && formErrs.HasField("age") {
			continue
		}
		if durationErr && strings.HasPrefix(fe.Field, "shifts") {
			continue
		}
		merged = append(merged, fe)
	}
	return merged
}

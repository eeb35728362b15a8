package wage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/locvowork/wage_calculator/internal/domain"
)

// ParseShifts parses every text with ParseShift. positions[i] is the index
// in texts of shifts[i]; texts that fail to parse are reported on
// shifts[n] with their own index instead.
func ParseShifts(texts []string) (shifts []domain.ShiftEntry, positions []int, errs ValidationErrors) {
	shifts = make([]domain.ShiftEntry, 0, len(texts))
	for i, text := range texts {
		s, err := ParseShift(text)
		if err != nil {
			idx := i
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("shifts[%d]", i),
				Index:   &idx,
				Code:    CodeInvalidShift,
				Message: err.Error(),
			})
			continue
		}
		shifts = append(shifts, s)
		positions = append(positions, i)
	}
	return shifts, positions, errs
}

// ResolveShifts builds a validated query from H[:MM] shift texts. Parse
// errors and validation errors of the shifts that did parse are reported
// as one batch.
func (e *Engine) ResolveShifts(role domain.Role, age int, texts []string) (domain.WageQuery, error) {
	shifts, positions, parseErrs := ParseShifts(texts)

	vq, err := e.ValidateQuery(domain.WageQuery{Role: role, Age: age, Shifts: shifts})
	if err == nil && len(parseErrs) == 0 {
		return vq.Query(), nil
	}
	valErrs, _ := AsValidationErrors(err)
	return domain.WageQuery{}, MergeShiftErrors(parseErrs, valErrs, positions)
}

// MergeShiftErrors combines parse errors with the validation errors of the
// parsed shifts. Shift errors are moved back to the index of their text
// and ordered by it; NO_SHIFTS is dropped when texts were given but none
// parsed.
func MergeShiftErrors(parseErrs, valErrs ValidationErrors, positions []int) ValidationErrors {
	if len(parseErrs) == 0 {
		return valErrs
	}

	var merged, shiftErrs ValidationErrors
	for _, fe := range valErrs {
		switch {
		case fe.Code == CodeNoShifts:
			continue
		case fe.Index != nil && *fe.Index < len(positions):
			shiftErrs = append(shiftErrs, reindex(fe, positions[*fe.Index]))
		default:
			merged = append(merged, fe)
		}
	}

	shiftErrs = append(shiftErrs, parseErrs...)
	sort.SliceStable(shiftErrs, func(i, j int) bool {
		return *shiftErrs[i].Index < *shiftErrs[j].Index
	})
	return append(merged, shiftErrs...)
}

func reindex(fe FieldError, idx int) FieldError {
	old := fmt.Sprintf("shifts[%d]", *fe.Index)
	fe.Field = fmt.Sprintf("shifts[%d]", idx) + strings.TrimPrefix(fe.Field, old)
	fe.Index = &idx
	return fe
}

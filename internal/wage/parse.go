package wage

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/locvowork/wage_calculator/internal/domain"
)

// DurationList is the parsed form of a comma separated duration field.
type DurationList struct {
	Total    float64   `json:"total"`
	Values   []float64 `json:"values"`
	Rejected []string  `json:"rejected"`
	// Malformed is set when the input had content but no token was usable,
	// which separates typed garbage from a legitimate zero.
	Malformed bool `json:"malformed"`
}

// ParseDurations splits text on commas and sums every token that parses to a
// finite, non-negative number. Empty tokens are skipped; other unusable
// tokens are listed in Rejected.
func ParseDurations(text string) DurationList {
	list := DurationList{Values: []float64{}, Rejected: []string{}}
	if strings.TrimSpace(text) == "" {
		return list
	}

	for _, raw := range strings.Split(text, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			list.Rejected = append(list.Rejected, tok)
			continue
		}
		list.Values = append(list.Values, v)
		list.Total += v
	}

	list.Malformed = len(list.Values) == 0
	return list
}

// ParseDurationList returns the sum of the valid tokens of text and whether
// the input was malformed.
func ParseDurationList(text string) (total float64, malformed bool) {
	list := ParseDurations(text)
	return list.Total, list.Malformed
}

// ParseShift parses the "H" or "H:MM" shift notation. Range checks are left
// to query validation.
func ParseShift(text string) (domain.ShiftEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ShiftEntry{}, fmt.Errorf("empty shift")
	}

	hoursPart, minutesPart, hasMinutes := strings.Cut(text, ":")
	hours, err := strconv.ParseFloat(strings.TrimSpace(hoursPart), 64)
	if err != nil {
		return domain.ShiftEntry{}, fmt.Errorf("invalid shift hours %q", hoursPart)
	}

	var minutes float64
	if hasMinutes {
		minutes, err = strconv.ParseFloat(strings.TrimSpace(minutesPart), 64)
		if err != nil {
			return domain.ShiftEntry{}, fmt.Errorf("invalid shift minutes %q", minutesPart)
		}
	}

	return domain.ShiftEntry{Hours: hours, Minutes: minutes}, nil
}

package wage

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed rates.yaml
var defaultRatesYAML []byte

// ErrInvalidRateTable is returned when a rate table breaks its invariants.
var ErrInvalidRateTable = errors.New("invalid rate table")

// RateTable maps a role and an age to an hourly rate. It is read-only after
// construction.
type RateTable struct {
	rates map[domain.Role]map[int]decimal.Decimal
}

type rateFile struct {
	Roles map[string]map[int]float64 `yaml:"roles"`
}

// NewRateTable copies rates into a new table. The table is not validated so
// callers loading external data should call Validate.
func NewRateTable(rates map[domain.Role]map[int]decimal.Decimal) *RateTable {
	t := &RateTable{rates: make(map[domain.Role]map[int]decimal.Decimal, len(rates))}
	for role, byAge := range rates {
		cp := make(map[int]decimal.Decimal, len(byAge))
		for age, rate := range byAge {
			cp[age] = rate
		}
		t.rates[role] = cp
	}
	return t
}

// DefaultRateTable returns the built-in rate table.
func DefaultRateTable() *RateTable {
	t, err := ParseRateTable(defaultRatesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rate table: %v", err))
	}
	return t
}

// LoadRateTable reads a YAML rate table from path. An empty path yields the
// built-in table.
func LoadRateTable(path string) (*RateTable, error) {
	if path == "" {
		return DefaultRateTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table: %w", err)
	}
	return ParseRateTable(data)
}

// ParseRateTable decodes and validates a YAML rate table.
func ParseRateTable(data []byte) (*RateTable, error) {
	var rf rateFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("decode rate table: %w", err)
	}

	rates := make(map[domain.Role]map[int]decimal.Decimal, len(rf.Roles))
	for name, byAge := range rf.Roles {
		role, ok := domain.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRateTable, name)
		}
		m := make(map[int]decimal.Decimal, len(byAge))
		for age, rate := range byAge {
			m[age] = decimal.NewFromFloat(rate)
		}
		rates[role] = m
	}

	t := &RateTable{rates: rates}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that every role has at least one age, that ages are
// positive and that every rate is strictly positive.
func (t *RateTable) Validate() error {
	for _, role := range domain.Roles {
		byAge, ok := t.rates[role]
		if !ok || len(byAge) == 0 {
			return fmt.Errorf("%w: role %s has no ages", ErrInvalidRateTable, role)
		}
		for age, rate := range byAge {
			if age <= 0 {
				return fmt.Errorf("%w: role %s has non-positive age %d", ErrInvalidRateTable, role, age)
			}
			if !rate.IsPositive() {
				return fmt.Errorf("%w: role %s age %d has non-positive rate %s", ErrInvalidRateTable, role, age, rate)
			}
		}
	}
	return nil
}

// Rate returns the hourly rate for role at age.
func (t *RateTable) Rate(role domain.Role, age int) (decimal.Decimal, bool) {
	rate, ok := t.rates[role][age]
	return rate, ok
}

// Rates returns a copy of the age to rate mapping of role.
func (t *RateTable) Rates(role domain.Role) map[int]decimal.Decimal {
	byAge := t.rates[role]
	cp := make(map[int]decimal.Decimal, len(byAge))
	for age, rate := range byAge {
		cp[age] = rate
	}
	return cp
}

// Ages returns the ages of role in ascending order.
func (t *RateTable) Ages(role domain.Role) []int {
	byAge, ok := t.rates[role]
	if !ok {
		return nil
	}
	ages := make([]int, 0, len(byAge))
	for age := range byAge {
		ages = append(ages, age)
	}
	sort.Ints(ages)
	return ages
}

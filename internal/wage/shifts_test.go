package wage

import (
	"testing"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShifts(t *testing.T) {
	engine := NewEngine(DefaultRateTable())

	testCases := map[string]struct {
		role   domain.Role
		age    int
		texts  []string
		want   []domain.ShiftEntry
		fields []string
	}{
		"all valid": {
			role:  domain.RoleShelfStacker,
			age:   18,
			texts: []string{"2:30", "1"},
			want:  []domain.ShiftEntry{{Hours: 2, Minutes: 30}, {Hours: 1}},
		},
		"unreadable shift keeps role error": {
			role:   domain.Role("boss"),
			age:    99,
			texts:  []string{"abc"},
			fields: []string{"role", "shifts[0]"},
		},
		"age and shift errors at their own index": {
			role:   domain.RoleShelfStacker,
			age:    99,
			texts:  []string{"1", "abc", "0", "2:75"},
			fields: []string{"age", "shifts[1]", "shifts[2]", "shifts[3].minutes"},
		},
		"no shifts at all": {
			role:   domain.RoleTeamLeader,
			age:    18,
			fields: []string{"shifts"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			q, err := engine.ResolveShifts(tc.role, tc.age, tc.texts)
			if tc.fields == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.want, q.Shifts)
				return
			}

			verrs, ok := AsValidationErrors(err)
			require.True(t, ok, "expected validation errors, got %v", err)
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Field
				if fe.Index != nil {
					assert.Contains(t, fe.Field, "shifts[")
				}
			}
			assert.Equal(t, tc.fields, fields)
		})
	}
}

func TestMergeShiftErrors_Reindexes(t *testing.T) {
	_, positions, parseErrs := ParseShifts([]string{"x", "0"})
	require.Equal(t, []int{1}, positions)

	zero := 0
	merged := MergeShiftErrors(parseErrs, ValidationErrors{
		{Field: "shifts[0]", Index: &zero, Code: CodeInvalidShift, Message: "shift must not be empty"},
	}, positions)

	require.Len(t, merged, 2)
	assert.Equal(t, "shifts[0]", merged[0].Field)
	assert.Equal(t, "shifts[1]", merged[1].Field)
	assert.Equal(t, 1, *merged[1].Index)
	assert.Equal(t, 0, *merged[0].Index)
}

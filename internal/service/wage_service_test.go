package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/repository"
	"github.com/locvowork/wage_calculator/internal/session"
	"github.com/locvowork/wage_calculator/internal/wage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type failingHistory struct{}

func (failingHistory) Record(context.Context, domain.CalculationRecord) error {
	return errors.New("history offline")
}

func (failingHistory) Recent(context.Context, domain.Role, int) ([]domain.CalculationRecord, error) {
	return nil, errors.New("history offline")
}

func newTestService(history domain.CalculationHistory) (*WageService, domain.SessionRepository) {
	repo := repository.NewMemorySessionRepository()
	svc := NewWageService(wage.NewEngine(wage.DefaultRateTable()), repo, history)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestWageService_Roles(t *testing.T) {
	svc, _ := newTestService(nil)

	roles := svc.Roles()
	require.Len(t, roles, 2)
	assert.Equal(t, RoleInfo{
		Role:   domain.RoleShelfStacker,
		Label:  "Shelf stacker",
		Ages:   []int{13, 14, 15, 16, 17, 18, 19, 20, 21},
		MinAge: 13,
		MaxAge: 21,
	}, roles[0])
	assert.Equal(t, 16, roles[1].MinAge)
}

func TestWageService_Rates(t *testing.T) {
	svc, _ := newTestService(nil)

	rates, err := svc.Rates(domain.RoleTeamLeader)
	require.NoError(t, err)
	require.Len(t, rates, 6)
	assert.Equal(t, 16, rates[0].Age)
	assert.True(t, rates[5].Rate.Equal(decimal.NewFromInt(20)))

	_, err = svc.Rates("cashier")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestWageService_CalculateRecordsHistory(t *testing.T) {
	ctx := context.Background()
	history := repository.NewMemoryHistory(10)
	svc, _ := newTestService(history)

	q := domain.WageQuery{
		Role:   domain.RoleTeamLeader,
		Age:    21,
		Shifts: []domain.ShiftEntry{{Hours: 10}, {Hours: 5, Minutes: 30}},
	}
	calc, err := svc.Calculate(ctx, q, "session-1")
	require.NoError(t, err)
	assert.NotEmpty(t, calc.ID)
	assert.Equal(t, "310.00", calc.Result.WeeklyWage.StringFixed(2))

	records, err := svc.History(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, calc.ID, records[0].CalculationID)
	assert.Equal(t, "session-1", records[0].SessionID)
	assert.Equal(t, 2, records[0].ShiftCount)
	assert.True(t, records[0].TotalHours.Equal(decimal.RequireFromString("15.5")))
	assert.True(t, records[0].CalculatedAt.Equal(fixedNow))
}

func TestWageService_CalculateInvalidIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	history := repository.NewMemoryHistory(10)
	svc, _ := newTestService(history)

	_, err := svc.Calculate(ctx, domain.WageQuery{Role: domain.RoleTeamLeader, Age: 14}, "")
	verrs, ok := wage.AsValidationErrors(err)
	require.True(t, ok)
	assert.True(t, verrs.HasCode(wage.CodeInvalidAge))
	assert.True(t, verrs.HasCode(wage.CodeNoShifts))

	records, err := svc.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWageService_HistoryFailureDoesNotFailCalculation(t *testing.T) {
	svc, _ := newTestService(failingHistory{})

	calc, err := svc.Calculate(context.Background(), domain.WageQuery{
		Role:   domain.RoleShelfStacker,
		Age:    18,
		Shifts: []domain.ShiftEntry{{Hours: 2, Minutes: 30}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "22.98", calc.Result.WeeklyWage.StringFixed(2))

	_, err = svc.History(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestWageService_CalculateForm(t *testing.T) {
	svc, _ := newTestService(nil)

	calc, err := svc.CalculateForm(context.Background(), domain.WageForm{
		Role: "teamleider", Age: "21", Hours: "10, 5", Minutes: "30",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []domain.ShiftEntry{{Hours: 15, Minutes: 30}}, calc.Query.Shifts)
	assert.Equal(t, "1342.30", calc.Result.MonthlyWage.StringFixed(2))

	_, err = svc.CalculateForm(context.Background(), domain.WageForm{Role: "team_leader", Age: "x", Hours: "abc"}, "")
	verrs, ok := wage.AsValidationErrors(err)
	require.True(t, ok)
	assert.True(t, verrs.HasField("age"))
	assert.True(t, verrs.HasField("hours"))

	records, err := svc.History(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, records, "no history store configured")
}

func TestWageService_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(repository.NewMemoryHistory(50))
	svc.WithHistoryLimit(3)

	q := domain.WageQuery{Role: domain.RoleShelfStacker, Age: 16, Shifts: []domain.ShiftEntry{{Hours: 1}}}
	for i := 0; i < 5; i++ {
		_, err := svc.Calculate(ctx, q, "")
		require.NoError(t, err)
	}

	testCases := map[string]struct {
		limit int
		want  int
	}{
		"default":       {limit: 0, want: 3},
		"smaller":       {limit: 2, want: 2},
		"above maximum": {limit: 100, want: 3},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			records, err := svc.History(ctx, "", tc.limit)
			require.NoError(t, err)
			assert.Len(t, records, tc.want)
		})
	}
}

func TestWageService_EarningsByAge(t *testing.T) {
	svc, _ := newTestService(nil)

	series, err := svc.EarningsByAge(context.Background(), domain.RoleShelfStacker, []domain.ShiftEntry{{Hours: 2, Minutes: 30}})
	require.NoError(t, err)
	require.Len(t, series, 9)
	assert.Equal(t, "22.98", series[5].Earning.StringFixed(2))

	_, err = svc.EarningsByAge(context.Background(), "cashier", nil)
	assert.Error(t, err)
}

func TestWageService_Sessions(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(nil)

	saved, err := svc.SaveSession(ctx, "s-1", domain.SessionSnapshot{
		Role:      domain.RoleShelfStacker,
		Age:       18,
		Shifts:    []domain.ShiftEntry{{Hours: 2, Minutes: 30}},
		HoursText: "2",
		DarkMode:  false,
	})
	require.NoError(t, err)
	assert.True(t, saved.SavedAt.Equal(fixedNow))

	require.NoError(t, svc.SetDarkMode(ctx, "s-1", true))

	snap, err := svc.LoadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 18, snap.Age)
	assert.True(t, snap.DarkMode)
	assert.Equal(t, "2", snap.HoursText)
	assert.Equal(t, []domain.ShiftEntry{{Hours: 2, Minutes: 30}}, snap.Shifts)

	ids, err := svc.ListSessions(ctx, domain.SessionFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids)

	require.NoError(t, svc.DeleteSession(ctx, "s-1"))
	_, err = svc.LoadSession(ctx, "s-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, "s-1"), domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.SetDarkMode(ctx, "s-1", true), domain.ErrSessionNotFound)
	_, err = repo.Load(ctx, "s-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// an age that is not valid for the stored role is dropped on restore
	require.NoError(t, repo.Save(ctx, "s-2", map[string]string{
		session.KeyRole: string(domain.RoleTeamLeader),
		session.KeyAge:  "14",
	}))
	snap, err = svc.LoadSession(ctx, "s-2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTeamLeader, snap.Role)
	assert.Zero(t, snap.Age)

	require.NoError(t, repo.Save(ctx, "s-3", map[string]string{session.KeyAge: "old"}))
	_, err = svc.LoadSession(ctx, "s-3")
	assert.Error(t, err)
}

func TestWageService_InvalidSessionID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)

	_, err := svc.SaveSession(ctx, " ", domain.SessionSnapshot{})
	assert.ErrorIs(t, err, ErrInvalidSessionID)
	_, err = svc.LoadSession(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidSessionID)
	assert.ErrorIs(t, svc.SetDarkMode(ctx, "", true), ErrInvalidSessionID)
	assert.ErrorIs(t, svc.DeleteSession(ctx, ""), ErrInvalidSessionID)

	assert.NotEqual(t, NewSessionID(), NewSessionID())
}

func TestWageService_Export(t *testing.T) {
	svc, _ := newTestService(nil)
	q := domain.WageQuery{Role: domain.RoleShelfStacker, Age: 18, Shifts: []domain.ShiftEntry{{Hours: 2, Minutes: 30}}}

	xlsx, err := svc.Export(context.Background(), q, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, "wage_report_shelf_stacker_20240601_120000.xlsx", xlsx.Name)

	f, err := excelize.OpenReader(bytes.NewReader(xlsx.Data))
	require.NoError(t, err)
	defer f.Close()
	weekly, err := f.GetCellValue("Wage report", "E3")
	require.NoError(t, err)
	assert.Equal(t, "22.98", weekly)

	csv, err := svc.Export(context.Background(), q, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", csv.ContentType)
	assert.Contains(t, string(csv.Data), "Shelf stacker,18,9.19,2.50,22.98,99.48")

	_, err = svc.Export(context.Background(), q, "pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, svc.SaveReport(context.Background(), q, "xlsx", path))
	saved, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer saved.Close()
	assert.Equal(t, []string{"Wage report", "Details"}, saved.GetSheetList())
	assert.ErrorIs(t, svc.SaveReport(context.Background(), q, "pdf", path+".pdf"), ErrUnsupportedFormat)

	_, err = svc.Export(context.Background(), domain.WageQuery{Role: domain.RoleShelfStacker, Age: 30}, "xlsx")
	_, ok := wage.AsValidationErrors(err)
	assert.True(t, ok)
}

func TestWageService_RateTableInconsistency(t *testing.T) {
	table := wage.NewRateTable(map[domain.Role]map[int]decimal.Decimal{
		domain.RoleShelfStacker: {18: decimal.Zero},
		domain.RoleTeamLeader:   {18: decimal.NewFromInt(11)},
	})
	svc := NewWageService(wage.NewEngine(table), repository.NewMemorySessionRepository(), nil)

	_, err := svc.Calculate(context.Background(), domain.WageQuery{
		Role: domain.RoleShelfStacker, Age: 18, Shifts: []domain.ShiftEntry{{Hours: 1}},
	}, "")
	assert.ErrorIs(t, err, wage.ErrRateTableInconsistency)
}

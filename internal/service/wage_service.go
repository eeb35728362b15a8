package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/logger"
	"github.com/locvowork/wage_calculator/internal/report"
	"github.com/locvowork/wage_calculator/internal/session"
	"github.com/locvowork/wage_calculator/internal/wage"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrInvalidSessionID  = errors.New("invalid session id")
	ErrUnsupportedFormat = errors.New("unsupported report format")
)

// DefaultHistoryLimit caps history listings when the caller gives no limit.
const DefaultHistoryLimit = 100

// WageService ties the wage engine to session storage, calculation history
// and report export.
type WageService struct {
	engine       *wage.Engine
	sessions     domain.SessionRepository
	history      domain.CalculationHistory
	historyLimit int
	now          func() time.Time
}

// NewWageService creates a WageService. history may be nil, in which case
// calculations are not recorded.
func NewWageService(engine *wage.Engine, sessions domain.SessionRepository, history domain.CalculationHistory) *WageService {
	return &WageService{
		engine:       engine,
		sessions:     sessions,
		history:      history,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
}

// WithHistoryLimit changes the default number of history entries returned.
func (ws *WageService) WithHistoryLimit(limit int) *WageService {
	if limit > 0 {
		ws.historyLimit = limit
	}
	return ws
}

// RoleInfo describes a role and its selectable ages.
type RoleInfo struct {
	Role   domain.Role `json:"role"`
	Label  string      `json:"label"`
	Ages   []int       `json:"ages"`
	MinAge int         `json:"min_age"`
	MaxAge int         `json:"max_age"`
}

// AgeRate is one row of a role's rate table.
type AgeRate struct {
	Age  int             `json:"age"`
	Rate decimal.Decimal `json:"rate"`
}

// Calculation is a computed wage together with the query it answers.
type Calculation struct {
	ID     string
	Query  domain.WageQuery
	Result *domain.WageResult
}

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ==================== Rates ====================

// Roles lists every role with its valid ages.
func (ws *WageService) Roles() []RoleInfo {
	infos := make([]RoleInfo, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		youngest, oldest, _ := ws.engine.AgeRange(role)
		infos = append(infos, RoleInfo{
			Role:   role,
			Label:  role.Label(),
			Ages:   ws.engine.ValidAges(role),
			MinAge: youngest,
			MaxAge: oldest,
		})
	}
	return infos
}

// Rates returns the rate table of role ordered by age.
func (ws *WageService) Rates(role domain.Role) ([]AgeRate, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	rates := ws.engine.RatesForRole(role)
	out := make([]AgeRate, 0, len(rates))
	for _, age := range ws.engine.ValidAges(role) {
		out = append(out, AgeRate{Age: age, Rate: rates[age]})
	}
	return out, nil
}

// ==================== Calculations ====================

// Calculate computes the wage for q. A successful calculation is recorded
// in the history; a failing history store only produces a warning.
func (ws *WageService) Calculate(ctx context.Context, q domain.WageQuery, sessionID string) (*Calculation, error) {
	res, err := ws.engine.Calculate(q)
	if err != nil {
		ws.logFailure(ctx, err)
		return nil, err
	}

	calc := &Calculation{ID: uuid.NewString(), Query: q, Result: res}
	ctx = logger.WithLogger(ctx, map[string]interface{}{"calculation_id": calc.ID})
	logger.InfoLog(ctx, "Calculated wage for %s age %d: weekly %s", res.Role, res.Age, res.WeeklyWage.StringFixed(2))

	ws.record(ctx, calc, sessionID)
	return calc, nil
}

// CalculateForm is Calculate for the quick-entry text form.
func (ws *WageService) CalculateForm(ctx context.Context, form domain.WageForm, sessionID string) (*Calculation, error) {
	q, err := ws.engine.ResolveForm(form)
	if err != nil {
		ws.logFailure(ctx, err)
		return nil, err
	}
	return ws.Calculate(ctx, q, sessionID)
}

// ResolveForm converts the quick-entry text form into a validated query.
func (ws *WageService) ResolveForm(form domain.WageForm) (domain.WageQuery, error) {
	return ws.engine.ResolveForm(form)
}

// ResolveShifts converts H[:MM] shift texts into a validated query.
func (ws *WageService) ResolveShifts(role domain.Role, age int, texts []string) (domain.WageQuery, error) {
	return ws.engine.ResolveShifts(role, age, texts)
}

// EarningsByAge returns the chart series for role and shifts.
func (ws *WageService) EarningsByAge(ctx context.Context, role domain.Role, shifts []domain.ShiftEntry) ([]domain.AgeEarning, error) {
	series, err := ws.engine.EarningsByAge(role, shifts)
	if err != nil {
		ws.logFailure(ctx, err)
		return nil, err
	}
	return series, nil
}

// ParseDurations exposes the comma separated duration parser.
func (ws *WageService) ParseDurations(text string) wage.DurationList {
	return wage.ParseDurations(text)
}

// History returns recent calculations, newest first.
func (ws *WageService) History(ctx context.Context, role domain.Role, limit int) ([]domain.CalculationRecord, error) {
	if ws.history == nil {
		return []domain.CalculationRecord{}, nil
	}
	if limit <= 0 || limit > ws.historyLimit {
		limit = ws.historyLimit
	}
	records, err := ws.history.Recent(ctx, role, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load calculation history: %w", err)
	}
	return records, nil
}

func (ws *WageService) record(ctx context.Context, calc *Calculation, sessionID string) {
	if ws.history == nil {
		return
	}
	res := calc.Result
	rec := domain.CalculationRecord{
		CalculationID: calc.ID,
		SessionID:     sessionID,
		Role:          res.Role,
		Age:           res.Age,
		ShiftCount:    len(calc.Query.Shifts),
		TotalHours:    res.TotalHours.Round(2),
		WeeklyWage:    res.WeeklyWage,
		MonthlyWage:   res.MonthlyWage,
		CalculatedAt:  ws.now().UTC(),
	}
	if err := ws.history.Record(ctx, rec); err != nil {
		logger.WarnLog(ctx, "Failed to record calculation history: %v", err)
	}
}

func (ws *WageService) logFailure(ctx context.Context, err error) {
	if errors.Is(err, wage.ErrRateTableInconsistency) {
		logger.ErrorLog(ctx, "Rate table is inconsistent: %v", err)
		return
	}
	if verrs, ok := wage.AsValidationErrors(err); ok {
		logger.DebugLog(ctx, "Rejected wage query with %d field errors", len(verrs))
	}
}

// ==================== Sessions ====================

// NewSessionID returns a fresh random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// SaveSession stores snap under id, stamping the save time.
func (ws *WageService) SaveSession(ctx context.Context, id string, snap domain.SessionSnapshot) (domain.SessionSnapshot, error) {
	if err := checkSessionID(id); err != nil {
		return domain.SessionSnapshot{}, err
	}
	snap.SavedAt = ws.now().UTC().Truncate(time.Second)

	values, err := session.Encode(snap)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := ws.sessions.Save(ctx, id, values); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to save session %s: %w", id, err)
	}
	logger.DebugLog(ctx, "Saved session %s", id)
	return snap, nil
}

// LoadSession restores a snapshot. A stored age that is not valid for the
// stored role is cleared.
func (ws *WageService) LoadSession(ctx context.Context, id string) (domain.SessionSnapshot, error) {
	if err := checkSessionID(id); err != nil {
		return domain.SessionSnapshot{}, err
	}
	values, err := ws.sessions.Load(ctx, id)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	snap, err := session.Decode(values)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if snap.Age != 0 {
		snap.Age, _ = ws.engine.KeepAge(snap.Role, snap.Age)
	}
	return snap, nil
}

// SetDarkMode updates only the display preference of an existing session.
func (ws *WageService) SetDarkMode(ctx context.Context, id string, dark bool) error {
	if err := checkSessionID(id); err != nil {
		return err
	}
	if _, err := ws.sessions.Load(ctx, id); err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	value := "false"
	if dark {
		value = "true"
	}
	if err := ws.sessions.SetValue(ctx, id, session.KeyDarkMode, value); err != nil {
		return fmt.Errorf("failed to update session %s: %w", id, err)
	}
	return nil
}

func (ws *WageService) DeleteSession(ctx context.Context, id string) error {
	if err := checkSessionID(id); err != nil {
		return err
	}
	if err := ws.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (ws *WageService) ListSessions(ctx context.Context, filter domain.SessionFilter) ([]string, error) {
	ids, err := ws.sessions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func checkSessionID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > 128 {
		return ErrInvalidSessionID
	}
	return nil
}

// ==================== Export ====================

// Export renders the report of q as xlsx or csv.
func (ws *WageService) Export(ctx context.Context, q domain.WageQuery, format string) (*ExportFile, error) {
	rep, err := ws.buildReport(ctx, q, format)
	if err != nil {
		return nil, err
	}

	data, err := report.Bytes(rep, format)
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}
	logger.InfoLog(ctx, "Exported %s report for %s age %d", format, rep.Result.Role, rep.Result.Age)

	return &ExportFile{
		Name:        report.FileName(rep, format),
		ContentType: report.ContentType(format),
		Data:        data,
	}, nil
}

// SaveReport writes the report of q to path as xlsx or csv.
func (ws *WageService) SaveReport(ctx context.Context, q domain.WageQuery, format, path string) error {
	rep, err := ws.buildReport(ctx, q, format)
	if err != nil {
		return err
	}

	if err := report.Save(path, rep, format); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	logger.InfoLog(ctx, "Saved %s report for %s age %d to %s", format, rep.Result.Role, rep.Result.Age, path)
	return nil
}

func (ws *WageService) buildReport(ctx context.Context, q domain.WageQuery, format string) (report.Report, error) {
	if format != report.FormatXLSX && format != report.FormatCSV {
		return report.Report{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	res, err := ws.engine.Calculate(q)
	if err != nil {
		ws.logFailure(ctx, err)
		return report.Report{}, err
	}
	series, err := ws.engine.EarningsByAge(q.Role, q.Shifts)
	if err != nil {
		ws.logFailure(ctx, err)
		return report.Report{}, err
	}

	return report.Report{
		Result:      res,
		Shifts:      q.Shifts,
		Earnings:    series,
		GeneratedAt: ws.now(),
	}, nil
}

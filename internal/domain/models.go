package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ==================== ROLES ====================

// Role is the job category that selects which rate table applies.
type Role string

const (
	RoleShelfStacker Role = "shelf_stacker"
	RoleTeamLeader   Role = "team_leader"
)

// Roles lists every known role in display order.
var Roles = []Role{RoleShelfStacker, RoleTeamLeader}

var roleAliases = map[string]Role{
	"shelf_stacker": RoleShelfStacker,
	"shelfstacker":  RoleShelfStacker,
	"shelf-stacker": RoleShelfStacker,
	"vakkenvuller":  RoleShelfStacker,
	"team_leader":   RoleTeamLeader,
	"teamleader":    RoleTeamLeader,
	"team-leader":   RoleTeamLeader,
	"teamleider":    RoleTeamLeader,
}

// ParseRole resolves a user supplied role name. Unknown names are returned
// as-is together with false so validation can report them.
func ParseRole(s string) (Role, bool) {
	key := strings.Join(strings.Fields(strings.ToLower(s)), "_")
	if r, ok := roleAliases[key]; ok {
		return r, true
	}
	return Role(key), false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleShelfStacker || r == RoleTeamLeader
}

// Label returns the human readable name of the role.
func (r Role) Label() string {
	switch r {
	case RoleShelfStacker:
		return "Shelf stacker"
	case RoleTeamLeader:
		return "Team leader"
	}
	return string(r)
}

// ==================== WAGE CALCULATION ====================

// ShiftEntry is one block of worked time.
type ShiftEntry struct {
	Hours   float64 `json:"hours"`
	Minutes float64 `json:"minutes"`
}

// WageQuery is the input of a single calculation.
type WageQuery struct {
	Role   Role         `json:"role"`
	Age    int          `json:"age"`
	Shifts []ShiftEntry `json:"shifts"`
}

// WageForm carries the quick-entry text fields: comma separated hour and
// minute lists as typed by the user.
type WageForm struct {
	Role    string `json:"role"`
	Age     string `json:"age"`
	Hours   string `json:"hours"`
	Minutes string `json:"minutes"`
}

// WageResult is the outcome of a successful calculation.
type WageResult struct {
	Role         Role            `json:"role"`
	Age          int             `json:"age"`
	Rate         decimal.Decimal `json:"rate"`
	TotalMinutes decimal.Decimal `json:"total_minutes"`
	TotalHours   decimal.Decimal `json:"total_hours"`
	WeeklyWage   decimal.Decimal `json:"weekly_wage"`
	MonthlyWage  decimal.Decimal `json:"monthly_wage"`

	// WeeklyWageExact is the unrounded weekly wage that derived amounts are
	// computed from.
	WeeklyWageExact decimal.Decimal `json:"-"`
}

// AgeEarning is one point of the earnings-by-age series.
type AgeEarning struct {
	Age     int             `json:"age"`
	Rate    decimal.Decimal `json:"rate"`
	Earning decimal.Decimal `json:"earning"`
}

// ==================== SESSIONS ====================

// SessionSnapshot is the last used form state of a user session.
type SessionSnapshot struct {
	Role        Role         `json:"role"`
	Age         int          `json:"age"`
	Shifts      []ShiftEntry `json:"shifts"`
	HoursText   string       `json:"hours_text"`
	MinutesText string       `json:"minutes_text"`
	DarkMode    bool         `json:"dark_mode"`
	SavedAt     time.Time    `json:"saved_at"`
}

// SessionFilter defines criteria for listing stored sessions
type SessionFilter struct {
	Prefix string
	Limit  int
	Offset int
}

// ==================== HISTORY ====================

// CalculationRecord is an entry of the calculation history.
type CalculationRecord struct {
	CalculationID string          `json:"calculation_id"`
	SessionID     string          `json:"session_id,omitempty"`
	Role          Role            `json:"role"`
	Age           int             `json:"age"`
	ShiftCount    int             `json:"shift_count"`
	TotalHours    decimal.Decimal `json:"total_hours"`
	WeeklyWage    decimal.Decimal `json:"weekly_wage"`
	MonthlyWage   decimal.Decimal `json:"monthly_wage"`
	CalculatedAt  time.Time       `json:"calculated_at"`
}

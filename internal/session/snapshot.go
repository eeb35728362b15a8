// Package session converts session snapshots to and from the flat key/value
// form the session stores persist.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/locvowork/wage_calculator/internal/domain"
)

// Snapshot keys.
const (
	KeyRole        = "role"
	KeyAge         = "age"
	KeyShifts      = "shifts"
	KeyHoursText   = "hours_text"
	KeyMinutesText = "minutes_text"
	KeyDarkMode    = "dark_mode"
	KeySavedAt     = "saved_at"
)

// Keys lists every key Encode writes.
var Keys = []string{KeyRole, KeyAge, KeyShifts, KeyHoursText, KeyMinutesText, KeyDarkMode, KeySavedAt}

// Encode flattens snap into string values.
func Encode(snap domain.SessionSnapshot) (map[string]string, error) {
	shifts := snap.Shifts
	if shifts == nil {
		shifts = []domain.ShiftEntry{}
	}
	raw, err := json.Marshal(shifts)
	if err != nil {
		return nil, fmt.Errorf("encode shifts: %w", err)
	}

	values := map[string]string{
		KeyRole:        string(snap.Role),
		KeyAge:         "",
		KeyShifts:      string(raw),
		KeyHoursText:   snap.HoursText,
		KeyMinutesText: snap.MinutesText,
		KeyDarkMode:    strconv.FormatBool(snap.DarkMode),
		KeySavedAt:     "",
	}
	if snap.Age > 0 {
		values[KeyAge] = strconv.Itoa(snap.Age)
	}
	if !snap.SavedAt.IsZero() {
		values[KeySavedAt] = snap.SavedAt.UTC().Format(time.RFC3339)
	}
	return values, nil
}

// Decode rebuilds a snapshot from stored values. Missing keys leave the zero
// value; present but unreadable values are an error.
func Decode(values map[string]string) (domain.SessionSnapshot, error) {
	var snap domain.SessionSnapshot

	if v := values[KeyRole]; v != "" {
		snap.Role, _ = domain.ParseRole(v)
	}

	if v := strings.TrimSpace(values[KeyAge]); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return snap, fmt.Errorf("decode %s: %w", KeyAge, err)
		}
		snap.Age = age
	}

	if v := values[KeyShifts]; v != "" {
		if err := json.Unmarshal([]byte(v), &snap.Shifts); err != nil {
			return snap, fmt.Errorf("decode %s: %w", KeyShifts, err)
		}
	}

	snap.HoursText = values[KeyHoursText]
	snap.MinutesText = values[KeyMinutesText]

	if v := values[KeyDarkMode]; v != "" {
		dark, err := strconv.ParseBool(v)
		if err != nil {
			return snap, fmt.Errorf("decode %s: %w", KeyDarkMode, err)
		}
		snap.DarkMode = dark
	}

	if v := values[KeySavedAt]; v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return snap, fmt.Errorf("decode %s: %w", KeySavedAt, err)
		}
		snap.SavedAt = t
	}

	return snap, nil
}

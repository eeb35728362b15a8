package domain

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when no snapshot is stored for a session ID.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores session snapshots as flat key/value pairs.
type SessionRepository interface {
	Save(ctx context.Context, sessionID string, values map[string]string) error
	Load(ctx context.Context, sessionID string) (map[string]string, error)
	// SetValue upserts a single key of an existing or new session.
	SetValue(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context, filter SessionFilter) ([]string, error)
}

// CalculationHistory records successful calculations.
type CalculationHistory interface {
	Record(ctx context.Context, rec CalculationRecord) error
	// Recent returns the newest records first. An empty role matches all roles.
	Recent(ctx context.Context, role Role, limit int) ([]CalculationRecord, error)
}

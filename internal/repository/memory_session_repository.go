package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/locvowork/wage_calculator/internal/domain"
)

type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

// NewMemorySessionRepository creates a SessionRepository that lives as long
// as the process.
func NewMemorySessionRepository() domain.SessionRepository {
	return &memorySessionRepository{sessions: make(map[string]map[string]string)}
}

func (r *memorySessionRepository) Save(_ context.Context, sessionID string, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(values) == 0 {
		delete(r.sessions, sessionID)
		return nil
	}
	r.sessions[sessionID] = copyValues(values)
	return nil
}

func (r *memorySessionRepository) Load(_ context.Context, sessionID string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copyValues(values), nil
}

func (r *memorySessionRepository) SetValue(_ context.Context, sessionID, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, ok := r.sessions[sessionID]
	if !ok {
		values = make(map[string]string)
		r.sessions[sessionID] = values
	}
	values[key] = value
	return nil
}

func (r *memorySessionRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *memorySessionRepository) List(_ context.Context, filter domain.SessionFilter) ([]string, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		if strings.HasPrefix(id, filter.Prefix) {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return paginate(ids, filter.Offset, filter.Limit), nil
}

func copyValues(values map[string]string) map[string]string {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return cp
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

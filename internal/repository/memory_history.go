package repository

import (
	"context"
	"sync"

	"github.com/locvowork/wage_calculator/internal/domain"
)

// DefaultHistoryCapacity bounds the in-memory history when no capacity is given.
const DefaultHistoryCapacity = 100

type memoryHistory struct {
	mu       sync.RWMutex
	capacity int
	records  []domain.CalculationRecord
}

// NewMemoryHistory keeps the newest capacity records in process memory.
func NewMemoryHistory(capacity int) domain.CalculationHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &memoryHistory{capacity: capacity}
}

func (h *memoryHistory) Record(_ context.Context, rec domain.CalculationRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if over := len(h.records) - h.capacity; over > 0 {
		h.records = append(h.records[:0:0], h.records[over:]...)
	}
	return nil
}

func (h *memoryHistory) Recent(_ context.Context, role domain.Role, limit int) ([]domain.CalculationRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := []domain.CalculationRecord{}
	for i := len(h.records) - 1; i >= 0; i-- {
		if role != "" && h.records[i].Role != role {
			continue
		}
		out = append(out, h.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

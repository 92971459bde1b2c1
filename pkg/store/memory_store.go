package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps mappings in-process. Used for tests and for deployments
// that accept losing thread linkage on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  []Mapping
	index map[string]int // source id -> first row
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// RecordMapping appends a row. Lookups keep returning the first row recorded
// for a source id.
func (m *MemoryStore) RecordMapping(_ context.Context, sourceID, translatedID string) error {
	if err := checkIDs(sourceID, translatedID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, Mapping{
		SourceID:     sourceID,
		TranslatedID: translatedID,
		CreatedAt:    m.now().UTC(),
	})
	if _, exists := m.index[sourceID]; !exists {
		m.index[sourceID] = len(m.rows) - 1
	}
	return nil
}

func (m *MemoryStore) LookupTranslatedID(_ context.Context, sourceID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[sourceID]
	if !ok {
		return "", false, nil
	}
	return m.rows[i].TranslatedID, true, nil
}

// Mappings returns all rows in insertion order.
func (m *MemoryStore) Mappings(_ context.Context) ([]Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Mapping, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

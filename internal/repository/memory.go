package repository

import (
	"context"
	"errors"
	"sync"

	"foodie-skill/internal/domain"
)

// MemoryStore keeps records in process memory. Records survive only as long
// as the Lambda execution environment.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.PersistedRecord
}

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.PersistedRecord)}
}

func (s *MemoryStore) Load(_ context.Context, userKey string) (*domain.PersistedRecord, error) {
	if userKey == "" {
		return nil, errors.New("repository: Load: user key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userKey]
	if !ok {
		return nil, nil
	}
	out := domain.PersistedRecord{Profile: rec.Profile, Recommendations: rec.Recommendations.Clone()}
	return &out, nil
}

func (s *MemoryStore) Save(_ context.Context, userKey string, rec domain.PersistedRecord) error {
	if userKey == "" {
		return errors.New("repository: Save: user key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userKey] = domain.PersistedRecord{Profile: rec.Profile, Recommendations: rec.Recommendations.Clone()}
	return nil
}

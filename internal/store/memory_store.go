package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps reports in process. Used by tests and when no database
// is configured.
type MemoryStore struct {
	mu      sync.Mutex
	reports []Report
	byID    map[string]int
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) SaveReport(_ context.Context, report Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	if _, ok := s.byID[report.ID]; ok {
		return fmt.Errorf("duplicate report id %q", report.ID)
	}
	s.reports = append(s.reports, report)
	s.byID[report.ID] = len(s.reports) - 1
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, id string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Report{}, fmt.Errorf("memory store is closed")
	}
	idx, ok := s.byID[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return s.reports[idx], nil
}

func (s *MemoryStore) ListReports(_ context.Context, userID string, limit int) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("memory store is closed")
	}

	out := make([]Report, 0, len(s.reports))
	for i := len(s.reports) - 1; i >= 0; i-- {
		report := s.reports[i]
		if userID != "" && report.UserID != userID {
			continue
		}
		out = append(out, report)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

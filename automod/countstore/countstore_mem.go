package countstore

import (
	"context"
	"sync"
)

// MemCountStore is an in-process CountStore. Safe for concurrent use from
// all in-flight evaluations. Buckets are never expired; intended for tests
// and single-node deployments without redis.
type MemCountStore struct {
	mu             sync.Mutex
	counts         map[string]int
	distinctCounts map[string]map[string]bool
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts:         make(map[string]int),
		distinctCounts: make(map[string]map[string]bool),
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[periodBucket(name, val, period)], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range allPeriods {
		s.counts[periodBucket(name, val, p)]++
	}
	return nil
}

func (s *MemCountStore) IncrementPeriod(ctx context.Context, name, val, period string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[periodBucket(name, val, period)]++
	return nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.distinctCounts[periodBucket(name, bucket, period)]), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range allPeriods {
		k := periodBucket(name, bucket, p)
		m, ok := s.distinctCounts[k]
		if !ok {
			m = make(map[string]bool)
			s.distinctCounts[k] = m
		}
		m[val] = true
	}
	return nil
}

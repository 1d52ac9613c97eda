package window

import (
	"context"
	"sync"
	"time"
)

type MemStore struct {
	mu      sync.Mutex
	entries map[string][]Message
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string][]Message),
	}
}

func (s *MemStore) Snapshot(ctx context.Context, communityID, userID string) (*UserWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.entries[windowKey(communityID, userID)]
	// copy, so the snapshot stays stable after later writes
	msgs := make([]Message, len(stored))
	copy(msgs, stored)
	return &UserWindow{Messages: msgs}, nil
}

func (s *MemStore) RecordMessage(ctx context.Context, communityID, userID string, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := windowKey(communityID, userID)
	msgs := append([]Message{m}, s.entries[key]...)
	cutoff := time.Now().Add(-MaxAge)
	trimmed := msgs[:0:0]
	for i, prev := range msgs {
		if i >= MaxMessages || prev.At.Before(cutoff) {
			break
		}
		trimmed = append(trimmed, prev)
	}
	s.entries[key] = trimmed
	return nil
}

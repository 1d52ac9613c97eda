package setstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"
)

type MemSetStore struct {
	mu   sync.RWMutex
	sets map[string]map[string]bool
}

var _ SetStore = (*MemSetStore)(nil)

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		sets: make(map[string]map[string]bool),
	}
}

func (s *MemSetStore) AddToSet(name string, vals ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[name]
	if !ok {
		set = make(map[string]bool)
		s.sets[name] = set
	}
	for _, v := range vals {
		set[v] = true
	}
}

func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[name]
	if !ok {
		// unknown set reads as empty, so an unconfigured deployment
		// doesn't fail every rule evaluation
		return false, nil
	}
	return set[val], nil
}

func (s *MemSetStore) Members(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[name]
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// LoadFromFileJSON replaces set contents from a JSON document of the form
// {"set-name": ["val", ...], ...}.
func (s *MemSetStore) LoadFromFileJSON(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	var doc map[string][]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for name, vals := range doc {
		s.AddToSet(name, vals...)
	}
	return nil
}

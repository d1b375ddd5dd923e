package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tablewise/server/internal/ports/outbound"
)

// StateStore keeps device state in process memory. Everything is lost on
// restart, so it suits tests and single-user demos.
type StateStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewStateStore creates an empty store
func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string][]byte)}
}

var _ outbound.StateStore = (*StateStore)(nil)

func (s *StateStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	if !ok {
		return nil, outbound.ErrStateNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *StateStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.entries[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *StateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Keys lists stored keys starting with prefix in ascending order
func (s *StateStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

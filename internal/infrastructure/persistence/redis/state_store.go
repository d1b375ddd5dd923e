package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tablewise/server/internal/ports/outbound"
)

const scanBatch = 200

// StateStore keeps device state documents as Redis strings without expiry
type StateStore struct {
	client redis.UniversalClient
	ns     keyspace
}

// NewStateStore creates a state store using keys under prefix + "state:"
func NewStateStore(client redis.UniversalClient, prefix string) *StateStore {
	return &StateStore{client: client, ns: keyspace(prefix + "state:")}
}

var _ outbound.StateStore = (*StateStore)(nil)

func (s *StateStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.ns.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outbound.ErrStateNotFound
		}
		return nil, fmt.Errorf("get state %q: %w", key, err)
	}
	return data, nil
}

func (s *StateStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.ns.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("put state %q: %w", key, err)
	}
	return nil
}

func (s *StateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.ns.key(key)).Err(); err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}

// Keys scans for keys starting with prefix and returns them sorted
func (s *StateStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := s.ns.key(escapeGlob(prefix)) + "*"
	seen := make(map[string]struct{})

	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		seen[s.ns.strip(iter.Val())] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan state keys: %w", err)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

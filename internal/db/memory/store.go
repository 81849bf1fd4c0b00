package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/simdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store implements db.Store in process memory. It backs the "memory" driver used
// for local runs and end-to-end tests; nothing survives a restart.
type Store struct {
	// mu guards both keyspaces
	mu     sync.RWMutex
	values map[string][]byte
	hashes map[string]map[string]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		values: make(map[string][]byte),
		hashes: make(map[string]map[string]string),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// GetMulti returns values in key order; missing keys yield nil entries.
func (s *Store) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]byte, len(keys))
	for i, k := range keys {
		if v, ok := s.values[k]; ok {
			out[i] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Del deletes keys from both keyspaces.
func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.values, k)
		delete(s.hashes, k)
	}
	return nil
}

// Exists checks if a key exists in either keyspace.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, v := s.values[key]
	_, h := s.hashes[key]
	return v || h, nil
}

// Scan returns keys matching a glob pattern, sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.values {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	for k := range s.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// CompareAndSwap mirrors the Lua script of the Redis driver under the store lock.
func (s *Store) CompareAndSwap(
	_ context.Context, key string, expected int64, fields map[string]string,
) (int64, error) {
	if _, ok := fields[db.RevisionField]; ok {
		return 0, fmt.Errorf("field %q is managed by the store", db.RevisionField)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur int64
	if raw, ok := s.hashes[key][db.RevisionField]; ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, &db.Error{Op: db.OpEval, Err: err}
		}
		cur = n
	}
	if expected >= 0 && cur != expected {
		return 0, &db.RevisionMismatchError{Current: cur}
	}

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields)+1)
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	next := cur + 1
	h[db.RevisionField] = strconv.FormatInt(next, 10)
	return next, nil
}

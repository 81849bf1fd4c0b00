package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/simdex/internal/db"
)

// Get reads one blob.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return data, nil
}

// GetMulti reads blobs with pipelined GETs, batch commands at a time.
// Single-key commands keep it valid on a cluster where MGET would cross slots.
func (s *Store) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(keys))
	err := s.chunks(len(keys), func(start, end int) error {
		cmds := make([]rueidis.Completed, 0, end-start)
		for _, key := range keys[start:end] {
			cmds = append(cmds, s.client.B().Get().Key(key).Build())
		}
		for i, res := range s.client.DoMulti(ctx, cmds...) {
			data, err := res.AsBytes()
			if rueidis.IsRedisNil(err) {
				continue
			}
			if err != nil {
				return &db.Error{Op: db.OpGet, Key: keys[start+i], Err: err}
			}
			out[start+i] = data
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set writes one blob. Values are sent as binary strings since asset bytes
// are arbitrary.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// Del removes keys with one DEL per key, pipelined in batches. A purge of a
// large corpus therefore never builds a single unbounded command.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.chunks(len(keys), func(start, end int) error {
		cmds := make([]rueidis.Completed, 0, end-start)
		for _, key := range keys[start:end] {
			cmds = append(cmds, s.client.B().Del().Key(key).Build())
		}
		for i, res := range s.client.DoMulti(ctx, cmds...) {
			if err := res.Error(); err != nil {
				return &db.Error{Op: db.OpDel, Key: keys[start+i], Err: err}
			}
		}
		return nil
	})
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Key: key, Err: err}
	}
	return n > 0, nil
}

// Scan walks the cursor to completion. SCAN may report a key twice, so the
// result is deduplicated.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		seen   = make(map[string]struct{})
		cursor uint64
	)
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(pattern).Count(int64(s.batch)).Build()
		page, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Key: pattern, Err: err}
		}
		for _, k := range page.Elements {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if cursor = page.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}

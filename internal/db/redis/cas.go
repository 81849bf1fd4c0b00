package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/kailas-cloud/simdex/internal/db"
)

// casScript bumps the revision field and writes the remaining fields atomically.
// Returns {1, new_revision} on success and {0, current_revision} on mismatch.
const casScript = `
local cur = tonumber(redis.call('HGET', KEYS[1], 'revision') or '0')
local expected = tonumber(ARGV[1])
if expected >= 0 and cur ~= expected then
  return {0, cur}
end
local nxt = cur + 1
redis.call('HSET', KEYS[1], 'revision', nxt, unpack(ARGV, 2))
return {1, nxt}
`

// HGetAll returns all fields of a revisioned hash. A missing key yields an
// empty map, which readers treat as revision 0.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	return m, nil
}

// CompareAndSwap executes the revision check and write as one EVAL.
func (s *Store) CompareAndSwap(
	ctx context.Context, key string, expected int64, fields map[string]string,
) (int64, error) {
	if _, ok := fields[db.RevisionField]; ok {
		return 0, fmt.Errorf("field %q is managed by the store", db.RevisionField)
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]string, 0, 1+2*len(names))
	args = append(args, strconv.FormatInt(expected, 10))
	for _, k := range names {
		args = append(args, k, fields[k])
	}

	cmd := s.client.B().Eval().Script(casScript).Numkeys(1).Key(key).Arg(args...).Build()
	res, err := s.client.Do(ctx, cmd).AsIntSlice()
	if err != nil {
		return 0, &db.Error{Op: db.OpEval, Key: key, Err: err}
	}
	if len(res) != 2 {
		return 0, &db.Error{Op: db.OpEval, Key: key, Err: fmt.Errorf("unexpected reply length %d", len(res))}
	}
	if res[0] != 1 {
		return 0, &db.RevisionMismatchError{Current: res[1]}
	}
	return res[1], nil
}

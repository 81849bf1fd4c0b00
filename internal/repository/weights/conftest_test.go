package weights

import (
	"context"
	"testing"
	"time"
)

type mockStore struct {
	hgetallFn func(ctx context.Context, key string) (map[string]string, error)
	casFn     func(ctx context.Context, key string, expected int64, fields map[string]string) (int64, error)
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetallFn != nil {
		return m.hgetallFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) CompareAndSwap(
	ctx context.Context, key string, expected int64, fields map[string]string,
) (int64, error) {
	if m.casFn != nil {
		return m.casFn(ctx, key, expected, fields)
	}
	return expected + 1, nil
}

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	r := New(ms, "simdex:")
	r.now = func() time.Time { return fixedNow }
	return r, ms
}

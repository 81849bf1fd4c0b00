package corpus

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn      func(ctx context.Context, key string) ([]byte, error)
	getMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	setFn      func(ctx context.Context, key string, value []byte) error
	delFn      func(ctx context.Context, keys ...string) error
	existsFn   func(ctx context.Context, key string) (bool, error)
	scanFn     func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "simdex:"), ms
}

func testMesh(t *testing.T, id, category string) descriptor.Descriptor {
	t.Helper()
	return descriptor.Reconstruct(id, descriptor.KindMesh, category, map[string][]float64{
		descriptor.PartFourier: {1, 2, 3},
		descriptor.PartZernike: {0.5},
	}, map[string]string{"thumbnail": "/items/mesh/" + id + "/asset"},
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

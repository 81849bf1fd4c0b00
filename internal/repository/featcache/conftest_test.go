package featcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

type mockExtractor struct {
	fn    func(items []item.Raw) ([]item.Features, error)
	calls [][]string
}

func (m *mockExtractor) Extract(_ context.Context, _ descriptor.Kind, items []item.Raw) ([]item.Features, error) {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	m.calls = append(m.calls, names)
	if m.fn != nil {
		return m.fn(items)
	}
	out := make([]item.Features, len(items))
	for i, it := range items {
		out[i] = item.Features{
			Name:  it.Name,
			Parts: map[string][]float64{descriptor.PartFourier: {float64(len(it.Data))}, descriptor.PartZernike: {1}},
		}
	}
	return out, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data       map[string][]byte
	getMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	setFn      func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, keys)
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	m.data[key] = value
	return nil
}

func newTestCachedExtractor(t *testing.T, inner *mockExtractor) (*CachedExtractor, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: make(map[string][]byte)}
	return New(inner, ms, "simdex:", nil, zap.NewNop()), ms
}

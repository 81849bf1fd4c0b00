package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
	"github.com/kailas-cloud/simdex/internal/usecase/adaptation"
)

// --- Mocks ---

type mockExtractor struct {
	extractFn func(ctx context.Context, kind descriptor.Kind, raw item.Raw) (descriptor.Descriptor, error)
}

func (m *mockExtractor) ExtractOne(ctx context.Context, kind descriptor.Kind, raw item.Raw) (descriptor.Descriptor, error) {
	return m.extractFn(ctx, kind, raw)
}

type mockCorpus struct {
	items    []descriptor.Descriptor
	fetchErr error
}

func (m *mockCorpus) FetchAll(_ context.Context, _ descriptor.Kind) ([]descriptor.Descriptor, error) {
	return m.items, m.fetchErr
}

func (m *mockCorpus) GetMany(_ context.Context, _ descriptor.Kind, ids []string) ([]descriptor.Descriptor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID := make(map[string]descriptor.Descriptor, len(m.items))
	for _, d := range m.items {
		byID[d.ID()] = d
	}
	out := make([]descriptor.Descriptor, len(ids))
	for i, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		out[i] = d
	}
	return out, nil
}

// fakeWeights keeps one record with compare-and-swap semantics.
// conflicts > 0 makes that many Save calls lose to a simulated concurrent writer.
type fakeWeights struct {
	mu        sync.Mutex
	stored    *domweights.State
	getErr    error
	saveErr   error
	conflicts int
	saves     int
}

func (f *fakeWeights) Get(_ context.Context, _ descriptor.Kind) (domweights.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domweights.State{}, f.getErr
	}
	if f.stored == nil {
		return domweights.State{}, domain.ErrNotFound
	}
	return *f.stored, nil
}

func (f *fakeWeights) Create(_ context.Context, s domweights.State) (domweights.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored != nil {
		return domweights.State{}, domain.NewRevisionConflict(f.stored.Revision())
	}
	created := s.WithRevision(1, time.Now())
	f.stored = &created
	return created, nil
}

func (f *fakeWeights) Save(_ context.Context, s domweights.State) (domweights.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return domweights.State{}, f.saveErr
	}
	var cur int64
	if f.stored != nil {
		cur = f.stored.Revision()
	}
	if f.conflicts > 0 {
		f.conflicts--
		bumped := f.stored.WithRevision(cur+1, time.Now())
		f.stored = &bumped
		return domweights.State{}, domain.NewRevisionConflict(cur + 1)
	}
	if s.Revision() != cur {
		return domweights.State{}, domain.NewRevisionConflict(cur)
	}
	saved := s.WithRevision(cur+1, time.Now())
	f.stored = &saved
	return saved, nil
}

// --- Fixtures ---

func mesh(id string, fourier, zernike float64) descriptor.Descriptor {
	return descriptor.Reconstruct(id, descriptor.KindMesh, "", map[string][]float64{
		descriptor.PartFourier: {fourier},
		descriptor.PartZernike: {zernike},
	}, nil, time.Time{})
}

// abcCorpus scores A=0.25, B=1, C=0.25 against the origin with default weights.
func abcCorpus() []descriptor.Descriptor {
	return []descriptor.Descriptor{mesh("A", 1, 0), mesh("B", 2, 2), mesh("C", 0, 1)}
}

func originExtractor() *mockExtractor {
	return &mockExtractor{extractFn: func(context.Context, descriptor.Kind, item.Raw) (descriptor.Descriptor, error) {
		return mesh("q.obj", 0, 0), nil
	}}
}

func newTestService(t *testing.T, corpus *mockCorpus, store *fakeWeights) *Service {
	t.Helper()
	return New(originExtractor(), corpus, store, adaptation.DefaultParams(), adaptation.PolicyNone)
}

func storedState(t *testing.T, fourier, zernike float64, revision int64) *domweights.State {
	t.Helper()
	s, err := domweights.New(descriptor.MeshSchema(),
		map[string]float64{"fourier": fourier, "zernike": zernike}, nil, revision, time.Now())
	if err != nil {
		t.Fatalf("weights.New: %v", err)
	}
	return &s
}

package simdex

import (
	"context"

	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
)

// --- corpusUseCase mock ---

type mockCorpusUC struct {
	ingestFn func(
		ctx context.Context, kind descriptor.Kind, uploads []item.Raw,
		category string, attributes map[string]string,
	) ([]dombatch.Result, error)
	getFn       func(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error)
	listFn      func(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error)
	countFn     func(ctx context.Context, kind descriptor.Kind) (int, error)
	deleteFn    func(ctx context.Context, kind descriptor.Kind, id string) error
	deleteAllFn func(ctx context.Context, kind descriptor.Kind) (int, error)
	assetFn     func(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error)
}

func (m *mockCorpusUC) Ingest(
	ctx context.Context, kind descriptor.Kind, uploads []item.Raw,
	category string, attributes map[string]string,
) ([]dombatch.Result, error) {
	return m.ingestFn(ctx, kind, uploads, category, attributes)
}

func (m *mockCorpusUC) Get(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error) {
	return m.getFn(ctx, kind, id)
}

func (m *mockCorpusUC) List(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error) {
	return m.listFn(ctx, kind, category)
}

func (m *mockCorpusUC) Count(ctx context.Context, kind descriptor.Kind) (int, error) {
	return m.countFn(ctx, kind)
}

func (m *mockCorpusUC) Delete(ctx context.Context, kind descriptor.Kind, id string) error {
	return m.deleteFn(ctx, kind, id)
}

func (m *mockCorpusUC) DeleteAll(ctx context.Context, kind descriptor.Kind) (int, error) {
	return m.deleteAllFn(ctx, kind)
}

func (m *mockCorpusUC) Asset(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error) {
	return m.assetFn(ctx, kind, id)
}

// --- extractUseCase mock ---

type mockExtractUC struct {
	extractFn func(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result
}

func (m *mockExtractUC) Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result {
	return m.extractFn(ctx, kind, items)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) (*result.Outcome, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) (*result.Outcome, error) {
	return m.searchFn(ctx, req)
}

// --- weightsUseCase mock ---

type mockWeightsUC struct {
	getFn   func(ctx context.Context, kind descriptor.Kind) (domweights.State, error)
	resetFn func(ctx context.Context, kind descriptor.Kind) (domweights.State, error)
}

func (m *mockWeightsUC) Get(ctx context.Context, kind descriptor.Kind) (domweights.State, error) {
	return m.getFn(ctx, kind)
}

func (m *mockWeightsUC) Reset(ctx context.Context, kind descriptor.Kind) (domweights.State, error) {
	return m.resetFn(ctx, kind)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

package chi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	"github.com/kailas-cloud/simdex/internal/domain/weights"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, req *request.Request) (*result.Outcome, error)
}

func (m *mockSearcher) Search(ctx context.Context, req *request.Request) (*result.Outcome, error) {
	return m.searchFn(ctx, req)
}

type mockExtractor struct {
	extractFn func(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result
}

func (m *mockExtractor) Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result {
	return m.extractFn(ctx, kind, items)
}

type mockCorpus struct {
	ingestFn func(
		ctx context.Context, kind descriptor.Kind, uploads []item.Raw,
		category string, attributes map[string]string,
	) ([]dombatch.Result, error)
	getFn       func(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error)
	listFn      func(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error)
	deleteFn    func(ctx context.Context, kind descriptor.Kind, id string) error
	deleteAllFn func(ctx context.Context, kind descriptor.Kind) (int, error)
	assetFn     func(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error)
}

func (m *mockCorpus) Ingest(
	ctx context.Context, kind descriptor.Kind, uploads []item.Raw,
	category string, attributes map[string]string,
) ([]dombatch.Result, error) {
	return m.ingestFn(ctx, kind, uploads, category, attributes)
}

func (m *mockCorpus) Get(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error) {
	return m.getFn(ctx, kind, id)
}

func (m *mockCorpus) List(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error) {
	return m.listFn(ctx, kind, category)
}

func (m *mockCorpus) Delete(ctx context.Context, kind descriptor.Kind, id string) error {
	return m.deleteFn(ctx, kind, id)
}

func (m *mockCorpus) DeleteAll(ctx context.Context, kind descriptor.Kind) (int, error) {
	return m.deleteAllFn(ctx, kind)
}

func (m *mockCorpus) Asset(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error) {
	return m.assetFn(ctx, kind, id)
}

type mockWeights struct {
	getFn   func(ctx context.Context, kind descriptor.Kind) (weights.State, error)
	resetFn func(ctx context.Context, kind descriptor.Kind) (weights.State, error)
}

func (m *mockWeights) Get(ctx context.Context, kind descriptor.Kind) (weights.State, error) {
	return m.getFn(ctx, kind)
}

func (m *mockWeights) Reset(ctx context.Context, kind descriptor.Kind) (weights.State, error) {
	return m.resetFn(ctx, kind)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// deps groups the fakes behind one server; unset fakes panic when called,
// which the recoverer turns into a 500.
type deps struct {
	search  *mockSearcher
	extract *mockExtractor
	corpus  *mockCorpus
	weights *mockWeights
	health  *mockHealth
	opts    Options
}

func newTestHandler(t *testing.T, d deps) http.Handler {
	t.Helper()
	if d.search == nil {
		d.search = &mockSearcher{}
	}
	if d.extract == nil {
		d.extract = &mockExtractor{}
	}
	if d.corpus == nil {
		d.corpus = &mockCorpus{}
	}
	if d.weights == nil {
		d.weights = &mockWeights{}
	}
	if d.health == nil {
		d.health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	if d.opts.MaxTopN == 0 {
		d.opts.MaxTopN = 100
	}
	return NewServer(d.search, d.extract, d.corpus, d.weights, d.health, d.opts, zap.NewNop()).Handler()
}

type upload struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, method, target string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// okHandler answers 200 with an empty body.
func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func testMesh(t *testing.T, id, category string) descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.New(id, descriptor.MeshSchema(), category, map[string][]float64{
		descriptor.PartFourier: {1, 2},
		descriptor.PartZernike: {3},
	}, map[string]string{"thumbnail": "/items/mesh/" + id + "/asset"})
	if err != nil {
		t.Fatalf("build mesh: %v", err)
	}
	return d
}

func meshWeights(revision int64) weights.State {
	return weights.Default(descriptor.MeshSchema()).
		WithRevision(revision, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

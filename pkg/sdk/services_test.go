package simdex

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
)

func meshItem(t *testing.T, id string) descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.New(id, descriptor.MeshSchema(), "chairs", map[string][]float64{
		descriptor.PartFourier: {1, 2},
		descriptor.PartZernike: {3},
	}, map[string]string{"num_faces": "12"})
	if err != nil {
		t.Fatalf("build mesh: %v", err)
	}
	return d
}

// --- ItemService ---

func TestItemService_Ingest(t *testing.T) {
	mock := &mockCorpusUC{
		ingestFn: func(
			_ context.Context, kind descriptor.Kind, uploads []item.Raw, category string, attrs map[string]string,
		) ([]dombatch.Result, error) {
			if kind != descriptor.KindMesh || category != "chairs" || attrs["source"] != "scan" {
				t.Errorf("kind=%s category=%s attrs=%v", kind, category, attrs)
			}
			if len(uploads) != 2 || uploads[0].Name != "a.obj" {
				t.Errorf("uploads = %+v", uploads)
			}
			return []dombatch.Result{
				dombatch.NewOK("a.obj", meshItem(t, "a.obj")),
				dombatch.NewError("b.obj", domain.ErrInput),
			}, nil
		},
	}

	svc := &ItemService{kind: descriptor.KindMesh, corpus: mock}
	results, err := svc.Ingest(context.Background(),
		[]File{{Name: "a.obj", Data: []byte("v")}, {Name: "b.obj", Data: []byte("x")}},
		"chairs", map[string]string{"source": "scan"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Item == nil || results[0].Item.Kind != KindMesh || results[0].Item.Attributes["num_faces"] != "12" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Item != nil || !errors.Is(results[1].Err, ErrInput) {
		t.Errorf("second result = %+v", results[1])
	}
}

func TestItemService_Ingest_Error(t *testing.T) {
	mock := &mockCorpusUC{
		ingestFn: func(context.Context, descriptor.Kind, []item.Raw, string, map[string]string) ([]dombatch.Result, error) {
			return nil, fmt.Errorf("%w: bad category", domain.ErrInput)
		},
	}
	svc := &ItemService{kind: descriptor.KindMesh, corpus: mock}
	if _, err := svc.Ingest(context.Background(), nil, "bad category", nil); !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}

func TestItemService_Describe(t *testing.T) {
	mock := &mockExtractUC{
		extractFn: func(_ context.Context, _ descriptor.Kind, items []item.Raw) []dombatch.Result {
			return []dombatch.Result{dombatch.NewOK(items[0].Name, meshItem(t, items[0].Name))}
		},
	}
	svc := &ItemService{kind: descriptor.KindMesh, extract: mock}
	results := svc.Describe(context.Background(), []File{{Name: "a.obj", Data: []byte("v")}})
	if len(results) != 1 || results[0].Err != nil || len(results[0].Item.Parts["fourier_coefficients"]) != 2 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestItemService_GetListDelete(t *testing.T) {
	var deleted string
	mock := &mockCorpusUC{
		getFn: func(_ context.Context, _ descriptor.Kind, id string) (descriptor.Descriptor, error) {
			if id == "missing" {
				return descriptor.Descriptor{}, domain.ErrNotFound
			}
			return meshItem(t, id), nil
		},
		listFn: func(_ context.Context, _ descriptor.Kind, category string) ([]descriptor.Descriptor, error) {
			if category != "chairs" {
				t.Errorf("category = %q", category)
			}
			return []descriptor.Descriptor{meshItem(t, "a.obj"), meshItem(t, "b.obj")}, nil
		},
		countFn: func(context.Context, descriptor.Kind) (int, error) { return 2, nil },
		deleteFn: func(_ context.Context, _ descriptor.Kind, id string) error {
			deleted = id
			return nil
		},
		deleteAllFn: func(context.Context, descriptor.Kind) (int, error) { return 2, nil },
		assetFn: func(context.Context, descriptor.Kind, string) ([]byte, error) {
			return []byte("v 0 0 0"), nil
		},
	}
	svc := &ItemService{kind: descriptor.KindMesh, corpus: mock}
	ctx := context.Background()

	it, err := svc.Get(ctx, "a.obj")
	if err != nil || it.ID != "a.obj" || it.Category != "chairs" {
		t.Fatalf("Get = %+v, %v", it, err)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	items, err := svc.List(ctx, "chairs")
	if err != nil || len(items) != 2 || items[1].ID != "b.obj" {
		t.Fatalf("List = %+v, %v", items, err)
	}
	if n, err := svc.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}
	if err := svc.Delete(ctx, "a.obj"); err != nil || deleted != "a.obj" {
		t.Errorf("Delete: %v, deleted %q", err, deleted)
	}
	if n, err := svc.DeleteAll(ctx); err != nil || n != 2 {
		t.Errorf("DeleteAll = %d, %v", n, err)
	}
	if data, err := svc.Asset(ctx, "a.obj"); err != nil || string(data) != "v 0 0 0" {
		t.Errorf("Asset = %q, %v", data, err)
	}
}

// --- SearchService ---

func TestSearchService_Query(t *testing.T) {
	mock := &mockSearchUC{
		searchFn: func(_ context.Context, req *request.Request) (*result.Outcome, error) {
			if req.TopN() != 2 || req.Feedback() == nil || req.Feedback().Relevant[0] != "a.obj" {
				t.Errorf("unexpected request: topN=%d feedback=%+v", req.TopN(), req.Feedback())
			}
			return &result.Outcome{
				Entries:    []result.Entry{result.New("a.obj", 0.1, "chairs", nil), result.New("c.obj", 0.2, "", nil)},
				Weights:    domweights.Default(descriptor.MeshSchema()).WithRevision(4, time.Now()),
				State:      result.StateDone,
				Adaptation: result.AdaptationApplied,
				CorpusSize: 3,
			}, nil
		},
	}
	svc := &SearchService{kind: descriptor.KindMesh, svc: mock}

	res, err := svc.Query(context.Background(), File{Name: "q.obj", Data: []byte("v")}, SearchOptions{
		TopN:     2,
		Feedback: &Feedback{Relevant: []string{"a.obj"}, Irrelevant: []string{"b.obj"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Hits) != 2 || res.Hits[0].ID != "a.obj" || res.Hits[1].Score != 0.2 {
		t.Errorf("hits = %+v", res.Hits)
	}
	if res.Adaptation != AdaptationApplied || res.Weights.Revision != 4 || res.CorpusSize != 3 {
		t.Errorf("result = %+v", res)
	}
}

func TestSearchService_Query_InvalidRequest(t *testing.T) {
	svc := &SearchService{kind: descriptor.KindMesh, svc: &mockSearchUC{}}
	_, err := svc.Query(context.Background(), File{Name: "q.obj"}, SearchOptions{})
	if !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput for an empty query file, got %v", err)
	}

	svc = &SearchService{kind: "video", svc: &mockSearchUC{}}
	_, err = svc.Query(context.Background(), File{Name: "q.mp4", Data: []byte("x")}, SearchOptions{})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSearchService_Query_Error(t *testing.T) {
	mock := &mockSearchUC{
		searchFn: func(context.Context, *request.Request) (*result.Outcome, error) {
			return nil, fmt.Errorf("adapt: %w", domain.ErrEmptyFeedbackSet)
		},
	}
	svc := &SearchService{kind: descriptor.KindMesh, svc: mock}
	_, err := svc.Query(context.Background(), File{Name: "q.obj", Data: []byte("v")},
		SearchOptions{Feedback: &Feedback{}})
	if !errors.Is(err, ErrEmptyFeedbackSet) {
		t.Fatalf("expected ErrEmptyFeedbackSet, got %v", err)
	}
}

// --- WeightService ---

func TestWeightService(t *testing.T) {
	mock := &mockWeightsUC{
		getFn: func(_ context.Context, kind descriptor.Kind) (domweights.State, error) {
			return domweights.Default(descriptor.ImageSchema()).WithRevision(2, time.Now()), nil
		},
		resetFn: func(context.Context, descriptor.Kind) (domweights.State, error) {
			return domweights.State{}, domain.NewRevisionConflict(3)
		},
	}
	svc := &WeightService{kind: descriptor.KindImage, svc: mock}

	w, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Kind != KindImage || w.Revision != 2 || len(w.Groups) != 3 || len(w.Subs["color"]) != 3 {
		t.Errorf("weights = %+v", w)
	}
	if _, err := svc.Reset(context.Background()); !errors.Is(err, ErrRevisionConflict) {
		t.Errorf("expected ErrRevisionConflict, got %v", err)
	}
}

// --- Health ---

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			healthuc.CheckDatabase: healthuc.CheckOK,
			"extractor_image":      healthuc.CheckOK,
			"extractor_mesh":       healthuc.CheckError,
		},
	}}}
	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Healthy() {
		t.Errorf("health = %+v", h)
	}
	if !h.Accepts(KindImage) || h.Accepts(KindMesh) {
		t.Errorf("accepts image=%v mesh=%v", h.Accepts(KindImage), h.Accepts(KindMesh))
	}
}

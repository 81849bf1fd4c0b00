package corpus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

// --- Mocks ---

type mockRepo struct {
	saved        []descriptor.Descriptor
	saveErr      error
	assets       map[string][]byte
	assetErr     error
	getResult    descriptor.Descriptor
	getErr       error
	all          []descriptor.Descriptor
	byCategory   []descriptor.Descriptor
	lastCategory string
	countResult  int
	deleteErr    error
	deleteAllN   int
}

func (m *mockRepo) Save(_ context.Context, d *descriptor.Descriptor) (bool, error) {
	if m.saveErr != nil {
		return false, m.saveErr
	}
	m.saved = append(m.saved, *d)
	return true, nil
}

func (m *mockRepo) Get(_ context.Context, _ descriptor.Kind, _ string) (descriptor.Descriptor, error) {
	return m.getResult, m.getErr
}

func (m *mockRepo) FetchAll(_ context.Context, _ descriptor.Kind) ([]descriptor.Descriptor, error) {
	return m.all, nil
}

func (m *mockRepo) ListByCategory(_ context.Context, _ descriptor.Kind, c string) ([]descriptor.Descriptor, error) {
	m.lastCategory = c
	return m.byCategory, nil
}

func (m *mockRepo) Count(_ context.Context, _ descriptor.Kind) (int, error) {
	return m.countResult, nil
}

func (m *mockRepo) Delete(_ context.Context, _ descriptor.Kind, _ string) error {
	return m.deleteErr
}

func (m *mockRepo) DeleteAll(_ context.Context, _ descriptor.Kind) (int, error) {
	return m.deleteAllN, nil
}

func (m *mockRepo) SaveAsset(_ context.Context, _ descriptor.Kind, id string, data []byte) error {
	if m.assetErr != nil {
		return m.assetErr
	}
	if m.assets == nil {
		m.assets = map[string][]byte{}
	}
	m.assets[id] = data
	return nil
}

func (m *mockRepo) GetAsset(_ context.Context, _ descriptor.Kind, id string) ([]byte, error) {
	data, ok := m.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

type mockExtractor struct {
	results []dombatch.Result
}

func (m *mockExtractor) Extract(_ context.Context, _ descriptor.Kind, _ []item.Raw) []dombatch.Result {
	return m.results
}

func mesh(id string) descriptor.Descriptor {
	return descriptor.Reconstruct(id, descriptor.KindMesh, "", map[string][]float64{
		descriptor.PartFourier: {1, 2},
		descriptor.PartZernike: {3},
	}, map[string]string{"num_faces": "12"}, time.Now())
}

// --- Ingest ---

func TestIngest_StoresDescriptorAndAsset(t *testing.T) {
	repo := &mockRepo{}
	ex := &mockExtractor{results: []dombatch.Result{
		dombatch.NewOK("cube.obj", mesh("cube.obj")),
		dombatch.NewError("bad.obj", domain.ErrInput),
	}}
	svc := New(repo, ex)

	results, err := svc.Ingest(context.Background(), descriptor.KindMesh, []item.Raw{
		{Name: "cube.obj", Data: []byte("cube")},
		{Name: "bad.obj", Data: []byte("bad")},
	}, "solids", map[string]string{"author": "kim"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Status() != dombatch.StatusOK || results[1].Status() != dombatch.StatusError {
		t.Fatalf("statuses = %s, %s", results[0].Status(), results[1].Status())
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 saved item, got %d", len(repo.saved))
	}
	d := repo.saved[0]
	if d.Category() != "solids" {
		t.Errorf("category = %q", d.Category())
	}
	attrs := d.Attributes()
	if attrs["author"] != "kim" || attrs["num_faces"] != "12" || attrs[ThumbnailAttribute] != "/items/mesh/cube.obj/asset" {
		t.Errorf("attributes = %v", attrs)
	}
	if string(repo.assets["cube.obj"]) != "cube" {
		t.Errorf("asset = %q", repo.assets["cube.obj"])
	}
	if results[0].Descriptor().Category() != "solids" {
		t.Error("result should carry the stored descriptor")
	}
}

func TestIngest_ThumbnailNotOverridable(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockExtractor{results: []dombatch.Result{dombatch.NewOK("a.obj", mesh("a.obj"))}})

	_, err := svc.Ingest(context.Background(), descriptor.KindMesh,
		[]item.Raw{{Name: "a.obj", Data: []byte("a")}}, "", map[string]string{ThumbnailAttribute: "http://evil"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.saved[0].Attributes()[ThumbnailAttribute]; got != "/items/mesh/a.obj/asset" {
		t.Errorf("thumbnail = %q", got)
	}
}

func TestIngest_StoreFailureIsPerItem(t *testing.T) {
	repo := &mockRepo{saveErr: domain.ErrPersistence}
	svc := New(repo, &mockExtractor{results: []dombatch.Result{dombatch.NewOK("a.obj", mesh("a.obj"))}})

	results, err := svc.Ingest(context.Background(), descriptor.KindMesh, []item.Raw{{Name: "a.obj", Data: []byte("a")}}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(results[0].Err(), domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", results[0].Err())
	}
}

func TestIngest_InvalidInput(t *testing.T) {
	svc := New(&mockRepo{}, &mockExtractor{})
	if _, err := svc.Ingest(context.Background(), "video", nil, "", nil); !errors.Is(err, domain.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := svc.Ingest(context.Background(), descriptor.KindImage, nil, "bad category!", nil); !errors.Is(err, domain.ErrInput) {
		t.Errorf("expected ErrInput, got %v", err)
	}
}

// --- Reads and deletes ---

func TestList(t *testing.T) {
	repo := &mockRepo{all: []descriptor.Descriptor{mesh("a"), mesh("b")}, byCategory: []descriptor.Descriptor{mesh("b")}}
	svc := New(repo, &mockExtractor{})

	all, err := svc.List(context.Background(), descriptor.KindMesh, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List all = %d, %v", len(all), err)
	}
	some, err := svc.List(context.Background(), descriptor.KindMesh, "chairs")
	if err != nil || len(some) != 1 || repo.lastCategory != "chairs" {
		t.Fatalf("List chairs = %d, %v (category %q)", len(some), err, repo.lastCategory)
	}
}

func TestGet_ValidatesID(t *testing.T) {
	svc := New(&mockRepo{}, &mockExtractor{})
	if _, err := svc.Get(context.Background(), descriptor.KindImage, "../etc"); !errors.Is(err, domain.ErrInput) {
		t.Errorf("expected ErrInput, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := New(&mockRepo{getErr: domain.ErrNotFound}, &mockExtractor{})
	if _, err := svc.Get(context.Background(), descriptor.KindImage, "a.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := New(&mockRepo{deleteErr: domain.ErrNotFound}, &mockExtractor{})
	if err := svc.Delete(context.Background(), descriptor.KindImage, "a.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAllAndCount(t *testing.T) {
	svc := New(&mockRepo{deleteAllN: 3, countResult: 7}, &mockExtractor{})
	n, err := svc.DeleteAll(context.Background(), descriptor.KindImage)
	if err != nil || n != 3 {
		t.Errorf("DeleteAll = %d, %v", n, err)
	}
	c, err := svc.Count(context.Background(), descriptor.KindImage)
	if err != nil || c != 7 {
		t.Errorf("Count = %d, %v", c, err)
	}
}

func TestAsset(t *testing.T) {
	svc := New(&mockRepo{assets: map[string][]byte{"a.jpg": {1, 2}}}, &mockExtractor{})
	data, err := svc.Asset(context.Background(), descriptor.KindImage, "a.jpg")
	if err != nil || len(data) != 2 {
		t.Fatalf("Asset = %v, %v", data, err)
	}
	if _, err := svc.Asset(context.Background(), descriptor.KindImage, "b.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateCategory(t *testing.T) {
	for _, ok := range []string{"", "chairs", "low-poly_3"} {
		if err := ValidateCategory(ok); err != nil {
			t.Errorf("ValidateCategory(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"a b", "x/y", string(make([]byte, 65))} {
		if err := ValidateCategory(bad); !errors.Is(err, domain.ErrInput) {
			t.Errorf("ValidateCategory(%q): expected ErrInput", bad)
		}
	}
}

package similarity

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/weights"
)

func mesh(id string, fourier, zernike float64) descriptor.Descriptor {
	return descriptor.Reconstruct(id, descriptor.KindMesh, "", map[string][]float64{
		descriptor.PartFourier: {fourier},
		descriptor.PartZernike: {zernike},
	}, map[string]string{"thumbnail": "/items/mesh/" + id + "/asset"}, time.Time{})
}

func zeroImage() map[string][]float64 {
	parts := make(map[string][]float64)
	for _, p := range descriptor.ImageSchema().Parts() {
		parts[p.Name] = make([]float64, p.Length)
	}
	return parts
}

func image(id string, mutate func(map[string][]float64)) descriptor.Descriptor {
	parts := zeroImage()
	if mutate != nil {
		mutate(parts)
	}
	return descriptor.Reconstruct(id, descriptor.KindImage, "", parts, nil, time.Time{})
}

func ids(t *testing.T, e *Engine, q descriptor.Descriptor, cands []descriptor.Descriptor, w weights.State, n int) []string {
	t.Helper()
	entries, err := e.Rank(q, cands, w, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = entries[i].ID()
	}
	return out
}

func TestScore_ImageWeightedPartSum(t *testing.T) {
	e := New(descriptor.ImageSchema())
	q := image("q", nil)
	c := image("c", func(m map[string][]float64) {
		m[descriptor.PartHuMoments][0], m[descriptor.PartHuMoments][1] = 3, 4 // 5
		m[descriptor.PartColorHistogram][0] = 1
		m[descriptor.PartAverageColor][0] = 2
		m[descriptor.PartTexture][0] = 6
	})
	// frame = 0.5*5 + 0.5*0 = 2.5; color = (1+2+0)/3 = 1; texture = 6
	// score = (2.5/3 + 1/3 + 6/3) / 3
	want := 9.5 / 9
	got, err := e.Score(q, c, weights.Default(descriptor.ImageSchema()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestScore_MeshUsesHalfWeightsOverTwo(t *testing.T) {
	e := New(descriptor.MeshSchema())
	got, err := e.Score(mesh("q", 0, 0), mesh("c", 2, 4), weights.Default(descriptor.MeshSchema()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (0.5*2 + 0.5*4) / 2
	if got != 1.5 {
		t.Errorf("score = %v, want 1.5", got)
	}
}

func TestRank_EndToEndTieKeepsInputOrder(t *testing.T) {
	e := New(descriptor.MeshSchema())
	w := weights.Default(descriptor.MeshSchema())
	cands := []descriptor.Descriptor{
		mesh("A", 0.8, 0), // 0.2
		mesh("B", 2, 0),   // 0.5
		mesh("C", 0, 0.8), // 0.2
	}
	entries, err := e.Rank(mesh("q", 0, 0), cands, w, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].ID() != "A" || entries[1].ID() != "C" {
		t.Fatalf("got %v, want [A C]", ids(t, e, mesh("q", 0, 0), cands, w, 2))
	}
	if entries[0].Score() != 0.2 || entries[1].Score() != 0.2 {
		t.Errorf("scores = %v, %v", entries[0].Score(), entries[1].Score())
	}
	if entries[0].Attributes()["thumbnail"] != "/items/mesh/A/asset" {
		t.Errorf("attributes not passed through: %v", entries[0].Attributes())
	}
}

func TestRank_AscendingOrder(t *testing.T) {
	e := New(descriptor.MeshSchema())
	w := weights.Default(descriptor.MeshSchema())
	cands := []descriptor.Descriptor{mesh("far", 9, 9), mesh("near", 1, 0), mesh("mid", 3, 3)}
	entries, err := e.Rank(mesh("q", 0, 0), cands, w, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Score() > entries[i].Score() {
			t.Fatalf("not ascending at %d: %v > %v", i, entries[i-1].Score(), entries[i].Score())
		}
	}
	if entries[0].ID() != "near" || entries[2].ID() != "far" {
		t.Errorf("order = %v", ids(t, e, mesh("q", 0, 0), cands, w, 10))
	}
}

func TestRank_Truncation(t *testing.T) {
	e := New(descriptor.MeshSchema())
	w := weights.Default(descriptor.MeshSchema())
	cands := []descriptor.Descriptor{mesh("a", 1, 1), mesh("b", 2, 2), mesh("c", 3, 3)}

	tests := []struct {
		topN int
		want int
	}{{1, 1}, {3, 3}, {50, 3}}
	for _, tc := range tests {
		if got := ids(t, e, mesh("q", 0, 0), cands, w, tc.topN); len(got) != tc.want {
			t.Errorf("topN=%d: got %d entries, want %d", tc.topN, len(got), tc.want)
		}
	}
	if got := ids(t, e, mesh("q", 0, 0), nil, w, 5); len(got) != 0 {
		t.Errorf("empty corpus: got %v", got)
	}
}

func TestRank_Deterministic(t *testing.T) {
	e := New(descriptor.MeshSchema())
	w := weights.Default(descriptor.MeshSchema())
	cands := []descriptor.Descriptor{mesh("a", 1, 0), mesh("b", 0, 1), mesh("c", 0.5, 0.5), mesh("d", 1, 0)}
	first := ids(t, e, mesh("q", 0, 0), cands, w, 4)
	for i := 0; i < 20; i++ {
		again := ids(t, e, mesh("q", 0, 0), cands, w, 4)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d differs: %v vs %v", i, first, again)
			}
		}
	}
}

func TestRank_ShapeMismatchFailsClosed(t *testing.T) {
	e := New(descriptor.ImageSchema())
	good := image("good", nil)
	bad := image("bad", func(m map[string][]float64) {
		m[descriptor.PartColorHistogram] = make([]float64, 256)
	})
	entries, err := e.Rank(image("q", nil), []descriptor.Descriptor{good, bad}, weights.Default(descriptor.ImageSchema()), 5)
	if !errors.Is(err, domain.ErrMalformedDescriptor) {
		t.Fatalf("expected ErrMalformedDescriptor, got %v", err)
	}
	if entries != nil {
		t.Errorf("no partial ranking expected, got %d entries", len(entries))
	}
}

func TestRank_VariableLengthMismatch(t *testing.T) {
	e := New(descriptor.MeshSchema())
	long := descriptor.Reconstruct("long", descriptor.KindMesh, "", map[string][]float64{
		descriptor.PartFourier: {1, 2, 3},
		descriptor.PartZernike: {1},
	}, nil, time.Time{})
	_, err := e.Rank(mesh("q", 0, 0), []descriptor.Descriptor{long}, weights.Default(descriptor.MeshSchema()), 5)
	if !errors.Is(err, domain.ErrMalformedDescriptor) {
		t.Fatalf("expected ErrMalformedDescriptor, got %v", err)
	}
}

func TestRank_WrongKindOrWeights(t *testing.T) {
	e := New(descriptor.MeshSchema())
	_, err := e.Rank(image("q", nil), nil, weights.Default(descriptor.MeshSchema()), 5)
	if !errors.Is(err, domain.ErrMalformedDescriptor) {
		t.Fatalf("image query on mesh engine: got %v", err)
	}
	_, err = e.Rank(mesh("q", 0, 0), nil, weights.Default(descriptor.ImageSchema()), 5)
	if !errors.Is(err, domain.ErrMalformedDescriptor) {
		t.Fatalf("image weights on mesh engine: got %v", err)
	}
}

func TestRank_InvalidTopN(t *testing.T) {
	e := New(descriptor.MeshSchema())
	_, err := e.Rank(mesh("q", 0, 0), nil, weights.Default(descriptor.MeshSchema()), 0)
	if !errors.Is(err, domain.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}

func TestRank_NegativeWeightsAreUsedAsIs(t *testing.T) {
	e := New(descriptor.MeshSchema())
	w := weights.Reconstruct(descriptor.KindMesh, map[string]float64{"fourier": -1, "zernike": 1}, map[string][]float64{}, 3, time.Time{})
	got, err := e.Score(mesh("q", 0, 0), mesh("c", 2, 2), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

type mockIngester struct {
	mu    sync.Mutex
	seen  []string
	fn    func(files []simdex.File) ([]simdex.ItemResult, error)
	calls int
}

func (m *mockIngester) Ingest(
	_ context.Context, files []simdex.File, _ string, _ map[string]string,
) ([]simdex.ItemResult, error) {
	m.mu.Lock()
	m.calls++
	for _, f := range files {
		m.seen = append(m.seen, f.Name)
	}
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(files)
	}
	return okResults(files), nil
}

func (m *mockIngester) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.seen...)
	sort.Strings(out)
	return out
}

func okResults(files []simdex.File) []simdex.ItemResult {
	out := make([]simdex.ItemResult, len(files))
	for i, f := range files {
		out[i] = simdex.ItemResult{ID: f.Name, Item: &simdex.Item{ID: f.Name}}
	}
	return out
}

func writeTree(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		p := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("data:"+n), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestDiscover(t *testing.T) {
	root := writeTree(t, "b.obj", "a.STL", "notes.txt", "sub/c.ply", ".cache/d.obj", "e.jpg")
	paths, err := Discover(root, simdex.KindMesh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rel []string
	for _, p := range paths {
		r, _ := filepath.Rel(root, p)
		rel = append(rel, filepath.ToSlash(r))
	}
	want := []string{"a.STL", "b.obj", "sub/c.ply"}
	if fmt.Sprint(rel) != fmt.Sprint(want) {
		t.Errorf("Discover = %v, want %v", rel, want)
	}

	if _, err := Discover(root, "video"); !errors.Is(err, simdex.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestRun_LoadsEverything(t *testing.T) {
	root := writeTree(t, "1.jpg", "2.jpg", "3.png", "4.jpeg", "5.gif")
	ing := &mockIngester{}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	l := New(ing, Config{Kind: simdex.KindImage, Root: root, Workers: 2, BatchSize: 2}, zap.NewNop()).WithMetrics(m)
	res, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Discovered != 5 || res.Processed != 5 || res.Failed != 0 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}
	if ing.calls != 3 {
		t.Errorf("ingest calls = %d, want 3", ing.calls)
	}
	if got := testutil.ToFloat64(m.filesProcessed.WithLabelValues("image")); got != 5 {
		t.Errorf("files_processed_total = %v", got)
	}
	if got := testutil.ToFloat64(m.cursorOffset.WithLabelValues("image")); got != 5 {
		t.Errorf("cursor_offset = %v", got)
	}
}

func TestRun_ResumesFromCursor(t *testing.T) {
	root := writeTree(t, "a.obj", "b.obj", "c.obj", "d.obj", "e.obj")
	state := t.TempDir()
	cfg := Config{Kind: simdex.KindMesh, Root: root, Workers: 1, BatchSize: 2, StateDir: state, MaxFiles: 2}

	first := &mockIngester{}
	if _, err := New(first, cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if got := first.names(); fmt.Sprint(got) != "[a.obj b.obj]" {
		t.Fatalf("first run ingested %v", got)
	}

	cfg.MaxFiles = 0
	second := &mockIngester{}
	res, err := New(second, cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Skipped != 2 || res.Processed != 3 {
		t.Errorf("second run result = %+v", res)
	}
	if got := second.names(); fmt.Sprint(got) != "[c.obj d.obj e.obj]" {
		t.Errorf("second run ingested %v", got)
	}

	tracker, err := newCursorTracker(state, "mesh", mustAbs(t, root), zap.NewNop())
	if err != nil {
		t.Fatalf("reload cursor: %v", err)
	}
	if c := tracker.Get(); !c.Done || c.Offset != 5 || c.Processed != 5 {
		t.Errorf("saved cursor = %+v", c)
	}

	cfg.Reset = true
	third := &mockIngester{}
	res, err = New(third, cfg, nil).Run(context.Background())
	if err != nil || res.Processed != 5 {
		t.Errorf("reset run = %+v, %v", res, err)
	}
}

func TestRun_BatchErrorKeepsCursor(t *testing.T) {
	root := writeTree(t, "a.obj", "b.obj", "c.obj")
	state := t.TempDir()
	ing := &mockIngester{fn: func(files []simdex.File) ([]simdex.ItemResult, error) {
		if files[0].Name == "a.obj" {
			return nil, simdex.ErrExtractor
		}
		return okResults(files), nil
	}}

	res, err := New(ing, Config{Kind: simdex.KindMesh, Root: root, Workers: 1, BatchSize: 1, StateDir: state}, nil).
		Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 2 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	tracker, err := newCursorTracker(state, "mesh", mustAbs(t, root), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if c := tracker.Get(); c.Offset != 0 || c.Done {
		t.Errorf("cursor moved past a failed batch: %+v", c)
	}
}

func TestRun_ItemErrors(t *testing.T) {
	root := writeTree(t, "a.obj", "b.obj")
	ing := &mockIngester{fn: func(files []simdex.File) ([]simdex.ItemResult, error) {
		out := okResults(files)
		out[1] = simdex.ItemResult{ID: files[1].Name, Err: simdex.ErrInput}
		return out, nil
	}}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	res, err := New(ing, Config{Kind: simdex.KindMesh, Root: root, BatchSize: 2}, nil).WithMetrics(m).
		Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := testutil.ToFloat64(m.filesFailed.WithLabelValues("mesh", "item_error")); got != 1 {
		t.Errorf("files_failed_total = %v", got)
	}
}

func TestRun_Cancelled(t *testing.T) {
	root := writeTree(t, "a.obj", "b.obj")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&mockIngester{}, Config{Kind: simdex.KindMesh, Root: root}, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCursorTracker_OutOfOrder(t *testing.T) {
	ct, err := newCursorTracker("", "image", "/x", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ct.Complete(4, 6, 2, 0)
	ct.Complete(2, 4, 2, 0)
	if got := ct.Get().Offset; got != 0 {
		t.Fatalf("offset = %d before the first batch finished", got)
	}
	ct.Complete(0, 2, 1, 1)
	c := ct.Get()
	if c.Offset != 6 || c.Processed != 5 || c.Failed != 1 {
		t.Errorf("cursor = %+v", c)
	}
}

func TestCursorTracker_RejectsOtherLoad(t *testing.T) {
	state := t.TempDir()
	ct, err := newCursorTracker(state, "image", "/photos", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ct.Complete(0, 1, 1, 0)

	if _, err := newCursorTracker(state, "mesh", "/photos", zap.NewNop()); err == nil {
		t.Fatal("expected error for a cursor of another kind")
	}
}

func mustAbs(t *testing.T, p string) string {
	t.Helper()
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}

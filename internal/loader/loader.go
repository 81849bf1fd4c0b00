// Package loader bulk-ingests a directory tree into a simdex corpus.
// Files are discovered up front, cut into batches and pushed through a worker
// pool; a cursor file lets an interrupted load resume where it stopped.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

// Defaults for Config fields left zero.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 16
)

// Ingester stores a batch of files. *simdex.ItemService satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, files []simdex.File, category string, attrs map[string]string) ([]simdex.ItemResult, error)
}

// Config describes one load.
type Config struct {
	Kind       simdex.Kind
	Root       string
	Category   string
	Attributes map[string]string
	Workers    int
	BatchSize  int
	MaxFiles   int    // 0 loads everything past the cursor
	StateDir   string // where cursor.json lives; empty disables resume
	Reset      bool
}

// Result summarises a run.
type Result struct {
	Discovered int
	Skipped    int // already loaded by an earlier run
	Processed  int64
	Failed     int64
	Duration   time.Duration
}

// Loader runs the discover -> batch -> ingest pipeline.
type Loader struct {
	cfg      Config
	ingester Ingester
	metrics  *Metrics
	logger   *zap.Logger
}

type batch struct {
	start, end int
}

// New creates a loader.
func New(ingester Ingester, cfg Config, logger *zap.Logger) *Loader {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, ingester: ingester, logger: logger}
}

// WithMetrics enables progress metrics.
func (l *Loader) WithMetrics(m *Metrics) *Loader {
	l.metrics = m
	return l
}

// Run loads every file past the saved cursor. A batch the ingester rejects as a
// whole is not marked done, so the next run retries it.
func (l *Loader) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	kind := string(l.cfg.Kind)

	root, err := filepath.Abs(l.cfg.Root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", l.cfg.Root, err)
	}
	paths, err := Discover(root, l.cfg.Kind)
	if err != nil {
		return Result{}, err
	}

	tracker, err := newCursorTracker(l.cfg.StateDir, kind, root, l.logger)
	if err != nil {
		return Result{}, err
	}
	if l.cfg.Reset {
		if err := tracker.Reset(); err != nil {
			return Result{}, err
		}
	}

	offset := min(tracker.Get().Offset, len(paths))
	end := len(paths)
	if l.cfg.MaxFiles > 0 {
		end = min(end, offset+l.cfg.MaxFiles)
	}
	res := Result{Discovered: len(paths), Skipped: offset}
	l.logger.Info("load started",
		zap.String("kind", kind), zap.String("root", root),
		zap.Int("files", len(paths)), zap.Int("offset", offset), zap.Int("until", end),
		zap.Int("workers", l.cfg.Workers), zap.Int("batch_size", l.cfg.BatchSize))

	batches := make(chan batch, l.cfg.Workers*2)
	var processed, failed atomic.Int64
	var wg sync.WaitGroup
	for i := range l.cfg.Workers {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for b := range batches {
				l.process(ctx, worker, paths, b, tracker, &processed, &failed)
			}
		}(i)
	}

	go func() {
		defer close(batches)
		for s := offset; s < end; s += l.cfg.BatchSize {
			select {
			case <-ctx.Done():
				return
			case batches <- batch{start: s, end: min(s+l.cfg.BatchSize, end)}:
			}
		}
	}()
	wg.Wait()

	res.Processed = processed.Load()
	res.Failed = failed.Load()
	res.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("load interrupted at offset %d: %w", tracker.Get().Offset, err)
	}
	if tracker.Get().Offset == len(paths) {
		tracker.Finish()
	}
	l.logger.Info("load finished",
		zap.String("kind", kind), zap.Int64("processed", res.Processed),
		zap.Int64("failed", res.Failed), zap.Duration("duration", res.Duration))
	return res, nil
}

func (l *Loader) process(
	ctx context.Context, worker int, paths []string, b batch,
	tracker *cursorTracker, processed, failed *atomic.Int64,
) {
	kind := string(l.cfg.Kind)
	files := make([]simdex.File, 0, b.end-b.start)
	unreadable := 0
	for _, p := range paths[b.start:b.end] {
		data, err := os.ReadFile(filepath.Clean(p))
		if err != nil {
			unreadable++
			l.logger.Warn("skipping unreadable file", zap.String("path", p), zap.Error(err))
			continue
		}
		files = append(files, simdex.File{Name: filepath.Base(p), Data: data})
	}
	if unreadable > 0 {
		failed.Add(int64(unreadable))
		l.countFailed("read", unreadable)
	}
	if len(files) == 0 {
		tracker.Complete(b.start, b.end, 0, unreadable)
		l.observeOffset(tracker)
		return
	}

	start := time.Now()
	results, err := l.ingester.Ingest(ctx, files, l.cfg.Category, l.cfg.Attributes)
	if l.metrics != nil {
		l.metrics.batchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		l.metrics.batchesTotal.WithLabelValues(kind).Inc()
	}
	if err != nil {
		failed.Add(int64(len(files)))
		l.countFailed("batch_error", len(files))
		if !errors.Is(err, context.Canceled) {
			l.logger.Warn("batch ingest failed",
				zap.Int("worker", worker), zap.Int("offset", b.start), zap.Error(err))
		}
		return
	}

	ok, bad := 0, 0
	for _, r := range results {
		if r.Err != nil {
			if bad == 0 {
				l.logger.Warn("item failed", zap.Int("worker", worker), zap.String("id", r.ID), zap.Error(r.Err))
			}
			bad++
			continue
		}
		ok++
	}
	processed.Add(int64(ok))
	failed.Add(int64(bad))
	if l.metrics != nil {
		l.metrics.filesProcessed.WithLabelValues(kind).Add(float64(ok))
	}
	l.countFailed("item_error", bad)

	tracker.Complete(b.start, b.end, ok, bad+unreadable)
	l.observeOffset(tracker)
}

func (l *Loader) countFailed(reason string, n int) {
	if l.metrics != nil && n > 0 {
		l.metrics.filesFailed.WithLabelValues(string(l.cfg.Kind), reason).Add(float64(n))
	}
}

func (l *Loader) observeOffset(tracker *cursorTracker) {
	if l.metrics != nil {
		l.metrics.cursorOffset.WithLabelValues(string(l.cfg.Kind)).Set(float64(tracker.Get().Offset))
	}
}

package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const cursorFile = "cursor.json"

// Cursor is the persisted progress of a load. Offset counts the leading files
// (in Discover order) whose batches have all finished.
type Cursor struct {
	Kind      string    `json:"kind"`
	Root      string    `json:"root"`
	Offset    int       `json:"offset"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Done      bool      `json:"done"`
	UpdatedAt time.Time `json:"updated_at"`
}

// cursorTracker advances the offset as batches complete, possibly out of
// order, and writes the cursor after every advance. An empty path keeps the
// cursor in memory only.
type cursorTracker struct {
	mu      sync.Mutex
	cursor  Cursor
	path    string
	pending map[int]int // batch start -> batch end, finished but not yet contiguous
	logger  *zap.Logger
}

func newCursorTracker(stateDir, kind, root string, logger *zap.Logger) (*cursorTracker, error) {
	ct := &cursorTracker{
		cursor:  Cursor{Kind: kind, Root: root},
		pending: make(map[int]int),
		logger:  logger,
	}
	if stateDir == "" {
		return ct, nil
	}
	if err := os.MkdirAll(stateDir, 0o750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	ct.path = filepath.Join(filepath.Clean(stateDir), cursorFile)

	data, err := os.ReadFile(ct.path)
	switch {
	case err == nil:
		var saved Cursor
		if err := json.Unmarshal(data, &saved); err != nil {
			return nil, fmt.Errorf("parse cursor %s: %w", ct.path, err)
		}
		if saved.Kind != kind || saved.Root != root {
			return nil, fmt.Errorf("cursor %s belongs to %s load of %s, use reset to start over",
				ct.path, saved.Kind, saved.Root)
		}
		ct.cursor = saved
		logger.Info("resuming load",
			zap.Int("offset", saved.Offset), zap.Int("processed", saved.Processed), zap.Int("failed", saved.Failed))
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read cursor %s: %w", ct.path, err)
	}
	return ct, nil
}

// Get returns a copy of the current cursor.
func (ct *cursorTracker) Get() Cursor {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.cursor
}

// Complete records a finished batch covering files [start, end).
func (ct *cursorTracker) Complete(start, end, processed, failed int) {
	ct.mu.Lock()
	ct.cursor.Processed += processed
	ct.cursor.Failed += failed
	ct.pending[start] = end
	for {
		next, ok := ct.pending[ct.cursor.Offset]
		if !ok {
			break
		}
		delete(ct.pending, ct.cursor.Offset)
		ct.cursor.Offset = next
	}
	ct.cursor.UpdatedAt = time.Now().UTC()
	snapshot := ct.cursor
	ct.mu.Unlock()

	ct.save(snapshot)
}

// Finish marks the load complete.
func (ct *cursorTracker) Finish() {
	ct.mu.Lock()
	ct.cursor.Done = true
	ct.cursor.UpdatedAt = time.Now().UTC()
	snapshot := ct.cursor
	ct.mu.Unlock()

	ct.save(snapshot)
}

// Reset drops any saved progress.
func (ct *cursorTracker) Reset() error {
	ct.mu.Lock()
	ct.cursor = Cursor{Kind: ct.cursor.Kind, Root: ct.cursor.Root}
	ct.pending = make(map[int]int)
	ct.mu.Unlock()

	if ct.path == "" {
		return nil
	}
	if err := os.Remove(ct.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cursor: %w", err)
	}
	return nil
}

// save writes through a temp file so a crash never leaves a torn cursor.
func (ct *cursorTracker) save(c Cursor) {
	if ct.path == "" {
		return
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		ct.logger.Warn("cursor marshal failed", zap.Error(err))
		return
	}
	tmp := ct.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		ct.logger.Warn("cursor write failed", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, ct.path); err != nil {
		ct.logger.Warn("cursor rename failed", zap.Error(err))
	}
}

package featcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

// store is the consumer interface for the feature cache (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// extractor is the decorated feature source.
type extractor interface {
	Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) ([]item.Features, error)
}

// cachedFeatures is the stored form of one successful extraction.
type cachedFeatures struct {
	Parts      map[string][]float64 `json:"parts"`
	Attributes map[string]string    `json:"attributes,omitempty"`
}

// CachedExtractor caches extracted features by upload content, so the same
// bytes are only sent to the extractor once whatever the file is called.
type CachedExtractor struct {
	inner      extractor
	store      store
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "kind" and "result" ("hit"/"miss"), passed explicitly.
func New(
	inner extractor, s store, keyPrefix string,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *CachedExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedExtractor{
		inner:      inner,
		store:      s,
		prefix:     keyPrefix + "features:",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Extract serves cached items from the store and forwards only the misses.
// Results follow input order. Per-item failures are never cached.
func (c *CachedExtractor) Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) ([]item.Features, error) {
	if len(items) == 0 {
		return nil, nil
	}
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = c.cacheKey(kind, it.Data)
	}

	out := make([]item.Features, len(items))
	hits := c.lookup(ctx, keys)

	var misses []item.Raw
	var missIdx []int
	for i, it := range items {
		if f, ok := hits[i]; ok {
			f.Name = it.Name
			out[i] = f
			continue
		}
		misses = append(misses, it)
		missIdx = append(missIdx, i)
	}
	c.inc(kind, "hit", len(items)-len(misses))
	c.inc(kind, "miss", len(misses))
	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Extract(ctx, kind, misses)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	for j, f := range fresh {
		i := missIdx[j]
		out[i] = f
		if f.Err == nil {
			c.put(ctx, keys[i], f)
		}
	}
	return out, nil
}

// lookup reads every key at once. A failing store means all misses.
func (c *CachedExtractor) lookup(ctx context.Context, keys []string) map[int]item.Features {
	raws, err := c.store.GetMulti(ctx, keys)
	if err != nil {
		c.logger.Warn("Failed to read feature cache", zap.Error(err))
		return nil
	}
	hits := make(map[int]item.Features, len(raws))
	for i, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		var doc cachedFeatures
		if err := json.Unmarshal(raw, &doc); err != nil || len(doc.Parts) == 0 {
			c.logger.Warn("Failed to parse cached features", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		hits[i] = item.Features{Parts: doc.Parts, Attributes: doc.Attributes}
	}
	return hits
}

func (c *CachedExtractor) put(ctx context.Context, key string, f item.Features) {
	data, err := json.Marshal(cachedFeatures{Parts: f.Parts, Attributes: f.Attributes})
	if err != nil {
		c.logger.Warn("Failed to encode features", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("Failed to cache features", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedExtractor) inc(kind descriptor.Kind, result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(string(kind), result).Add(float64(n))
	}
}

func (c *CachedExtractor) cacheKey(kind descriptor.Kind, data []byte) string {
	h := sha256.Sum256(data)
	return c.prefix + string(kind) + ":" + hex.EncodeToString(h[:])
}

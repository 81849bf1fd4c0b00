package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// store is the consumer interface for corpus items (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores descriptors as JSON strings and raw uploads as binary strings.
//
// Layout:
//
//	{prefix}item:{kind}:{id}  -> descriptor JSON
//	{prefix}asset:{kind}:{id} -> uploaded bytes
type Repo struct {
	store  store
	prefix string
}

// New creates a corpus repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Save upserts a descriptor. Returns true if created.
func (r *Repo) Save(ctx context.Context, d *descriptor.Descriptor) (bool, error) {
	key := r.itemKey(d.Kind(), d.ID())
	data, err := json.Marshal(toDoc(d))
	if err != nil {
		return false, fmt.Errorf("marshal item: %w", err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: check exists %s: %w", domain.ErrPersistence, key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return false, fmt.Errorf("%w: set %s: %w", domain.ErrPersistence, key, err)
	}
	return !exists, nil
}

// Get returns one descriptor.
func (r *Repo) Get(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error) {
	key := r.itemKey(kind, id)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return descriptor.Descriptor{}, fmt.Errorf("item %q: %w", id, domain.ErrNotFound)
		}
		return descriptor.Descriptor{}, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, key, err)
	}
	return decode(key, raw)
}

// GetMany returns descriptors in the order of ids. Any missing id fails the call.
func (r *Repo) GetMany(ctx context.Context, kind descriptor.Kind, ids []string) ([]descriptor.Descriptor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.itemKey(kind, id)
	}
	raws, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: get items: %w", domain.ErrPersistence, err)
	}
	out := make([]descriptor.Descriptor, len(ids))
	for i, raw := range raws {
		if raw == nil {
			return nil, fmt.Errorf("item %q: %w", ids[i], domain.ErrNotFound)
		}
		if out[i], err = decode(keys[i], raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FetchAll returns every descriptor of a kind ordered by id.
// Items deleted between SCAN and GET are skipped.
func (r *Repo) FetchAll(ctx context.Context, kind descriptor.Kind) ([]descriptor.Descriptor, error) {
	keys, err := r.store.Scan(ctx, r.itemKey(kind, "*"))
	if err != nil {
		return nil, fmt.Errorf("%w: scan items: %w", domain.ErrPersistence, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	raws, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: get items: %w", domain.ErrPersistence, err)
	}
	out := make([]descriptor.Descriptor, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		d, err := decode(keys[i], raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ListByCategory returns the descriptors of a kind tagged with category.
func (r *Repo) ListByCategory(
	ctx context.Context, kind descriptor.Kind, category string,
) ([]descriptor.Descriptor, error) {
	all, err := r.FetchAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, d := range all {
		if d.Category() == category {
			out = append(out, d)
		}
	}
	return out, nil
}

// Count returns the number of stored items of a kind.
func (r *Repo) Count(ctx context.Context, kind descriptor.Kind) (int, error) {
	keys, err := r.store.Scan(ctx, r.itemKey(kind, "*"))
	if err != nil {
		return 0, fmt.Errorf("%w: scan items: %w", domain.ErrPersistence, err)
	}
	return len(keys), nil
}

// Delete removes one item and its asset.
func (r *Repo) Delete(ctx context.Context, kind descriptor.Kind, id string) error {
	key := r.itemKey(kind, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: check exists %s: %w", domain.ErrPersistence, key, err)
	}
	if !exists {
		return fmt.Errorf("item %q: %w", id, domain.ErrNotFound)
	}
	if err := r.store.Del(ctx, key, r.assetKey(kind, id)); err != nil {
		return fmt.Errorf("%w: del %s: %w", domain.ErrPersistence, key, err)
	}
	return nil
}

// DeleteAll removes every item and asset of a kind. Returns the number of items removed.
func (r *Repo) DeleteAll(ctx context.Context, kind descriptor.Kind) (int, error) {
	items, err := r.store.Scan(ctx, r.itemKey(kind, "*"))
	if err != nil {
		return 0, fmt.Errorf("%w: scan items: %w", domain.ErrPersistence, err)
	}
	assets, err := r.store.Scan(ctx, r.assetKey(kind, "*"))
	if err != nil {
		return 0, fmt.Errorf("%w: scan assets: %w", domain.ErrPersistence, err)
	}
	if err := r.store.Del(ctx, append(items, assets...)...); err != nil {
		return 0, fmt.Errorf("%w: del %s items: %w", domain.ErrPersistence, kind, err)
	}
	return len(items), nil
}

// SaveAsset stores the uploaded bytes of an item.
func (r *Repo) SaveAsset(ctx context.Context, kind descriptor.Kind, id string, data []byte) error {
	key := r.assetKey(kind, id)
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrPersistence, key, err)
	}
	return nil
}

// GetAsset returns the uploaded bytes of an item.
func (r *Repo) GetAsset(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error) {
	key := r.assetKey(kind, id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("asset %q: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, key, err)
	}
	return data, nil
}

func (r *Repo) itemKey(kind descriptor.Kind, id string) string {
	return fmt.Sprintf("%sitem:%s:%s", r.prefix, kind, id)
}

func (r *Repo) assetKey(kind descriptor.Kind, id string) string {
	return fmt.Sprintf("%sasset:%s:%s", r.prefix, kind, id)
}

func decode(key string, raw []byte) (descriptor.Descriptor, error) {
	var doc itemDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return descriptor.Descriptor{}, fmt.Errorf("%w: decode %s: %w", domain.ErrPersistence, key, err)
	}
	return doc.toDomain(), nil
}

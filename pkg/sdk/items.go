package simdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// ItemService manages the stored corpus of one kind.
type ItemService struct {
	kind    descriptor.Kind
	corpus  corpusUseCase
	extract extractUseCase
	obs     *observer
}

// Describe computes descriptors without storing anything. A failed file never
// aborts the others; check ItemResult.Err.
func (s *ItemService) Describe(ctx context.Context, files []File) []ItemResult {
	sp := s.obs.start("describe", string(s.kind))
	results := fromInternalResults(s.extract.Extract(ctx, s.kind, toInternalFiles(files)))
	err := firstError(results)
	sp.end(&err)
	return results
}

// Ingest extracts and stores every file under category, merging attrs into
// each item's attributes. An existing item with the same ID is replaced.
func (s *ItemService) Ingest(
	ctx context.Context, files []File, category string, attrs map[string]string,
) (_ []ItemResult, err error) {
	defer s.obs.start("ingest", string(s.kind)).end(&err)

	results, err := s.corpus.Ingest(ctx, s.kind, toInternalFiles(files), category, attrs)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return fromInternalResults(results), nil
}

// Get returns one item with its descriptor vectors.
func (s *ItemService) Get(ctx context.Context, id string) (_ Item, err error) {
	defer s.obs.start("get_item", string(s.kind)).end(&err)

	d, err := s.corpus.Get(ctx, s.kind, id)
	if err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return fromInternalItem(&d), nil
}

// List returns all items, or those of one category when category is non-empty.
func (s *ItemService) List(ctx context.Context, category string) (_ []Item, err error) {
	defer s.obs.start("list_items", string(s.kind)).end(&err)

	items, err := s.corpus.List(ctx, s.kind, category)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]Item, len(items))
	for i := range items {
		out[i] = fromInternalItem(&items[i])
	}
	return out, nil
}

// Count returns the number of stored items.
func (s *ItemService) Count(ctx context.Context) (_ int, err error) {
	defer s.obs.start("count_items", string(s.kind)).end(&err)

	n, err := s.corpus.Count(ctx, s.kind)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// Delete removes one item and its stored upload.
func (s *ItemService) Delete(ctx context.Context, id string) (err error) {
	defer s.obs.start("delete_item", string(s.kind)).end(&err)

	if err = s.corpus.Delete(ctx, s.kind, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// DeleteAll empties the corpus. Returns the number of items removed.
func (s *ItemService) DeleteAll(ctx context.Context) (_ int, err error) {
	defer s.obs.start("delete_items", string(s.kind)).end(&err)

	n, err := s.corpus.DeleteAll(ctx, s.kind)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return n, nil
}

// Asset returns the original upload of an item.
func (s *ItemService) Asset(ctx context.Context, id string) (_ []byte, err error) {
	defer s.obs.start("get_asset", string(s.kind)).end(&err)

	data, err := s.corpus.Asset(ctx, s.kind, id)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return data, nil
}

func firstError(results []ItemResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

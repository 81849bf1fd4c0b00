package corpus

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kailas-cloud/simdex/internal/domain"
	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

// ThumbnailAttribute references the stored upload of an item.
const ThumbnailAttribute = "thumbnail"

const maxCategoryLength = 64

var categoryRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Service manages the searchable corpus: ingestion and item CRUD.
type Service struct {
	repo      Repository
	extractor Extractor
}

// New creates a corpus service.
func New(repo Repository, extractor Extractor) *Service {
	return &Service{repo: repo, extractor: extractor}
}

// Ingest extracts, tags and stores every upload. The raw bytes are kept as the
// item's asset and referenced by the thumbnail attribute. An item whose ID is
// already stored is replaced.
func (s *Service) Ingest(
	ctx context.Context, kind descriptor.Kind, uploads []item.Raw,
	category string, attributes map[string]string,
) ([]dombatch.Result, error) {
	if _, err := descriptor.SchemaFor(kind); err != nil {
		return nil, err
	}
	if err := ValidateCategory(category); err != nil {
		return nil, err
	}

	results := s.extractor.Extract(ctx, kind, uploads)
	for i, res := range results {
		if res.Status() != dombatch.StatusOK {
			continue
		}
		d := res.Descriptor().
			WithCategory(category).
			WithAttributes(attributes).
			WithAttributes(map[string]string{ThumbnailAttribute: AssetPath(kind, res.ID())})

		if err := s.repo.SaveAsset(ctx, kind, d.ID(), uploads[i].Data); err != nil {
			results[i] = dombatch.NewError(res.ID(), fmt.Errorf("store asset: %w", err))
			continue
		}
		if _, err := s.repo.Save(ctx, &d); err != nil {
			results[i] = dombatch.NewError(res.ID(), fmt.Errorf("store descriptor: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(res.ID(), d)
	}
	return results, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error) {
	if err := validate(kind, id); err != nil {
		return descriptor.Descriptor{}, err
	}
	d, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return descriptor.Descriptor{}, fmt.Errorf("get item: %w", err)
	}
	return d, nil
}

// List returns the items of a kind, optionally narrowed to one category.
func (s *Service) List(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error) {
	if _, err := descriptor.SchemaFor(kind); err != nil {
		return nil, err
	}
	if category == "" {
		items, err := s.repo.FetchAll(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		return items, nil
	}
	if err := ValidateCategory(category); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCategory(ctx, kind, category)
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", category, err)
	}
	return items, nil
}

// Count returns the corpus size of a kind.
func (s *Service) Count(ctx context.Context, kind descriptor.Kind) (int, error) {
	if _, err := descriptor.SchemaFor(kind); err != nil {
		return 0, err
	}
	n, err := s.repo.Count(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// Delete removes one item and its asset.
func (s *Service) Delete(ctx context.Context, kind descriptor.Kind, id string) error {
	if err := validate(kind, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// DeleteAll empties the corpus of a kind. Returns the number of items removed.
func (s *Service) DeleteAll(ctx context.Context, kind descriptor.Kind) (int, error) {
	if _, err := descriptor.SchemaFor(kind); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteAll(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return n, nil
}

// Asset returns the stored upload of an item.
func (s *Service) Asset(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error) {
	if err := validate(kind, id); err != nil {
		return nil, err
	}
	data, err := s.repo.GetAsset(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return data, nil
}

// AssetPath is the HTTP path serving an item's upload.
func AssetPath(kind descriptor.Kind, id string) string {
	return fmt.Sprintf("/items/%s/%s/asset", kind, id)
}

// ValidateCategory accepts "" (untagged) or a short slug.
func ValidateCategory(category string) error {
	if category == "" {
		return nil
	}
	if len(category) > maxCategoryLength || !categoryRegex.MatchString(category) {
		return fmt.Errorf("%w: category must be up to %d letters, digits, '_' or '-'",
			domain.ErrInput, maxCategoryLength)
	}
	return nil
}

func validate(kind descriptor.Kind, id string) error {
	if _, err := descriptor.SchemaFor(kind); err != nil {
		return err
	}
	return descriptor.ValidateID(id)
}

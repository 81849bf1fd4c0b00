package extract

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain"
	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

// MaxBatchSize is the maximum number of files per extraction request.
const MaxBatchSize = 100

// queryID names a query whose file name sanitizes to nothing.
const queryID = "query"

// Service computes descriptors with per-item error reporting.
type Service struct {
	extractor    Extractor
	maxBatchSize int
}

// New creates an extraction service.
func New(extractor Extractor) *Service {
	return &Service{extractor: extractor, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Extract computes one descriptor per file. Results follow input order and a
// failed item never aborts the others. Item IDs are the sanitized file names.
func (s *Service) Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	schema, err := descriptor.SchemaFor(kind)
	if err != nil {
		return failAll(results, items, err)
	}
	if len(items) > s.maxBatchSize {
		return failAll(results, items, fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInput))
	}

	// Validate locally; only usable files reach the extractor. The extractor
	// answers by file name and items are stored by ID, so an ID may appear once.
	valid := make([]item.Raw, 0, len(items))
	validIdx := make([]int, 0, len(items))
	seen := make(map[string]int, len(items))
	for i, it := range items {
		id := descriptor.SanitizeID(it.Name)
		if err := it.Validate(); err != nil {
			results[i] = dombatch.NewError(idOrName(id, it.Name), err)
			continue
		}
		if id == "" {
			results[i] = dombatch.NewError(it.Name, fmt.Errorf("%w: unusable file name %q", domain.ErrInput, it.Name))
			continue
		}
		if first, dup := seen[id]; dup {
			results[i] = dombatch.NewError(id, fmt.Errorf("%w: %q has the same id as file %d in this batch",
				domain.ErrInput, it.Name, first+1))
			continue
		}
		seen[id] = i
		valid = append(valid, it)
		validIdx = append(validIdx, i)
	}
	if len(valid) == 0 {
		return results
	}

	features, err := s.extractor.Extract(ctx, kind, valid)
	if err != nil {
		for _, i := range validIdx {
			results[i] = dombatch.NewError(descriptor.SanitizeID(items[i].Name), fmt.Errorf("extract: %w", err))
		}
		return results
	}

	for j, i := range validIdx {
		id := descriptor.SanitizeID(items[i].Name)
		d, err := build(id, schema, features[j])
		if err != nil {
			results[i] = dombatch.NewError(id, err)
			continue
		}
		results[i] = dombatch.NewOK(id, d)
	}
	return results
}

// ExtractOne computes the descriptor of a single query file. Extractor outages
// surface as domain.ErrExtractor, per-file failures as domain.ErrInput or
// domain.ErrMalformedDescriptor.
func (s *Service) ExtractOne(ctx context.Context, kind descriptor.Kind, raw item.Raw) (descriptor.Descriptor, error) {
	schema, err := descriptor.SchemaFor(kind)
	if err != nil {
		return descriptor.Descriptor{}, err
	}
	if err := raw.Validate(); err != nil {
		return descriptor.Descriptor{}, err
	}

	features, err := s.extractor.Extract(ctx, kind, []item.Raw{raw})
	if err != nil {
		return descriptor.Descriptor{}, fmt.Errorf("extract query: %w", err)
	}
	if len(features) != 1 {
		return descriptor.Descriptor{}, fmt.Errorf("%w: extractor returned %d results for one file",
			domain.ErrExtractor, len(features))
	}
	return build(idOrName(descriptor.SanitizeID(raw.Name), queryID), schema, features[0])
}

func build(id string, schema descriptor.Schema, f item.Features) (descriptor.Descriptor, error) {
	if f.Err != nil {
		return descriptor.Descriptor{}, f.Err
	}
	return descriptor.New(id, schema, "", f.Parts, f.Attributes)
}

func failAll(results []dombatch.Result, items []item.Raw, err error) []dombatch.Result {
	for i, it := range items {
		results[i] = dombatch.NewError(idOrName(descriptor.SanitizeID(it.Name), it.Name), err)
	}
	return results
}

func idOrName(id, fallback string) string {
	if id == "" {
		return fallback
	}
	return id
}

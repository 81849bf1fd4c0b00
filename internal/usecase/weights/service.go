package weights

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
)

// Service reads and resets the stored weights.
type Service struct {
	repo Repository
}

// New creates a weights service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the stored weights of a kind, persisting the defaults first if
// nothing was stored yet.
func (s *Service) Get(ctx context.Context, kind descriptor.Kind) (domweights.State, error) {
	schema, err := descriptor.SchemaFor(kind)
	if err != nil {
		return domweights.State{}, err
	}
	return LoadOrCreate(ctx, s.repo, schema)
}

// Reset replaces the stored weights with the defaults.
func (s *Service) Reset(ctx context.Context, kind descriptor.Kind) (domweights.State, error) {
	schema, err := descriptor.SchemaFor(kind)
	if err != nil {
		return domweights.State{}, err
	}
	st, err := s.repo.Reset(ctx, domweights.Default(schema))
	if err != nil {
		return domweights.State{}, fmt.Errorf("reset %s weights: %w", kind, err)
	}
	return st, nil
}

// LoadOrCreate reads the weights of schema's kind. An absent record is created
// from the defaults; losing that race to another writer re-reads the winner.
func LoadOrCreate(ctx context.Context, repo Loader, schema descriptor.Schema) (domweights.State, error) {
	st, err := repo.Get(ctx, schema.Kind())
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domweights.State{}, fmt.Errorf("load %s weights: %w", schema.Kind(), err)
	}

	st, err = repo.Create(ctx, domweights.Default(schema))
	if errors.Is(err, domain.ErrRevisionConflict) {
		st, err = repo.Get(ctx, schema.Kind())
	}
	if err != nil {
		return domweights.State{}, fmt.Errorf("create %s weights: %w", schema.Kind(), err)
	}
	return st, nil
}

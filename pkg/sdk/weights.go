package simdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// WeightService reads and resets the stored weights of one kind.
type WeightService struct {
	kind descriptor.Kind
	svc  weightsUseCase
	obs  *observer
}

// Get returns the current weights, storing the defaults first if none exist.
func (s *WeightService) Get(ctx context.Context) (_ Weights, err error) {
	defer s.obs.start("get_weights", string(s.kind)).end(&err)

	st, err := s.svc.Get(ctx, s.kind)
	if err != nil {
		return Weights{}, fmt.Errorf("get weights: %w", err)
	}
	return fromInternalWeights(st), nil
}

// Reset replaces the stored weights with the defaults.
func (s *WeightService) Reset(ctx context.Context) (_ Weights, err error) {
	defer s.obs.start("reset_weights", string(s.kind)).end(&err)

	st, err := s.svc.Reset(ctx, s.kind)
	if err != nil {
		return Weights{}, fmt.Errorf("reset weights: %w", err)
	}
	return fromInternalWeights(st), nil
}

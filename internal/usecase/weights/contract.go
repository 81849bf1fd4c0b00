package weights

import (
	"context"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
)

// Loader reads the weights of a kind and creates the first record.
type Loader interface {
	Get(ctx context.Context, kind descriptor.Kind) (domweights.State, error)
	Create(ctx context.Context, s domweights.State) (domweights.State, error)
}

// Repository persists one versioned weight record per kind.
type Repository interface {
	Loader
	Reset(ctx context.Context, s domweights.State) (domweights.State, error)
}

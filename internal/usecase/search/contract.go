package search

import (
	"context"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
)

// QueryExtractor computes the descriptor of the uploaded query.
type QueryExtractor interface {
	ExtractOne(ctx context.Context, kind descriptor.Kind, raw item.Raw) (descriptor.Descriptor, error)
}

// CorpusReader reads the items a query is ranked against.
type CorpusReader interface {
	FetchAll(ctx context.Context, kind descriptor.Kind) ([]descriptor.Descriptor, error)
	GetMany(ctx context.Context, kind descriptor.Kind, ids []string) ([]descriptor.Descriptor, error)
}

// WeightStore is the versioned weight record of each kind.
type WeightStore interface {
	Get(ctx context.Context, kind descriptor.Kind) (domweights.State, error)
	Create(ctx context.Context, s domweights.State) (domweights.State, error)
	Save(ctx context.Context, s domweights.State) (domweights.State, error)
}

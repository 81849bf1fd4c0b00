package corpus

import (
	"context"

	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

// Repository defines the storage contract for corpus items.
type Repository interface {
	Save(ctx context.Context, d *descriptor.Descriptor) (created bool, err error)
	Get(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error)
	FetchAll(ctx context.Context, kind descriptor.Kind) ([]descriptor.Descriptor, error)
	ListByCategory(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error)
	Count(ctx context.Context, kind descriptor.Kind) (int, error)
	Delete(ctx context.Context, kind descriptor.Kind, id string) error
	DeleteAll(ctx context.Context, kind descriptor.Kind) (int, error)
	SaveAsset(ctx context.Context, kind descriptor.Kind, id string, data []byte) error
	GetAsset(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error)
}

// Extractor computes descriptors for a batch of uploads.
type Extractor interface {
	Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result
}

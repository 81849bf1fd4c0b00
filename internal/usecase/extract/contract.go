package extract

import (
	"context"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

// Extractor turns uploaded files into feature vectors.
type Extractor interface {
	Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) ([]item.Features, error)
}

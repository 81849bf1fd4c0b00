package corpus

import (
	"time"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// itemDoc is the stored JSON form of a descriptor.
type itemDoc struct {
	ID         string               `json:"id"`
	Kind       string               `json:"kind"`
	Category   string               `json:"category,omitempty"`
	Parts      map[string][]float64 `json:"parts"`
	Attributes map[string]string    `json:"attributes,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

func toDoc(d *descriptor.Descriptor) itemDoc {
	return itemDoc{
		ID:         d.ID(),
		Kind:       string(d.Kind()),
		Category:   d.Category(),
		Parts:      d.Parts(),
		Attributes: d.Attributes(),
		CreatedAt:  d.CreatedAt(),
	}
}

func (doc *itemDoc) toDomain() descriptor.Descriptor {
	return descriptor.Reconstruct(
		doc.ID, descriptor.Kind(doc.Kind), doc.Category,
		doc.Parts, doc.Attributes, doc.CreatedAt,
	)
}

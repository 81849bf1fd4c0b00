package item

import (
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// MaxSize is the largest accepted upload (16 MiB).
const MaxSize = 16 << 20

// Raw is an uploaded file before feature extraction.
type Raw struct {
	Name string
	Data []byte
}

// Validate rejects unnamed, empty and oversized uploads.
func (r Raw) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: file name is required", domain.ErrInput)
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: %q is empty", domain.ErrInput, r.Name)
	}
	if len(r.Data) > MaxSize {
		return fmt.Errorf("%w: %q exceeds %d bytes", domain.ErrInput, r.Name, MaxSize)
	}
	return nil
}

package batch

import "github.com/kailas-cloud/simdex/internal/domain/descriptor"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one uploaded file in a batch.
// A failed item never aborts the rest of the batch.
type Result struct {
	id         string
	status     ItemStatus
	descriptor *descriptor.Descriptor
	err        error
}

// NewOK creates a successful batch result carrying the computed descriptor.
func NewOK(id string, d descriptor.Descriptor) Result {
	return Result{id: id, status: StatusOK, descriptor: &d}
}

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier (the sanitized file name).
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Descriptor returns the computed descriptor, nil on error.
func (r Result) Descriptor() *descriptor.Descriptor { return r.descriptor }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Failed counts errored results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.status == StatusError {
			n++
		}
	}
	return n
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInput signals an unreadable, empty or missing input item.
	ErrInput = errors.New("invalid input")
	// ErrMalformedDescriptor signals a descriptor whose parts do not match the schema
	// or the descriptor it is compared against.
	ErrMalformedDescriptor = errors.New("malformed descriptor")
	// ErrEmptyFeedbackSet signals adaptation requested with an empty relevant or irrelevant set.
	ErrEmptyFeedbackSet = errors.New("empty feedback set")
	// ErrPersistence signals an unavailable store or a rejected write.
	ErrPersistence = errors.New("persistence error")
	// ErrExtractor signals that the feature extraction service could not be reached.
	ErrExtractor = errors.New("feature extractor unavailable")
	// ErrUnknownKind signals an item kind without a registered schema.
	ErrUnknownKind = errors.New("unknown item kind")

	// ErrRevisionConflict signals an optimistic locking conflict.
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// RevisionConflictError wraps ErrRevisionConflict with the current resource revision.
type RevisionConflictError struct {
	CurrentRevision int64
}

func (e *RevisionConflictError) Error() string {
	return fmt.Sprintf("%s: current revision is %d", ErrRevisionConflict.Error(), e.CurrentRevision)
}

func (e *RevisionConflictError) Unwrap() error { return ErrRevisionConflict }

// NewRevisionConflict creates a revision conflict error.
func NewRevisionConflict(currentRevision int64) error {
	return &RevisionConflictError{CurrentRevision: currentRevision}
}

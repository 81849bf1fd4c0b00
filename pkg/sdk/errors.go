package simdex

import "github.com/kailas-cloud/simdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound            = domain.ErrNotFound
	ErrInput               = domain.ErrInput
	ErrMalformedDescriptor = domain.ErrMalformedDescriptor
	ErrEmptyFeedbackSet    = domain.ErrEmptyFeedbackSet
	ErrPersistence         = domain.ErrPersistence
	ErrExtractor           = domain.ErrExtractor
	ErrUnknownKind         = domain.ErrUnknownKind
	ErrRevisionConflict    = domain.ErrRevisionConflict
)

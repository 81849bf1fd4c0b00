package request

import (
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
)

// Search parameter limits.
const (
	DefaultTopN = 5
	MaxTopN     = 500
	// MaxFeedbackItems caps each feedback list.
	MaxFeedbackItems = 100
)

// Feedback names previously returned items the user judged relevant or irrelevant.
type Feedback struct {
	Relevant   []string
	Irrelevant []string
}

// Request is a validated similarity query.
type Request struct {
	kind     descriptor.Kind
	query    item.Raw
	topN     int
	feedback *Feedback
}

// New validates and normalizes search parameters.
// topN <= 0 falls back to DefaultTopN; values above maxTopN are clamped.
// A nil feedback skips adaptation; a non-nil one always triggers it.
func New(kind descriptor.Kind, query item.Raw, topN, maxTopN int, feedback *Feedback) (Request, error) {
	if !kind.IsValid() {
		return Request{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	if err := query.Validate(); err != nil {
		return Request{}, err
	}
	if maxTopN <= 0 || maxTopN > MaxTopN {
		maxTopN = MaxTopN
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > maxTopN {
		topN = maxTopN
	}
	if feedback != nil {
		if len(feedback.Relevant) > MaxFeedbackItems || len(feedback.Irrelevant) > MaxFeedbackItems {
			return Request{}, fmt.Errorf("%w: at most %d feedback items per list", domain.ErrInput, MaxFeedbackItems)
		}
		for _, id := range append(append([]string(nil), feedback.Relevant...), feedback.Irrelevant...) {
			if err := descriptor.ValidateID(id); err != nil {
				return Request{}, fmt.Errorf("feedback: %w", err)
			}
		}
		fb := Feedback{
			Relevant:   append([]string(nil), feedback.Relevant...),
			Irrelevant: append([]string(nil), feedback.Irrelevant...),
		}
		feedback = &fb
	}
	return Request{kind: kind, query: query, topN: topN, feedback: feedback}, nil
}

// Kind returns the item kind being searched.
func (r *Request) Kind() descriptor.Kind { return r.kind }

// Query returns the uploaded query item.
func (r *Request) Query() item.Raw { return r.query }

// TopN returns the result limit.
func (r *Request) TopN() int { return r.topN }

// Feedback returns the relevance feedback, nil when none was supplied.
func (r *Request) Feedback() *Feedback { return r.feedback }

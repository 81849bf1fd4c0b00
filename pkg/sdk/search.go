package simdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
)

// SearchService runs similarity queries against one kind.
type SearchService struct {
	kind descriptor.Kind
	svc  searchUseCase
	obs  *observer
}

// Query ranks the corpus against the uploaded query file. With feedback, the
// stored weights are adapted first and the ranking uses the adapted weights.
func (s *SearchService) Query(ctx context.Context, query File, opts SearchOptions) (_ *SearchResult, err error) {
	defer s.obs.start("search", string(s.kind)).end(&err)

	var fb *request.Feedback
	if opts.Feedback != nil {
		fb = &request.Feedback{Relevant: opts.Feedback.Relevant, Irrelevant: opts.Feedback.Irrelevant}
	}
	req, err := request.New(s.kind, item.Raw{Name: query.Name, Data: query.Data}, opts.TopN, 0, fb)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	outcome, err := s.svc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	res := fromInternalOutcome(outcome)
	if fb != nil {
		s.obs.adaptation(string(s.kind), res.Adaptation, res.AdaptationErr)
	}
	return res, nil
}

package similarity

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	"github.com/kailas-cloud/simdex/internal/domain/weights"
)

// Engine ranks candidates by weighted group distance to a query.
// It is pure: the same inputs always produce the same ranking.
type Engine struct {
	schema descriptor.Schema
}

// New creates an engine for one schema.
func New(schema descriptor.Schema) *Engine {
	return &Engine{schema: schema}
}

// Schema returns the group layout the engine scores.
func (e *Engine) Schema() descriptor.Schema { return e.schema }

// Rank scores every candidate, sorts ascending (stable, so ties keep input
// order) and truncates to topN. A single malformed candidate fails the whole call.
func (e *Engine) Rank(
	query descriptor.Descriptor, candidates []descriptor.Descriptor,
	w weights.State, topN int,
) ([]result.Entry, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: top_n must be positive", domain.ErrInput)
	}
	if err := w.Validate(e.schema); err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	if query.Kind() != e.schema.Kind() {
		return nil, fmt.Errorf("rank: %w: query is %s, engine scores %s",
			domain.ErrMalformedDescriptor, query.Kind(), e.schema.Kind())
	}

	entries := make([]result.Entry, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		score, err := e.Score(query, *c, w)
		if err != nil {
			return nil, fmt.Errorf("rank candidate %q: %w", c.ID(), err)
		}
		entries[i] = result.New(c.ID(), score, c.Category(), c.Attributes())
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score() < entries[j].Score()
	})

	if len(entries) > topN {
		entries = entries[:topN]
	}
	return entries, nil
}

// Score is (Σ w_g · d_g) / k where d_g is the group distance and k the group count.
// A multi-part group distance is the sub-weighted sum of its part distances.
func (e *Engine) Score(query, candidate descriptor.Descriptor, w weights.State) (float64, error) {
	if candidate.Kind() != e.schema.Kind() {
		return 0, fmt.Errorf("%w: candidate is %s", domain.ErrMalformedDescriptor, candidate.Kind())
	}
	var total float64
	for _, g := range e.schema.Groups() {
		d, err := groupDistance(g, query, candidate, w.Sub(g.Name))
		if err != nil {
			return 0, err
		}
		total += w.Group(g.Name) * d
	}
	return total / e.schema.Normalizer(), nil
}

func groupDistance(g descriptor.Group, q, c descriptor.Descriptor, sub []float64) (float64, error) {
	if !g.MultiPart() {
		return partDistance(g.Parts[0].Name, q, c)
	}
	var sum float64
	for i, p := range g.Parts {
		d, err := partDistance(p.Name, q, c)
		if err != nil {
			return 0, err
		}
		sum += sub[i] * d
	}
	return sum, nil
}

func partDistance(part string, q, c descriptor.Descriptor) (float64, error) {
	qv, cv := q.Part(part), c.Part(part)
	if len(qv) == 0 || len(cv) == 0 {
		return 0, fmt.Errorf("%w: part %q is missing", domain.ErrMalformedDescriptor, part)
	}
	d, err := descriptor.Distance(qv, cv)
	if err != nil {
		return 0, fmt.Errorf("part %q: %w", part, err)
	}
	return d, nil
}

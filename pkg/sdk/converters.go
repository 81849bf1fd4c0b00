package simdex

import (
	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
)

func toInternalFiles(files []File) []item.Raw {
	out := make([]item.Raw, len(files))
	for i, f := range files {
		out[i] = item.Raw{Name: f.Name, Data: f.Data}
	}
	return out
}

func fromInternalItem(d *descriptor.Descriptor) Item {
	return Item{
		ID:         d.ID(),
		Kind:       Kind(d.Kind()),
		Category:   d.Category(),
		Attributes: d.Attributes(),
		Parts:      d.Parts(),
		CreatedAt:  d.CreatedAt(),
	}
}

func fromInternalResults(results []dombatch.Result) []ItemResult {
	out := make([]ItemResult, len(results))
	for i, r := range results {
		out[i] = ItemResult{ID: r.ID(), Err: r.Err()}
		if r.Status() == dombatch.StatusOK {
			it := fromInternalItem(r.Descriptor())
			out[i].Item = &it
		}
	}
	return out
}

func fromInternalWeights(s domweights.State) Weights {
	return Weights{
		Kind:      Kind(s.Kind()),
		Revision:  s.Revision(),
		Groups:    s.Groups(),
		Subs:      s.Subs(),
		UpdatedAt: s.UpdatedAt(),
	}
}

func fromInternalOutcome(o *result.Outcome) *SearchResult {
	hits := make([]Hit, len(o.Entries))
	for i := range o.Entries {
		e := &o.Entries[i]
		hits[i] = Hit{ID: e.ID(), Score: e.Score(), Category: e.Category(), Attributes: e.Attributes()}
	}
	return &SearchResult{
		Hits:          hits,
		Weights:       fromInternalWeights(o.Weights),
		Adaptation:    Adaptation(o.Adaptation),
		AdaptationErr: o.AdaptationErr,
		CorpusSize:    o.CorpusSize,
	}
}

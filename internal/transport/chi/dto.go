package chi

import (
	"time"

	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	"github.com/kailas-cloud/simdex/internal/domain/weights"
)

type feedbackRequest struct {
	Relevant   []string `json:"relevant"`
	Irrelevant []string `json:"irrelevant"`
}

type searchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Category   string            `json:"category,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type adaptationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type searchResponse struct {
	Results    []searchHit        `json:"results"`
	Weights    weightsResponse    `json:"weights"`
	Adaptation adaptationResponse `json:"adaptation"`
	CorpusSize int                `json:"corpus_size"`
}

type weightsResponse struct {
	Kind      string               `json:"kind"`
	Revision  int64                `json:"revision"`
	Groups    map[string]float64   `json:"groups"`
	Subs      map[string][]float64 `json:"sub_weights,omitempty"`
	UpdatedAt *time.Time           `json:"updated_at,omitempty"`
}

type itemResponse struct {
	ID         string               `json:"id"`
	Kind       string               `json:"kind"`
	Category   string               `json:"category,omitempty"`
	Attributes map[string]string    `json:"attributes,omitempty"`
	Parts      map[string][]float64 `json:"parts,omitempty"`
	CreatedAt  *time.Time           `json:"created_at,omitempty"`
}

type itemListResponse struct {
	Items []itemResponse `json:"items"`
	Total int            `json:"total"`
}

type batchItem struct {
	ID         string        `json:"id"`
	Status     string        `json:"status"`
	Descriptor *itemResponse `json:"descriptor,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type batchResponse struct {
	Items     []batchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type deleteAllResponse struct {
	Deleted int `json:"deleted"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

func weightsToResponse(s weights.State) weightsResponse {
	resp := weightsResponse{
		Kind:     string(s.Kind()),
		Revision: s.Revision(),
		Groups:   s.Groups(),
	}
	if subs := s.Subs(); len(subs) > 0 {
		resp.Subs = subs
	}
	if !s.UpdatedAt().IsZero() {
		t := s.UpdatedAt().UTC()
		resp.UpdatedAt = &t
	}
	return resp
}

// itemToResponse renders an item; vectors are only included when withParts is set.
func itemToResponse(d *descriptor.Descriptor, withParts bool) itemResponse {
	resp := itemResponse{
		ID:         d.ID(),
		Kind:       string(d.Kind()),
		Category:   d.Category(),
		Attributes: d.Attributes(),
	}
	if withParts {
		resp.Parts = d.Parts()
	}
	if !d.CreatedAt().IsZero() {
		t := d.CreatedAt().UTC()
		resp.CreatedAt = &t
	}
	return resp
}

func itemsToResponse(items []descriptor.Descriptor) itemListResponse {
	out := make([]itemResponse, len(items))
	for i := range items {
		out[i] = itemToResponse(&items[i], false)
	}
	return itemListResponse{Items: out, Total: len(out)}
}

func batchToResponse(results []dombatch.Result, withParts bool) batchResponse {
	resp := batchResponse{Items: make([]batchItem, len(results))}
	for i, res := range results {
		it := batchItem{ID: res.ID(), Status: string(res.Status())}
		if res.Status() == dombatch.StatusOK {
			d := itemToResponse(res.Descriptor(), withParts)
			it.Descriptor = &d
			resp.Succeeded++
		} else {
			it.Error = itemErrorMessage(res.Err())
			resp.Failed++
		}
		resp.Items[i] = it
	}
	return resp
}

func outcomeToResponse(o *result.Outcome) searchResponse {
	hits := make([]searchHit, len(o.Entries))
	for i := range o.Entries {
		e := &o.Entries[i]
		hits[i] = searchHit{ID: e.ID(), Score: e.Score(), Category: e.Category(), Attributes: e.Attributes()}
	}
	resp := searchResponse{
		Results:    hits,
		Weights:    weightsToResponse(o.Weights),
		Adaptation: adaptationResponse{Status: string(o.Adaptation)},
		CorpusSize: o.CorpusSize,
	}
	if o.AdaptationErr != nil {
		resp.Adaptation.Error = safeMessage(o.AdaptationErr)
	}
	return resp
}

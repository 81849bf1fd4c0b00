package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

type itemOutput struct {
	ID         string               `json:"id"`
	Kind       string               `json:"kind"`
	Category   string               `json:"category,omitempty"`
	Attributes map[string]string    `json:"attributes,omitempty"`
	Parts      map[string][]float64 `json:"parts,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

type resultOutput struct {
	ID    string      `json:"id"`
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Item  *itemOutput `json:"item,omitempty"`
}

type batchOutput struct {
	Items     []resultOutput `json:"items"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

type hitOutput struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Category   string            `json:"category,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type weightsOutput struct {
	Kind       string               `json:"kind"`
	Revision   int64                `json:"revision"`
	Groups     map[string]float64   `json:"groups"`
	SubWeights map[string][]float64 `json:"sub_weights,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

type searchOutput struct {
	Results         []hitOutput   `json:"results"`
	Weights         weightsOutput `json:"weights"`
	Adaptation      string        `json:"adaptation"`
	AdaptationError string        `json:"adaptation_error,omitempty"`
	CorpusSize      int           `json:"corpus_size"`
}

func toItemOutput(it simdex.Item, withParts bool) itemOutput {
	out := itemOutput{
		ID:         it.ID,
		Kind:       string(it.Kind),
		Category:   it.Category,
		Attributes: it.Attributes,
		CreatedAt:  it.CreatedAt,
	}
	if withParts {
		out.Parts = it.Parts
	}
	return out
}

func toBatchOutput(results []simdex.ItemResult, withParts bool) batchOutput {
	out := batchOutput{Items: make([]resultOutput, len(results))}
	for i, r := range results {
		ro := resultOutput{ID: r.ID, OK: r.Err == nil}
		if r.Err != nil {
			ro.Error = r.Err.Error()
			out.Failed++
		} else {
			out.Succeeded++
		}
		if r.Item != nil {
			it := toItemOutput(*r.Item, withParts)
			ro.Item = &it
		}
		out.Items[i] = ro
	}
	return out
}

func toWeightsOutput(w simdex.Weights) weightsOutput {
	return weightsOutput{
		Kind:       string(w.Kind),
		Revision:   w.Revision,
		Groups:     w.Groups,
		SubWeights: w.Subs,
		UpdatedAt:  w.UpdatedAt,
	}
}

func toSearchOutput(res *simdex.SearchResult) searchOutput {
	hits := make([]hitOutput, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = hitOutput{ID: h.ID, Score: h.Score, Category: h.Category, Attributes: h.Attributes}
	}
	out := searchOutput{
		Results:    hits,
		Weights:    toWeightsOutput(res.Weights),
		Adaptation: string(res.Adaptation),
		CorpusSize: res.CorpusSize,
	}
	if res.AdaptationErr != nil {
		out.AdaptationError = res.AdaptationErr.Error()
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func parseKind(s string) (simdex.Kind, error) {
	switch k := simdex.Kind(strings.ToLower(s)); k {
	case simdex.KindImage, simdex.KindMesh:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q (want image or mesh)", simdex.ErrUnknownKind, s)
	}
}

func readFiles(paths []string) ([]simdex.File, error) {
	files := make([]simdex.File, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(filepath.Clean(p))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files[i] = simdex.File{Name: filepath.Base(p), Data: data}
	}
	return files, nil
}

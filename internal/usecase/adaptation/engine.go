package adaptation

import (
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/weights"
)

// Params are the Rocchio coefficients.
type Params struct {
	Alpha float64 // inherited weight
	Beta  float64 // pull toward relevant items
	Gamma float64 // push away from irrelevant items
}

// DefaultParams nudges weights slightly relative to their inherited value.
func DefaultParams() Params {
	return Params{Alpha: 1, Beta: 0.001, Gamma: 0.001}
}

// Policy decides what happens to weights after the update.
type Policy string

// Supported policies.
const (
	// PolicyNone keeps weights unbounded; they may drift negative over many rounds.
	PolicyNone Policy = "none"
	// PolicyNormalize rescales group weights and each sub-weight vector to sum to 1.
	PolicyNormalize Policy = "normalize"
)

// IsValid reports whether p is a known policy.
func (p Policy) IsValid() bool { return p == PolicyNone || p == PolicyNormalize }

// Engine applies relevance feedback to a weight state.
type Engine struct {
	schema descriptor.Schema
	params Params
	policy Policy
}

// New creates an adaptation engine with the default unclamped policy.
func New(schema descriptor.Schema, params Params) *Engine {
	return &Engine{schema: schema, params: params, policy: PolicyNone}
}

// WithPolicy sets the post-update policy.
func (e *Engine) WithPolicy(p Policy) *Engine {
	if p.IsValid() {
		e.policy = p
	}
	return e
}

// Params returns the configured coefficients.
func (e *Engine) Params() Params { return e.params }

// Adapt computes, for every group weight and sub-weight independently,
//
//	new = α·old + β·mean(‖relevant part‖) − γ·mean(‖irrelevant part‖)
//
// Group weights use the norm of the whole group, sub-weights the norm of their
// own part. The returned state keeps the input revision so it can be swapped in.
func (e *Engine) Adapt(
	current weights.State, relevant, irrelevant []descriptor.Descriptor,
) (weights.State, error) {
	if len(relevant) == 0 {
		return weights.State{}, fmt.Errorf("%w: no relevant items", domain.ErrEmptyFeedbackSet)
	}
	if len(irrelevant) == 0 {
		return weights.State{}, fmt.Errorf("%w: no irrelevant items", domain.ErrEmptyFeedbackSet)
	}
	if err := current.Validate(e.schema); err != nil {
		return weights.State{}, fmt.Errorf("adapt: %w", err)
	}
	for _, set := range [][]descriptor.Descriptor{relevant, irrelevant} {
		for i := range set {
			if err := set[i].Validate(e.schema); err != nil {
				return weights.State{}, fmt.Errorf("feedback: %w", err)
			}
		}
	}

	groups := make(map[string]float64, len(e.schema.Groups()))
	subs := make(map[string][]float64)
	for _, g := range e.schema.Groups() {
		groups[g.Name] = e.rocchio(current.Group(g.Name),
			meanGroupNorm(relevant, g), meanGroupNorm(irrelevant, g))

		if !g.MultiPart() {
			continue
		}
		old := current.Sub(g.Name)
		sw := make([]float64, len(g.Parts))
		for i, p := range g.Parts {
			sw[i] = e.rocchio(old[i], meanPartNorm(relevant, p.Name), meanPartNorm(irrelevant, p.Name))
		}
		subs[g.Name] = sw
	}

	if e.policy == PolicyNormalize {
		groups, subs = normalize(e.schema, groups, subs)
	}

	return weights.Reconstruct(e.schema.Kind(), groups, subs, current.Revision(), current.UpdatedAt()), nil
}

func (e *Engine) rocchio(old, rel, irr float64) float64 {
	return e.params.Alpha*old + e.params.Beta*rel - e.params.Gamma*irr
}

func meanGroupNorm(items []descriptor.Descriptor, g descriptor.Group) float64 {
	var sum float64
	for i := range items {
		sum += items[i].GroupNorm(g)
	}
	return sum / float64(len(items))
}

func meanPartNorm(items []descriptor.Descriptor, part string) float64 {
	var sum float64
	for i := range items {
		sum += descriptor.Norm(items[i].Part(part))
	}
	return sum / float64(len(items))
}

// normalize divides each vector by its sum; a non-positive sum resets that vector to defaults.
// Group weights are summed in schema order so the result is bit-for-bit repeatable.
func normalize(
	schema descriptor.Schema, groups map[string]float64, subs map[string][]float64,
) (map[string]float64, map[string][]float64) {
	def := weights.Default(schema)

	var sum float64
	for _, g := range schema.Groups() {
		sum += groups[g.Name]
	}
	if sum <= 0 {
		groups = def.Groups()
	} else {
		for k := range groups {
			groups[k] /= sum
		}
	}

	for name, sw := range subs {
		var s float64
		for _, w := range sw {
			s += w
		}
		if s <= 0 {
			subs[name] = def.Sub(name)
			continue
		}
		for i := range sw {
			sw[i] /= s
		}
	}
	return groups, subs
}

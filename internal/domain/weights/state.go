package weights

import (
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// State is the versioned set of scalars combining group distances into a score.
// Group weights are keyed by group name; sub-weights exist only for multi-part
// groups and follow the schema's part order.
type State struct {
	kind      descriptor.Kind
	groups    map[string]float64
	subs      map[string][]float64
	revision  int64
	updatedAt time.Time
}

// Default returns the documented starting weights for a schema: every group
// weight is 1/len(groups) and every sub-weight is 1/len(parts).
// The image schema starts at 1/3 per group, the mesh schema at 0.5 (w1 = w2).
func Default(schema descriptor.Schema) State {
	groups := make(map[string]float64, len(schema.Groups()))
	subs := make(map[string][]float64)
	gw := 1 / float64(len(schema.Groups()))
	for _, g := range schema.Groups() {
		groups[g.Name] = gw
		if g.MultiPart() {
			sw := make([]float64, len(g.Parts))
			for i := range sw {
				sw[i] = 1 / float64(len(g.Parts))
			}
			subs[g.Name] = sw
		}
	}
	return State{kind: schema.Kind(), groups: groups, subs: subs}
}

// New validates the weight layout against the schema.
func New(
	schema descriptor.Schema, groups map[string]float64, subs map[string][]float64,
	revision int64, updatedAt time.Time,
) (State, error) {
	s := State{
		kind:      schema.Kind(),
		groups:    cloneGroups(groups),
		subs:      cloneSubs(subs),
		revision:  revision,
		updatedAt: updatedAt,
	}
	if err := s.Validate(schema); err != nil {
		return State{}, err
	}
	return s, nil
}

// Reconstruct creates a State without validation (storage hydration).
func Reconstruct(
	kind descriptor.Kind, groups map[string]float64, subs map[string][]float64,
	revision int64, updatedAt time.Time,
) State {
	return State{kind: kind, groups: groups, subs: subs, revision: revision, updatedAt: updatedAt}
}

// Validate checks that every group has a weight and every multi-part group has
// one sub-weight per part.
func (s State) Validate(schema descriptor.Schema) error {
	if s.kind != schema.Kind() {
		return fmt.Errorf("%w: %s weights used with %s schema", domain.ErrMalformedDescriptor, s.kind, schema.Kind())
	}
	if len(s.groups) != len(schema.Groups()) {
		return fmt.Errorf("%w: expected %d group weights, got %d",
			domain.ErrMalformedDescriptor, len(schema.Groups()), len(s.groups))
	}
	subCount := 0
	for _, g := range schema.Groups() {
		w, ok := s.groups[g.Name]
		if !ok {
			return fmt.Errorf("%w: missing weight for group %q", domain.ErrMalformedDescriptor, g.Name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight for group %q is not finite", domain.ErrMalformedDescriptor, g.Name)
		}
		if !g.MultiPart() {
			continue
		}
		subCount++
		sw := s.subs[g.Name]
		if len(sw) != len(g.Parts) {
			return fmt.Errorf("%w: group %q needs %d sub-weights, got %d",
				domain.ErrMalformedDescriptor, g.Name, len(g.Parts), len(sw))
		}
	}
	if len(s.subs) != subCount {
		return fmt.Errorf("%w: unexpected sub-weights", domain.ErrMalformedDescriptor)
	}
	return nil
}

// WithRevision returns a copy stamped with a stored revision.
func (s State) WithRevision(revision int64, updatedAt time.Time) State {
	s.revision = revision
	s.updatedAt = updatedAt
	return s
}

// Kind returns the item kind these weights score.
func (s State) Kind() descriptor.Kind { return s.kind }

// Group returns the weight of one group.
func (s State) Group(name string) float64 { return s.groups[name] }

// Groups returns a copy of all group weights.
func (s State) Groups() map[string]float64 { return cloneGroups(s.groups) }

// Sub returns the sub-weights of one group, nil for single-part groups.
func (s State) Sub(name string) []float64 { return s.subs[name] }

// Subs returns a copy of all sub-weights.
func (s State) Subs() map[string][]float64 { return cloneSubs(s.subs) }

// Revision returns the stored revision; 0 means never persisted.
func (s State) Revision() int64 { return s.revision }

// UpdatedAt returns the time of the last write.
func (s State) UpdatedAt() time.Time { return s.updatedAt }

// Equal compares kind, weights and revision field for field.
func (s State) Equal(o State) bool {
	if s.kind != o.kind || s.revision != o.revision {
		return false
	}
	if len(s.groups) != len(o.groups) || len(s.subs) != len(o.subs) {
		return false
	}
	for k, v := range s.groups {
		if ov, ok := o.groups[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range s.subs {
		ov, ok := o.subs[k]
		if !ok || len(ov) != len(v) {
			return false
		}
		for i := range v {
			if v[i] != ov[i] {
				return false
			}
		}
	}
	return true
}

func cloneGroups(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSubs(m map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

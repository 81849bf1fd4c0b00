package result

import "github.com/kailas-cloud/simdex/internal/domain/weights"

// Entry is a single ranked hit. Lower scores are more similar.
type Entry struct {
	id         string
	score      float64
	category   string
	attributes map[string]string
}

// New creates a ranked entry.
func New(id string, score float64, category string, attributes map[string]string) Entry {
	return Entry{id: id, score: score, category: category, attributes: attributes}
}

// ID returns the item identifier.
func (e *Entry) ID() string { return e.id }

// Score returns the weighted dissimilarity.
func (e *Entry) Score() float64 { return e.score }

// Category returns the item category.
func (e *Entry) Category() string { return e.category }

// Attributes returns the display attributes passed through from the item.
func (e *Entry) Attributes() map[string]string { return e.attributes }

// AdaptationStatus reports what happened to the feedback of a query.
type AdaptationStatus string

// Adaptation outcomes.
const (
	AdaptationSkipped AdaptationStatus = "skipped"
	AdaptationApplied AdaptationStatus = "applied"
	// AdaptationFailed means the adapted weights were used for ranking but could not be stored.
	AdaptationFailed AdaptationStatus = "failed"
)

// State is the furthest step a query reached.
type State string

// Query states, in order.
const (
	StateIdle                State = "idle"
	StateDescriptorExtracted State = "descriptor_extracted"
	StateWeightsLoaded       State = "weights_loaded"
	StateWeightsAdapted      State = "weights_adapted"
	StateRanked              State = "ranked"
	StateDone                State = "done"
	StateError               State = "error"
)

// Outcome is the full answer to a similarity query.
type Outcome struct {
	Entries       []Entry
	Weights       weights.State
	State         State
	Adaptation    AdaptationStatus
	AdaptationErr error
	CorpusSize    int
}

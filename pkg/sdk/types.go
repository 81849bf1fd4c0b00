package simdex

import "time"

// Kind selects the descriptor schema of an item.
type Kind string

// Supported item kinds.
const (
	KindImage Kind = "image"
	KindMesh  Kind = "mesh"
)

// File is an upload: its name becomes the item ID after sanitizing.
type File struct {
	Name string
	Data []byte
}

// Item is a stored (or freshly extracted) descriptor.
type Item struct {
	ID         string
	Kind       Kind
	Category   string
	Attributes map[string]string
	Parts      map[string][]float64
	CreatedAt  time.Time
}

// ItemResult is the outcome of one file of a batch. Err is set on failure.
type ItemResult struct {
	ID   string
	Item *Item
	Err  error
}

// Feedback names items of a previous answer judged relevant or irrelevant.
// Both lists must be non-empty.
type Feedback struct {
	Relevant   []string
	Irrelevant []string
}

// SearchOptions tune a query. Zero TopN means the server default (5).
type SearchOptions struct {
	TopN     int
	Feedback *Feedback
}

// Hit is one ranked item; lower scores are more similar.
type Hit struct {
	ID         string
	Score      float64
	Category   string
	Attributes map[string]string
}

// Weights is the versioned weight state of a kind.
type Weights struct {
	Kind      Kind
	Revision  int64
	Groups    map[string]float64
	Subs      map[string][]float64
	UpdatedAt time.Time
}

// Adaptation reports what happened to the feedback of a query.
type Adaptation string

// Adaptation outcomes.
const (
	AdaptationSkipped Adaptation = "skipped"
	AdaptationApplied Adaptation = "applied"
	AdaptationFailed  Adaptation = "failed"
)

// SearchResult is the answer to a query. AdaptationErr is set when the adapted
// weights were used for ranking but could not be stored.
type SearchResult struct {
	Hits          []Hit
	Weights       Weights
	Adaptation    Adaptation
	AdaptationErr error
	CorpusSize    int
}

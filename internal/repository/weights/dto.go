package weights

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
)

// weightsDoc is the JSON stored in the "data" hash field.
type weightsDoc struct {
	Groups map[string]float64   `json:"groups"`
	Subs   map[string][]float64 `json:"subs,omitempty"`
}

// stateToHash converts weights to hash fields. The revision field is owned by
// CompareAndSwap and is not included.
func stateToHash(s domweights.State, now time.Time) (map[string]string, error) {
	data, err := json.Marshal(weightsDoc{Groups: s.Groups(), Subs: s.Subs()})
	if err != nil {
		return nil, fmt.Errorf("marshal weights: %w", err)
	}
	return map[string]string{
		"kind":       string(s.Kind()),
		"data":       string(data),
		"updated_at": strconv.FormatInt(now.UnixMilli(), 10),
	}, nil
}

// stateFromHash hydrates weights from an HGETALL result and checks them
// against the schema.
func stateFromHash(m map[string]string, schema descriptor.Schema) (domweights.State, error) {
	revision, err := strconv.ParseInt(m[db.RevisionField], 10, 64)
	if err != nil {
		return domweights.State{}, fmt.Errorf("invalid revision: %w", err)
	}

	var updatedAt time.Time
	if ms, err := strconv.ParseInt(m["updated_at"], 10, 64); err == nil {
		updatedAt = time.UnixMilli(ms).UTC()
	}

	var doc weightsDoc
	if err := json.Unmarshal([]byte(m["data"]), &doc); err != nil {
		return domweights.State{}, fmt.Errorf("unmarshal weights: %w", err)
	}
	if doc.Subs == nil {
		doc.Subs = map[string][]float64{}
	}
	return domweights.New(schema, doc.Groups, doc.Subs, revision, updatedAt)
}

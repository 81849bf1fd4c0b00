package weights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
)

// store is the consumer interface for weight records (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CompareAndSwap(ctx context.Context, key string, expected int64, fields map[string]string) (int64, error)
}

// Repo persists one weight record per item kind at {prefix}weights:{kind}.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a weights repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix, now: time.Now}
}

// Get loads the stored weights of a kind. Returns domain.ErrNotFound when none
// were ever saved.
func (r *Repo) Get(ctx context.Context, kind descriptor.Kind) (domweights.State, error) {
	schema, err := descriptor.SchemaFor(kind)
	if err != nil {
		return domweights.State{}, err
	}
	key := r.key(kind)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domweights.State{}, fmt.Errorf("%w: hgetall %s: %w", domain.ErrPersistence, key, err)
	}
	if len(m) == 0 {
		return domweights.State{}, fmt.Errorf("%s weights: %w", kind, domain.ErrNotFound)
	}

	s, err := stateFromHash(m, schema)
	if err != nil {
		return domweights.State{}, fmt.Errorf("%w: parse %s: %w", domain.ErrPersistence, key, err)
	}
	return s, nil
}

// Create writes s only if no record exists yet. A lost race returns a
// *domain.RevisionConflictError carrying the winner's revision.
func (r *Repo) Create(ctx context.Context, s domweights.State) (domweights.State, error) {
	return r.write(ctx, s, 0)
}

// Save writes s only if the stored revision still equals s.Revision().
// Returns s stamped with the new revision, or a *domain.RevisionConflictError.
func (r *Repo) Save(ctx context.Context, s domweights.State) (domweights.State, error) {
	return r.write(ctx, s, s.Revision())
}

// Reset overwrites the record with s regardless of the stored revision.
func (r *Repo) Reset(ctx context.Context, s domweights.State) (domweights.State, error) {
	return r.write(ctx, s, -1)
}

func (r *Repo) write(ctx context.Context, s domweights.State, expected int64) (domweights.State, error) {
	now := r.now().UTC()
	fields, err := stateToHash(s, now)
	if err != nil {
		return domweights.State{}, err
	}

	key := r.key(s.Kind())
	rev, err := r.store.CompareAndSwap(ctx, key, expected, fields)
	if err != nil {
		var mismatch *db.RevisionMismatchError
		if errors.As(err, &mismatch) {
			return domweights.State{}, domain.NewRevisionConflict(mismatch.Current)
		}
		return domweights.State{}, fmt.Errorf("%w: cas %s: %w", domain.ErrPersistence, key, err)
	}
	return s.WithRevision(rev, now.Truncate(time.Millisecond)), nil
}

func (r *Repo) key(kind descriptor.Kind) string {
	return fmt.Sprintf("%sweights:%s", r.prefix, kind)
}

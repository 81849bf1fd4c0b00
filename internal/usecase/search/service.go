package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
	"github.com/kailas-cloud/simdex/internal/logger"
	"github.com/kailas-cloud/simdex/internal/metrics"
	"github.com/kailas-cloud/simdex/internal/usecase/adaptation"
	"github.com/kailas-cloud/simdex/internal/usecase/similarity"
	weightsuc "github.com/kailas-cloud/simdex/internal/usecase/weights"
)

// DefaultMaxCASAttempts bounds the re-read/re-adapt loop on revision conflicts.
const DefaultMaxCASAttempts = 3

// engines bundles the per-schema scoring and learning engines of one kind.
type engines struct {
	schema  descriptor.Schema
	ranker  *similarity.Engine
	adapter *adaptation.Engine
	mu      sync.Mutex // serialises read-adapt-write for the kind
}

// Service runs similarity queries with optional relevance feedback.
type Service struct {
	extractor      QueryExtractor
	corpus         CorpusReader
	weights        WeightStore
	kinds          map[descriptor.Kind]*engines
	maxCASAttempts int
}

// New creates a search service for every known kind.
func New(
	extractor QueryExtractor, corpus CorpusReader, store WeightStore,
	params adaptation.Params, policy adaptation.Policy,
) *Service {
	kinds := make(map[descriptor.Kind]*engines, 2)
	for _, schema := range []descriptor.Schema{descriptor.ImageSchema(), descriptor.MeshSchema()} {
		kinds[schema.Kind()] = &engines{
			schema:  schema,
			ranker:  similarity.New(schema),
			adapter: adaptation.New(schema, params).WithPolicy(policy),
		}
	}
	return &Service{
		extractor:      extractor,
		corpus:         corpus,
		weights:        store,
		kinds:          kinds,
		maxCASAttempts: DefaultMaxCASAttempts,
	}
}

// WithMaxCASAttempts configures how many writes an adaptation may attempt.
func (s *Service) WithMaxCASAttempts(n int) *Service {
	if n > 0 {
		s.maxCASAttempts = n
	}
	return s
}

// Search extracts the query descriptor, loads (and with feedback adapts) the
// weights of its kind, and ranks the whole corpus of that kind.
//
// Failing to read the weights is not fatal: the defaults are used. Failing to
// store adapted weights is reported in Outcome.Adaptation and the ranking still
// uses the adapted weights.
func (s *Service) Search(ctx context.Context, req *request.Request) (*result.Outcome, error) {
	kind := req.Kind()
	k, ok := s.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	ctx = logger.WithKind(ctx, string(kind))
	out := &result.Outcome{State: result.StateIdle, Adaptation: result.AdaptationSkipped}

	query, err := s.extractor.ExtractOne(ctx, kind, req.Query())
	if err != nil {
		return nil, s.fail(ctx, kind, out.State, fmt.Errorf("extract query: %w", err))
	}
	out.State = result.StateDescriptorExtracted

	var w domweights.State
	if fb := req.Feedback(); fb != nil {
		k.mu.Lock()
		w = s.loadWeights(ctx, k.schema)
		out.State = result.StateWeightsLoaded
		w, err = s.adapt(ctx, k, w, fb, out)
		k.mu.Unlock()
		if err != nil {
			return nil, s.fail(ctx, kind, out.State, err)
		}
		out.State = result.StateWeightsAdapted
	} else {
		w = s.loadWeights(ctx, k.schema)
		out.State = result.StateWeightsLoaded
	}
	out.Weights = w

	corpus, err := s.corpus.FetchAll(ctx, kind)
	if err != nil {
		return nil, s.fail(ctx, kind, out.State, fmt.Errorf("fetch corpus: %w", err))
	}
	start := time.Now()
	entries, err := k.ranker.Rank(query, corpus, w, req.TopN())
	metrics.RankDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.fail(ctx, kind, out.State, err)
	}
	out.State = result.StateRanked
	out.Entries = entries
	out.CorpusSize = len(corpus)

	metrics.CorpusSize.WithLabelValues(string(kind)).Set(float64(len(corpus)))
	out.State = result.StateDone
	metrics.SearchesTotal.WithLabelValues(string(kind), string(result.StateDone)).Inc()
	return out, nil
}

// loadWeights returns the stored weights, creating them from the defaults when
// absent. Storage failures fall back to the defaults.
func (s *Service) loadWeights(ctx context.Context, schema descriptor.Schema) domweights.State {
	w, err := weightsuc.LoadOrCreate(ctx, s.weights, schema)
	if err != nil {
		logger.FromContext(ctx).Warn("weights unavailable, using defaults", zap.Error(err))
		return domweights.Default(schema)
	}
	metrics.ObserveWeights(w)
	return w
}

// adapt resolves the feedback items, applies the update and stores it with
// compare-and-swap. A conflict re-reads the winner and re-applies the same
// feedback to it. The returned state is what ranking must use.
func (s *Service) adapt(
	ctx context.Context, k *engines, current domweights.State,
	fb *request.Feedback, out *result.Outcome,
) (domweights.State, error) {
	kind := k.schema.Kind()
	relevant, err := s.resolve(ctx, kind, fb.Relevant)
	if err != nil {
		return domweights.State{}, err
	}
	irrelevant, err := s.resolve(ctx, kind, fb.Irrelevant)
	if err != nil {
		return domweights.State{}, err
	}

	adapted, err := k.adapter.Adapt(current, relevant, irrelevant)
	if err != nil {
		metrics.AdaptationsTotal.WithLabelValues(string(kind), "rejected").Inc()
		return domweights.State{}, fmt.Errorf("adapt weights: %w", err)
	}

	log := logger.FromContext(ctx)
	for attempt := 1; ; attempt++ {
		saved, err := s.weights.Save(ctx, adapted)
		if err == nil {
			out.Adaptation = result.AdaptationApplied
			metrics.AdaptationsTotal.WithLabelValues(string(kind), "applied").Inc()
			metrics.ObserveWeights(saved)
			return saved, nil
		}

		if !errors.Is(err, domain.ErrRevisionConflict) || attempt >= s.maxCASAttempts {
			return s.storeFailed(ctx, kind, adapted, out, attempt, err), nil
		}
		metrics.AdaptationsTotal.WithLabelValues(string(kind), "conflict").Inc()
		log.Debug("weights changed concurrently, re-adapting", zap.Int("attempt", attempt), zap.Error(err))

		fresh, err := s.weights.Get(ctx, kind)
		if err != nil {
			return s.storeFailed(ctx, kind, adapted, out, attempt, err), nil
		}
		readapted, err := k.adapter.Adapt(fresh, relevant, irrelevant)
		if err != nil {
			return s.storeFailed(ctx, kind, adapted, out, attempt, err), nil
		}
		adapted = readapted
	}
}

func (s *Service) storeFailed(
	ctx context.Context, kind descriptor.Kind, adapted domweights.State,
	out *result.Outcome, attempts int, err error,
) domweights.State {
	out.Adaptation = result.AdaptationFailed
	out.AdaptationErr = fmt.Errorf("%w: store adapted weights after %d attempt(s): %w",
		domain.ErrPersistence, attempts, err)
	metrics.AdaptationsTotal.WithLabelValues(string(kind), "failed").Inc()
	logger.FromContext(ctx).Warn("adapted weights not stored", zap.Int("attempts", attempts), zap.Error(err))
	return adapted
}

// resolve loads feedback items from the corpus. An ID the corpus does not
// hold is bad input, not a missing resource.
func (s *Service) resolve(ctx context.Context, kind descriptor.Kind, ids []string) ([]descriptor.Descriptor, error) {
	items, err := s.corpus.GetMany(ctx, kind, ids)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: feedback references an unknown item: %v", domain.ErrInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve feedback: %w", err)
	}
	return items, nil
}

func (s *Service) fail(ctx context.Context, kind descriptor.Kind, reached result.State, err error) error {
	metrics.SearchesTotal.WithLabelValues(string(kind), string(result.StateError)).Inc()
	logger.FromContext(ctx).Debug("search failed", zap.String("reached", string(reached)), zap.Error(err))
	return err
}

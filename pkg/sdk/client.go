package simdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/simdex/internal/db/redis"
	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	domweights "github.com/kailas-cloud/simdex/internal/domain/weights"
	corpusrepo "github.com/kailas-cloud/simdex/internal/repository/corpus"
	"github.com/kailas-cloud/simdex/internal/repository/featcache"
	weightsrepo "github.com/kailas-cloud/simdex/internal/repository/weights"
	"github.com/kailas-cloud/simdex/internal/transport/extractor"
	"github.com/kailas-cloud/simdex/internal/usecase/adaptation"
	corpusuc "github.com/kailas-cloud/simdex/internal/usecase/corpus"
	extractuc "github.com/kailas-cloud/simdex/internal/usecase/extract"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/simdex/internal/usecase/search"
	weightsuc "github.com/kailas-cloud/simdex/internal/usecase/weights"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "simdex:"
)

// Internal interfaces, swapped for mocks in tests.
type corpusUseCase interface {
	Ingest(
		ctx context.Context, kind descriptor.Kind, uploads []item.Raw,
		category string, attributes map[string]string,
	) ([]dombatch.Result, error)
	Get(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error)
	List(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error)
	Count(ctx context.Context, kind descriptor.Kind) (int, error)
	Delete(ctx context.Context, kind descriptor.Kind, id string) error
	DeleteAll(ctx context.Context, kind descriptor.Kind) (int, error)
	Asset(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error)
}

type extractUseCase interface {
	Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result
}

type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (*result.Outcome, error)
}

type weightsUseCase interface {
	Get(ctx context.Context, kind descriptor.Kind) (domweights.State, error)
	Reset(ctx context.Context, kind descriptor.Kind) (domweights.State, error)
}

// Client is the simdex SDK entry point.
type Client struct {
	store      db.Store
	corpusSvc  corpusUseCase
	extractSvc extractUseCase
	searchSvc  searchUseCase
	weightsSvc weightsUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a simdex Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix: defaultKeyPrefix,
		alpha:     adaptation.DefaultParams().Alpha,
		beta:      adaptation.DefaultParams().Beta,
		gamma:     adaptation.DefaultParams().Gamma,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver != DriverMemory && len(cfg.addrs) == 0 {
		return nil, errors.New("simdex: store address required (use WithStore or WithMemory)")
	}
	if cfg.extractorURLs[KindImage] == "" && cfg.extractorURLs[KindMesh] == "" {
		return nil, errors.New("simdex: extractor address required (use WithImageExtractor or WithMeshExtractor)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("simdex: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case DriverValkey, DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Username:   cfg.username,
			Password:   cfg.password,
			DB:         cfg.db,
			ClientName: "simdex-sdk",
			BatchSize:  cfg.batchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("simdex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("simdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	ex := extractor.NewClient(&extractor.Config{
		ImageURL: cfg.extractorURLs[KindImage],
		MeshURL:  cfg.extractorURLs[KindMesh],
		Timeout:  cfg.extractorTimeout,
		Retries:  cfg.extractorRetries,
	})

	corpusRepo := corpusrepo.New(store, cfg.keyPrefix)
	weightsRepo := weightsrepo.New(store, cfg.keyPrefix)

	var features extractuc.Extractor = ex
	if cfg.featureCache {
		features = featcache.New(ex, store, cfg.keyPrefix, nil, nil)
	}

	extractSvc := extractuc.New(features)
	if cfg.maxBatchSize > 0 {
		extractSvc = extractSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}

	policy := adaptation.PolicyNone
	if cfg.normalize {
		policy = adaptation.PolicyNormalize
	}
	params := adaptation.Params{Alpha: cfg.alpha, Beta: cfg.beta, Gamma: cfg.gamma}
	searchSvc := searchuc.New(extractSvc, corpusRepo, weightsRepo, params, policy).
		WithMaxCASAttempts(cfg.maxCASAttempts)

	return &Client{
		store:      store,
		corpusSvc:  corpusuc.New(corpusRepo, extractSvc),
		extractSvc: extractSvc,
		searchSvc:  searchSvc,
		weightsSvc: weightsuc.New(weightsRepo),
		healthSvc:  healthuc.New(store, ex),
		obs:        obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	defer c.obs.start("ping", "").end(&err)

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Items returns the corpus service of one kind.
func (c *Client) Items(kind Kind) *ItemService {
	return &ItemService{kind: descriptor.Kind(kind), corpus: c.corpusSvc, extract: c.extractSvc, obs: c.obs}
}

// Search returns the query service of one kind.
func (c *Client) Search(kind Kind) *SearchService {
	return &SearchService{kind: descriptor.Kind(kind), svc: c.searchSvc, obs: c.obs}
}

// Weights returns the weight admin service of one kind.
func (c *Client) Weights(kind Kind) *WeightService {
	return &WeightService{kind: descriptor.Kind(kind), svc: c.weightsSvc, obs: c.obs}
}

package chi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
	"github.com/kailas-cloud/simdex/internal/domain/search/result"
	"github.com/kailas-cloud/simdex/internal/domain/weights"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
)

// Searcher runs similarity queries.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (*result.Outcome, error)
}

// DescriptorExtractor computes descriptors without storing them.
type DescriptorExtractor interface {
	Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) []dombatch.Result
}

// Corpus manages stored items.
type Corpus interface {
	Ingest(
		ctx context.Context, kind descriptor.Kind, uploads []item.Raw,
		category string, attributes map[string]string,
	) ([]dombatch.Result, error)
	Get(ctx context.Context, kind descriptor.Kind, id string) (descriptor.Descriptor, error)
	List(ctx context.Context, kind descriptor.Kind, category string) ([]descriptor.Descriptor, error)
	Delete(ctx context.Context, kind descriptor.Kind, id string) error
	DeleteAll(ctx context.Context, kind descriptor.Kind) (int, error)
	Asset(ctx context.Context, kind descriptor.Kind, id string) ([]byte, error)
}

// WeightAdmin reads and resets the weight state of a kind.
type WeightAdmin interface {
	Get(ctx context.Context, kind descriptor.Kind) (weights.State, error)
	Reset(ctx context.Context, kind descriptor.Kind) (weights.State, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options tune request parsing and the middleware chain.
type Options struct {
	DefaultTopN         int
	MaxTopN             int
	MaxUploadBytes      int64 // single-file routes
	MaxBatchUploadBytes int64 // multi-file routes
	APIKeys             []string
	SearchRPS           float64
	SearchBurst         int
	Version             string
}

const (
	defaultMaxUploadBytes      = item.MaxSize + 1<<20
	defaultMaxBatchUploadBytes = 128 << 20
)

// Server is the simdex HTTP API.
type Server struct {
	search        Searcher
	extract       DescriptorExtractor
	corpus        Corpus
	weights       WeightAdmin
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	extract DescriptorExtractor,
	corpus Corpus,
	weightAdmin WeightAdmin,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = request.DefaultTopN
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxBatchUploadBytes <= 0 {
		opts.MaxBatchUploadBytes = defaultMaxBatchUploadBytes
	}
	return &Server{
		search:        search,
		extract:       extract,
		corpus:        corpus,
		weights:       weightAdmin,
		health:        health,
		opts:          opts,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// HealthCheck handles GET /health. A degraded service still answers 200:
// stored items can be listed even when new uploads cannot be processed.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: s.opts.Version,
	})
}

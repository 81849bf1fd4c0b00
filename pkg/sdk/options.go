package simdex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Store drivers accepted by WithStore.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type clientConfig struct {
	// store
	driver    string
	addrs     []string
	username  string
	password  string
	db        int
	batchSize int
	keyPrefix string

	// extraction
	extractorURLs    map[Kind]string
	extractorTimeout time.Duration
	extractorRetries int
	featureCache     bool

	// search and adaptation
	alpha, beta, gamma float64
	normalize          bool
	maxBatchSize       int
	maxCASAttempts     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithStore selects where items and weights live. driver is DriverValkey,
// DriverRedis or DriverMemory; the memory driver ignores addrs and forgets
// everything on Close.
func WithStore(driver string, addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driver
		c.addrs = addrs
	})
}

// WithMemory is WithStore(DriverMemory).
func WithMemory() Option { return WithStore(DriverMemory) }

// WithCredentials authenticates against Redis or Valkey. An empty username
// uses the default user.
func WithCredentials(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username, c.password = username, password
	})
}

// WithDatabase selects the logical database (SELECT n).
func WithDatabase(n int) Option {
	return optionFunc(func(c *clientConfig) { c.db = n })
}

// WithPipelineSize caps how many keys one pipelined read or delete touches.
func WithPipelineSize(n int) Option {
	return optionFunc(func(c *clientConfig) { c.batchSize = n })
}

// WithKeyPrefix namespaces every stored key. Default: "simdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) { c.keyPrefix = prefix })
}

// WithImageExtractor sets the base URL of the image descriptor service.
func WithImageExtractor(url string) Option { return withExtractor(KindImage, url) }

// WithMeshExtractor sets the base URL of the mesh descriptor service.
func WithMeshExtractor(url string) Option { return withExtractor(KindMesh, url) }

func withExtractor(kind Kind, url string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.extractorURLs == nil {
			c.extractorURLs = make(map[Kind]string, 2)
		}
		c.extractorURLs[kind] = url
	})
}

// WithExtractorTimeout bounds each extractor call. Default: 60s.
func WithExtractorTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) { c.extractorTimeout = d })
}

// WithExtractorRetries sets how often a failed extractor call is retried.
func WithExtractorRetries(n int) Option {
	return optionFunc(func(c *clientConfig) { c.extractorRetries = n })
}

// WithFeatureCache stores extracted features by upload content, so feedback
// rounds that resend the same query file skip the extractor.
func WithFeatureCache() Option {
	return optionFunc(func(c *clientConfig) { c.featureCache = true })
}

// WithAdaptation sets the relevance feedback coefficients.
// Defaults: alpha=1, beta=0.001, gamma=0.001.
func WithAdaptation(alpha, beta, gamma float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.alpha, c.beta, c.gamma = alpha, beta, gamma
	})
}

// WithNormalize rescales adapted weights to sum to 1 instead of leaving them unbounded.
func WithNormalize() Option {
	return optionFunc(func(c *clientConfig) { c.normalize = true })
}

// WithMaxBatchSize caps the files of one Describe or Ingest call. Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) { c.maxBatchSize = size })
}

// WithMaxCASAttempts sets how many writes one weight adaptation may attempt
// against concurrent writers. Default: 3.
func WithMaxCASAttempts(n int) Option {
	return optionFunc(func(c *clientConfig) { c.maxCASAttempts = n })
}

// WithLogger logs every SDK call through l: failures at warn, the rest at debug.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) { c.logger = l })
}

// WithPrometheus registers the simdex_sdk_* collectors on reg. Several
// clients may share one registry.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) { c.metricsReg = reg })
}

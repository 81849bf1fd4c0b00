package simdex

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// Outcome label values. "rejected" means the caller sent something unusable
// (bad file, unknown id); "failed" means a backend let us down.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

type sdkMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	adaptations *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simdex",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation, item kind and outcome.",
		}, []string{"operation", "kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simdex",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency. Searches include extraction and ranking.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "kind"}),
		adaptations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simdex",
			Subsystem: "sdk",
			Name:      "adaptations_total",
			Help:      "Feedback rounds seen by the SDK, by item kind and adaptation status.",
		}, []string{"kind", "adaptation"}),
	}
	if err := adopt(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := adopt(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := adopt(reg, &m.adaptations); err != nil {
		return nil, err
	}
	return m, nil
}

// adopt registers c, or swaps in the collector a previous client registered
// under the same name so several clients can share one registry.
func adopt[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("simdex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("simdex: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and measures SDK calls. A nil observer, or one without a
// logger or registry, silently skips the missing half.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// span times one call: defer s.obs.start("search", kind).end(&err).
type span struct {
	o     *observer
	op    string
	kind  string
	begin time.Time
}

func (o *observer) start(op, kind string) span {
	return span{o: o, op: op, kind: kind, begin: time.Now()}
}

func (s span) end(errp *error) {
	if s.o == nil {
		return
	}
	var err error
	if errp != nil {
		err = *errp
	}
	dur := time.Since(s.begin)
	outcome := classify(err)

	if m := s.o.metrics; m != nil {
		m.operations.WithLabelValues(s.op, s.kind, outcome).Inc()
		m.duration.WithLabelValues(s.op, s.kind).Observe(dur.Seconds())
	}
	if s.o.logger == nil {
		return
	}
	attrs := []any{"op", s.op, "kind", s.kind, "duration", dur}
	switch outcome {
	case outcomeOK:
		s.o.logger.Debug("simdex call done", attrs...)
	case outcomeRejected:
		s.o.logger.Info("simdex call rejected", append(attrs, "error", err)...)
	default:
		s.o.logger.Warn("simdex call failed", append(attrs, "error", err)...)
	}
}

// adaptation counts what a feedback search did to the weights.
func (o *observer) adaptation(kind string, status Adaptation, err error) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.adaptations.WithLabelValues(kind, string(status)).Inc()
	}
	if status == AdaptationFailed && o.logger != nil {
		o.logger.Warn("weights not saved, ranking used adapted weights", "kind", kind, "error", err)
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrInput),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrMalformedDescriptor),
		errors.Is(err, domain.ErrEmptyFeedbackSet):
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

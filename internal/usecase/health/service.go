package health

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// Pinger checks the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober checks the per-kind extractor services.
type Prober interface {
	Configured() []descriptor.Kind
	Probe(ctx context.Context, kind descriptor.Kind) error
}

// Status is the overall verdict.
type Status string

const (
	// Healthy means every component answered.
	Healthy Status = "ok"
	// Degraded means stored items can be listed and searched against, but at
	// least one kind cannot accept uploads or queries right now.
	Degraded Status = "degraded"
	// Unhealthy means the store is down and nothing can be served.
	Unhealthy Status = "error"
)

// CheckResult is the verdict on one component.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// CheckDatabase is the key of the store check in Report.Checks. Extractor
// checks are keyed "extractor_<kind>".
const CheckDatabase = "database"

const defaultCheckTimeout = 3 * time.Second

// Report is the outcome of one Check.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the store and every configured extractor in parallel.
type Service struct {
	db        Pinger
	extractor Prober
	timeout   time.Duration
}

// New creates a Service. A nil extractor skips the extractor checks.
func New(db Pinger, extractor Prober) *Service {
	return &Service{db: db, extractor: extractor, timeout: defaultCheckTimeout}
}

// Check runs all probes, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{CheckDatabase: s.db.Ping}
	if s.extractor != nil {
		for _, kind := range s.extractor.Configured() {
			probes[ExtractorCheck(kind)] = func(ctx context.Context) error {
				return s.extractor.Probe(ctx, kind)
			}
		}
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(probes))
	)
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.run(ctx, probe)
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	return Report{Status: verdict(checks), Checks: checks}
}

// ExtractorCheck is the Report.Checks key of the extractor for kind.
func ExtractorCheck(kind descriptor.Kind) string {
	return "extractor_" + string(kind)
}

func verdict(checks map[string]CheckResult) Status {
	if checks[CheckDatabase] != CheckOK {
		return Unhealthy
	}
	for _, res := range checks {
		if res != CheckOK {
			return Degraded
		}
	}
	return Healthy
}

func (s *Service) run(ctx context.Context, probe func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}

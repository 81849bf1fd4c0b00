package simdex

import (
	"context"

	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
)

// HealthStatus is the verdict of Client.Health.
type HealthStatus struct {
	// Status is "ok", "degraded" (some kind cannot take uploads) or "error"
	// (the store is unreachable).
	Status string
	// Checks maps "database" and "extractor_<kind>" to "ok" or "error".
	Checks map[string]string
}

// Healthy reports whether every component answered.
func (h HealthStatus) Healthy() bool { return h.Status == string(healthuc.Healthy) }

// Accepts reports whether uploads of kind can currently be described.
func (h HealthStatus) Accepts(kind Kind) bool {
	return h.Checks[healthuc.CheckDatabase] == string(healthuc.CheckOK) &&
		h.Checks[healthuc.ExtractorCheck(descriptor.Kind(kind))] == string(healthuc.CheckOK)
}

// Health probes the store and each configured extractor.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

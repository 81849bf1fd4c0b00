package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/metrics"
)

const calculatePath = "/calculate-descriptors"

// Config holds the extractor service settings.
type Config struct {
	ImageURL   string
	MeshURL    string
	Timeout    time.Duration
	Retries    int
	RetryWait  time.Duration
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// endpoint describes how one kind is uploaded and decoded.
type endpoint struct {
	baseURL   string
	field     string
	parts     map[string]string // response key -> part name
	attribute []string          // scalar response keys kept as attributes
}

// Client calls the remote descriptor services over HTTP.
type Client struct {
	http      *resty.Client
	endpoints map[descriptor.Kind]endpoint
	retries   int
	retryWait time.Duration
	logger    *zap.Logger
}

// NewClient creates an extractor client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetTimeout(timeout).SetHeader("Accept", "application/json")

	return &Client{
		http: rc,
		endpoints: map[descriptor.Kind]endpoint{
			descriptor.KindImage: {
				baseURL: strings.TrimRight(cfg.ImageURL, "/"),
				field:   "images",
				parts: map[string]string{
					"hu_moments":          descriptor.PartHuMoments,
					"edge_histogram":      descriptor.PartEdgeHistogram,
					"color_histogram":     descriptor.PartColorHistogram,
					"average_color":       descriptor.PartAverageColor,
					"dominant_colors":     descriptor.PartDominantColors,
					"texture_descriptors": descriptor.PartTexture,
				},
			},
			descriptor.KindMesh: {
				baseURL: strings.TrimRight(cfg.MeshURL, "/"),
				field:   "files",
				parts: map[string]string{
					"fourier_coefficients": descriptor.PartFourier,
					"zernike_moments":      descriptor.PartZernike,
				},
				attribute: []string{
					"num_vertices", "num_faces", "num_edges",
					"is_watertight", "mesh_volume", "mesh_area", "warning",
				},
			},
		},
		retries:   max(cfg.Retries, 0),
		retryWait: wait,
		logger:    logger,
	}
}

// calculateResponse is the body returned by /calculate-descriptors.
type calculateResponse struct {
	Message string                     `json:"message"`
	Results map[string]json.RawMessage `json:"results"`
}

// Extract uploads items in one request and returns their features in input order.
// The call fails as a whole with domain.ErrExtractor when the service cannot be
// reached or answers with a non-2xx status; a per-file failure only sets that
// item's Err.
func (c *Client) Extract(ctx context.Context, kind descriptor.Kind, items []item.Raw) ([]item.Features, error) {
	ep, ok := c.endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	if len(items) == 0 {
		return nil, nil
	}
	if ep.baseURL == "" {
		return nil, fmt.Errorf("%s extractor is not configured: %w", kind, domain.ErrExtractor)
	}

	start := time.Now()
	body, err := c.post(ctx, ep, items)
	metrics.ExtractorRequestDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExtractorRequestsTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	metrics.ExtractorRequestsTotal.WithLabelValues(string(kind), "success").Inc()

	out := make([]item.Features, len(items))
	for i, it := range items {
		out[i] = ep.decode(it.Name, body.Results)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, ep endpoint, items []item.Raw) (*calculateResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("extractor request: %w: %w", ctx.Err(), domain.ErrExtractor)
			case <-time.After(c.retryWait * time.Duration(attempt)):
			}
		}

		// Readers are consumed by each attempt, so the request is rebuilt.
		fields := make([]*resty.MultipartField, len(items))
		for i, it := range items {
			fields[i] = &resty.MultipartField{
				Param:       ep.field,
				FileName:    it.Name,
				ContentType: "application/octet-stream",
				Reader:      bytes.NewReader(it.Data),
			}
		}

		var out calculateResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetMultipartFields(fields...).
			SetResult(&out).
			Post(ep.baseURL + calculatePath)
		if err != nil {
			lastErr = fmt.Errorf("extractor request: %w", err)
			if ctx.Err() != nil {
				break
			}
			c.logger.Warn("extractor request failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("extractor returned %d: %s", resp.StatusCode(), snippet(resp.String()))
			c.logger.Warn("extractor server error", zap.Int("attempt", attempt+1), zap.Int("status", resp.StatusCode()))
			continue
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("extractor returned %d: %s: %w",
				resp.StatusCode(), snippet(resp.String()), domain.ErrExtractor)
		}
		if out.Results == nil {
			return nil, fmt.Errorf("extractor response has no results: %w", domain.ErrExtractor)
		}
		return &out, nil
	}
	return nil, fmt.Errorf("%w: %w", lastErr, domain.ErrExtractor)
}

// decode maps the result entry for one file onto schema parts.
func (ep endpoint) decode(name string, results map[string]json.RawMessage) item.Features {
	f := item.Features{Name: name}
	raw, ok := results[name]
	if !ok {
		f.Err = fmt.Errorf("%w: no descriptors returned for %q", domain.ErrInput, name)
		return f
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		f.Err = fmt.Errorf("%w: unreadable descriptors for %q: %w", domain.ErrInput, name, err)
		return f
	}
	if msg, ok := fields["error"]; ok {
		f.Err = fmt.Errorf("%w: %q: %s", domain.ErrInput, name, errorText(msg))
		return f
	}

	f.Parts = make(map[string][]float64, len(ep.parts))
	for key, part := range ep.parts {
		v, ok := fields[key]
		if !ok {
			continue
		}
		var tree any
		if err := json.Unmarshal(v, &tree); err != nil {
			f.Err = fmt.Errorf("%w: %q field %s: %w", domain.ErrMalformedDescriptor, name, key, err)
			return f
		}
		flat, err := flatten(tree, nil)
		if err != nil {
			f.Err = fmt.Errorf("%w: %q field %s: %w", domain.ErrMalformedDescriptor, name, key, err)
			return f
		}
		f.Parts[part] = flat
	}

	for _, key := range ep.attribute {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if s, ok := scalarText(v); ok {
			if f.Attributes == nil {
				f.Attributes = make(map[string]string, len(ep.attribute))
			}
			f.Attributes[key] = s
		}
	}
	return f
}

// flatten walks nested JSON arrays row-major and collects the numbers.
func flatten(v any, dst []float64) ([]float64, error) {
	switch t := v.(type) {
	case float64:
		return append(dst, t), nil
	case []any:
		var err error
		for _, e := range t {
			if dst, err = flatten(e, dst); err != nil {
				return nil, err
			}
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("unexpected %T in vector", v)
	}
}

func scalarText(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		return "", false
	}
}

func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func snippet(s string) string {
	const maxLen = 200
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// Configured lists the kinds with an extractor URL, image first.
func (c *Client) Configured() []descriptor.Kind {
	var kinds []descriptor.Kind
	for _, k := range []descriptor.Kind{descriptor.KindImage, descriptor.KindMesh} {
		if c.endpoints[k].baseURL != "" {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Probe checks that the extractor of kind answers HTTP at all. The services
// have no health route, so any status counts as alive.
func (c *Client) Probe(ctx context.Context, kind descriptor.Kind) error {
	ep, ok := c.endpoints[kind]
	if !ok || ep.baseURL == "" {
		return fmt.Errorf("%w: no %q extractor configured", domain.ErrUnknownKind, kind)
	}
	if _, err := c.http.R().SetContext(ctx).Get(ep.baseURL + "/"); err != nil {
		return fmt.Errorf("%s extractor: %w: %w", kind, err, domain.ErrExtractor)
	}
	return nil
}

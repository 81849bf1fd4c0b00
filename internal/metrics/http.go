package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "simdex"

// Label value for requests that matched no route or no known kind.
const unmatched = "other"

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern, item kind and status.",
	}, []string{"method", "route", "kind", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency. Upload routes include descriptor extraction.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "route", "kind"})

	httpUploadBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_upload_bytes",
		Help:      "Request body size of POST requests (images, meshes, queries).",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8), // 16KiB..256MiB
	}, []string{"route", "kind"})

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpUploadBytes, httpInFlight)
}

// Middleware records request metrics labelled by chi route pattern and the
// {kind} path parameter. Must run inside the chi router so the pattern is known.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route, kind := labels(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, kind, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route, kind).Observe(time.Since(start).Seconds())
			if r.Method == http.MethodPost && r.ContentLength > 0 {
				httpUploadBytes.WithLabelValues(route, kind).Observe(float64(r.ContentLength))
			}
		})
	}
}

// labels bounds cardinality: item IDs never reach a label and {kind} is
// collapsed to "other" unless it names a schema.
func labels(r *http.Request) (route, kind string) {
	route, kind = unmatched, ""
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return route, kind
	}
	if p := rc.RoutePattern(); p != "" {
		route = p
	}
	switch k := rc.URLParam("kind"); k {
	case "":
	case "image", "mesh":
		kind = k
	default:
		kind = unmatched
	}
	return route, kind
}

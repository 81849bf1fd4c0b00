package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/simdex/internal/metrics"
)

// Handler builds the routed HTTP handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := gochi.NewRouter()
	r.Use(recoverJSON(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLog(s.logger))
	r.Use(APIKeyAuth(s.opts.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.With(RateLimitMiddleware(s.opts.SearchRPS, s.opts.SearchBurst)).
		Post("/search/{kind}", s.Search)
	r.Post("/descriptors/{kind}", s.CalculateDescriptors)

	r.Route("/items/{kind}", func(r gochi.Router) {
		r.Post("/", s.IngestItems)
		r.Get("/", s.ListItems)
		r.Delete("/", s.DeleteAllItems)
		r.Get("/category/{category}", s.ListItemsByCategory)
		r.Get("/{id}", s.GetItem)
		r.Delete("/{id}", s.DeleteItem)
		r.Get("/{id}/asset", s.GetItemAsset)
	})

	r.Route("/weights/{kind}", func(r gochi.Router) {
		r.Get("/", s.GetWeights)
		r.Delete("/", s.ResetWeights)
	})

	return r
}

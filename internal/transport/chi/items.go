package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/simdex/internal/domain/batch"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
)

// CalculateDescriptors handles POST /descriptors/{kind}. Nothing is stored.
func (s *Server) CalculateDescriptors(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := parseMultipart(w, r, s.opts.MaxBatchUploadBytes); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer cleanupMultipart(r)

	files, err := readFiles(r, fieldFiles)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	results := s.extract.Extract(r.Context(), kind, files)

	annotate(r.Context(), zap.Int("files", len(files)), zap.Int("failed", dombatch.Failed(results)))
	writeJSON(w, http.StatusOK, batchToResponse(results, true))
}

// IngestItems handles POST /items/{kind}. Answers 201 when every file was
// stored and 207 when some failed.
func (s *Server) IngestItems(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := parseMultipart(w, r, s.opts.MaxBatchUploadBytes); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer cleanupMultipart(r)

	files, err := readFiles(r, fieldFiles)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	attrs, err := parseAttributes(r.FormValue(fieldAttributes))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results, err := s.corpus.Ingest(r.Context(), kind, files, r.FormValue(fieldCategory), attrs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	failed := dombatch.Failed(results)
	annotate(r.Context(), zap.Int("files", len(files)), zap.Int("failed", failed))

	status := http.StatusCreated
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, batchToResponse(results, false))
}

// ListItems handles GET /items/{kind}?category=.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	s.listItems(w, r, r.URL.Query().Get("category"))
}

// ListItemsByCategory handles GET /items/{kind}/category/{category}.
func (s *Server) ListItemsByCategory(w http.ResponseWriter, r *http.Request) {
	s.listItems(w, r, gochi.URLParam(r, "category"))
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request, category string) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items, err := s.corpus.List(r.Context(), kind, category)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsToResponse(items))
}

// GetItem handles GET /items/{kind}/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	d, err := s.corpus.Get(r.Context(), kind, gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(&d, true))
}

// GetItemAsset handles GET /items/{kind}/{id}/asset.
func (s *Server) GetItemAsset(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	id := gochi.URLParam(r, "id")
	data, err := s.corpus.Asset(r.Context(), kind, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	contentType := "application/octet-stream"
	if kind == descriptor.KindImage {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+id+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DeleteItem handles DELETE /items/{kind}/{id}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.corpus.Delete(r.Context(), kind, gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllItems handles DELETE /items/{kind}.
func (s *Server) DeleteAllItems(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	n, err := s.corpus.DeleteAll(r.Context(), kind)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.logger.Info("corpus cleared", zap.String("kind", string(kind)), zap.Int("deleted", n))
	writeJSON(w, http.StatusOK, deleteAllResponse{Deleted: n})
}

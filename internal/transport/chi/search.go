package chi

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
	"github.com/kailas-cloud/simdex/internal/domain/weights"
)

// headerWeightsRevision carries the revision of the weights used for ranking.
const headerWeightsRevision = "X-Weights-Revision"

// Search handles POST /search/{kind}.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := parseMultipart(w, r, s.opts.MaxUploadBytes); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer cleanupMultipart(r)

	files, err := readFiles(r, fieldFile)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if len(files) != 1 {
		s.handleDomainError(w, r, fmt.Errorf("%w: exactly one %q upload is required, got %d",
			domain.ErrInput, fieldFile, len(files)))
		return
	}
	topN, err := parseTopN(r.FormValue(fieldTopN), s.opts.DefaultTopN)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	feedback, err := parseFeedback(r.FormValue(fieldFeedback))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	req, err := request.New(kind, files[0], topN, s.opts.MaxTopN, feedback)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	outcome, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	annotate(r.Context(),
		zap.String("state", string(outcome.State)),
		zap.String("adaptation", string(outcome.Adaptation)),
		zap.Int("results", len(outcome.Entries)),
		zap.Int64("weights_revision", outcome.Weights.Revision()),
	)
	setRevisionHeaders(w, outcome.Weights, false)
	writeJSON(w, http.StatusOK, outcomeToResponse(outcome))
}

// GetWeights handles GET /weights/{kind}.
func (s *Server) GetWeights(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	st, err := s.weights.Get(r.Context(), kind)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setRevisionHeaders(w, st, true)
	writeJSON(w, http.StatusOK, weightsToResponse(st))
}

// ResetWeights handles DELETE /weights/{kind}: the stored weights go back to the defaults.
func (s *Server) ResetWeights(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	st, err := s.weights.Reset(r.Context(), kind)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.logger.Info("weights reset", zap.String("kind", string(kind)), zap.Int64("revision", st.Revision()))
	setRevisionHeaders(w, st, true)
	writeJSON(w, http.StatusOK, weightsToResponse(st))
}

func setRevisionHeaders(w http.ResponseWriter, st weights.State, etag bool) {
	rev := strconv.FormatInt(st.Revision(), 10)
	w.Header().Set(headerWeightsRevision, rev)
	if etag {
		w.Header().Set("ETag", strconv.Quote(rev))
	}
}

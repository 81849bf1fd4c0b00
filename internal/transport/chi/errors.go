package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/logger"
)

// Error codes of the JSON error body.
const (
	codeBadRequest          = "bad_request"
	codeUnauthorized        = "unauthorized"
	codeNotFound            = "not_found"
	codeMethodNotAllowed    = "method_not_allowed"
	codeUnknownKind         = "unknown_kind"
	codeMalformedDescriptor = "malformed_descriptor"
	codeEmptyFeedbackSet    = "empty_feedback_set"
	codePayloadTooLarge     = "payload_too_large"
	codePersistence         = "persistence_error"
	codeExtractor           = "extractor_unavailable"
	codeRevisionConflict    = "revision_conflict"
	codeRateLimited         = "rate_limited"
	codeInternal            = "internal_error"
)

var errPayloadTooLarge = errors.New("payload too large")

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		revisionConflictHandler,
		sentinelHandler(errPayloadTooLarge, http.StatusRequestEntityTooLarge, codePayloadTooLarge, false),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited, false),
		sentinelHandler(domain.ErrUnknownKind, http.StatusBadRequest, codeUnknownKind, true),
		sentinelHandler(domain.ErrEmptyFeedbackSet, http.StatusBadRequest, codeEmptyFeedbackSet, true),
		sentinelHandler(domain.ErrMalformedDescriptor, http.StatusUnprocessableEntity, codeMalformedDescriptor, true),
		sentinelHandler(domain.ErrInput, http.StatusBadRequest, codeBadRequest, true),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound, false),
		sentinelHandler(domain.ErrExtractor, http.StatusBadGateway, codeExtractor, false),
		sentinelHandler(domain.ErrPersistence, http.StatusServiceUnavailable, codePersistence, false),
	}
}

// sentinelHandler maps one sentinel to a status. Client-side errors echo the
// full message; server-side ones expose only the sentinel text.
func sentinelHandler(sentinel error, status int, code string, detailed bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detailed {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

// revisionConflictHandler handles ErrRevisionConflict with ETag header and the current revision.
func revisionConflictHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrRevisionConflict) {
		return false
	}
	var rce *domain.RevisionConflictError
	if errors.As(err, &rce) {
		w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(rce.CurrentRevision, 10)))
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":             codeRevisionConflict,
			"message":          domain.ErrRevisionConflict.Error(),
			"current_revision": rce.CurrentRevision,
		})
		return true
	}
	writeError(w, http.StatusConflict, codeRevisionConflict, domain.ErrRevisionConflict.Error())
	return true
}

// safeMessage returns the client-facing text of an error folded into a 200
// response, without exposing internals.
func safeMessage(err error) string {
	for _, s := range []error{
		domain.ErrEmptyFeedbackSet, domain.ErrMalformedDescriptor, domain.ErrInput,
		domain.ErrRevisionConflict, domain.ErrNotFound, domain.ErrExtractor, domain.ErrPersistence,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// itemErrorMessage explains a failed batch item: input problems verbatim,
// anything else by its sentinel.
func itemErrorMessage(err error) string {
	for _, s := range []error{domain.ErrUnknownKind, domain.ErrMalformedDescriptor, domain.ErrInput} {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return safeMessage(err)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			annotate(r.Context(), zap.String("error", err.Error()))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	annotate(r.Context(), zap.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

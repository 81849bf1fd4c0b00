package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	"github.com/kailas-cloud/simdex/internal/domain/item"
	"github.com/kailas-cloud/simdex/internal/domain/search/request"
)

// Form fields.
const (
	fieldFile       = "file"
	fieldFiles      = "files"
	fieldTopN       = "top_n"
	fieldFeedback   = "feedback"
	fieldCategory   = "category"
	fieldAttributes = "attributes"
)

const multipartMemory = 32 << 20

// parseMultipart buffers at most limit bytes of body and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("%w: body exceeds %d bytes", errPayloadTooLarge, mbe.Limit)
		}
		return fmt.Errorf("%w: read body: %v", domain.ErrInput, err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return fmt.Errorf("%w: invalid multipart body: %v", domain.ErrInput, err)
	}
	return nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// readFiles loads every upload of a form field.
func readFiles(r *http.Request, field string) ([]item.Raw, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	out := make([]item.Raw, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %q: %v", domain.ErrInput, fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %q: %v", domain.ErrInput, fh.Filename, err)
		}
		out = append(out, item.Raw{Name: fh.Filename, Data: data})
	}
	return out, nil
}

func kindParam(r *http.Request) (descriptor.Kind, error) {
	return descriptor.ParseKind(gochi.URLParam(r, "kind"))
}

func parseTopN(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: top_n must be a positive integer, got %q", domain.ErrInput, raw)
	}
	return n, nil
}

// parseFeedback decodes {"relevant": [...], "irrelevant": [...]}. An absent
// field means no feedback; a present one always requests adaptation.
func parseFeedback(raw string) (*request.Feedback, error) {
	if raw == "" {
		return nil, nil
	}
	var fb feedbackRequest
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fb); err != nil {
		return nil, fmt.Errorf("%w: feedback must be a JSON object with relevant and irrelevant ID lists: %v",
			domain.ErrInput, err)
	}
	return &request.Feedback{Relevant: fb.Relevant, Irrelevant: fb.Irrelevant}, nil
}

func parseAttributes(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("%w: attributes must be a JSON object of strings: %v", domain.ErrInput, err)
	}
	return attrs, nil
}

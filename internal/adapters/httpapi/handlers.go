package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"

	"github.com/phishguard/risk-scoring/internal/domain"
)

const (
	failureInvalidRequest  domain.FailureKind = "invalid_request"
	failureRequestTooLarge domain.FailureKind = "request_too_large"
)

type analyzeRequest struct {
	SourceKind domain.SourceKind `json:"source_kind"`
	Text       string            `json:"text"`
}

type analyzeResponse struct {
	domain.ClassifiedResult
	Severity domain.Category `json:"severity"`
}

type errorBody struct {
	Error struct {
		Kind    domain.FailureKind `json:"kind"`
		Message string             `json:"message"`
	} `json:"error"`
}

// Analyze handles POST /api/v1/analyze
//
// Accepts either JSON {"source_kind": "...", "text": "..."} or a multipart form
// with a "file" upload (.txt or .eml) and an optional "text" field. An uploaded
// file wins over pasted text.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	input, err := s.readInput(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	// The deadline covers the whole pipeline; expiry aborts an in-flight delegate call
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.analyzer.Analyze(ctx, input)
	if err != nil {
		log.Printf("Analysis failed: %v", err)
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{ClassifiedResult: result, Severity: result.Severity()})
}

func (s *Server) readInput(r *http.Request) (domain.RawInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.readMultipart(r)
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.RawInput{}, invalidRequest(fmt.Errorf("invalid JSON body: %w", err))
	}
	if req.SourceKind == "" {
		req.SourceKind = domain.SourcePastedText
	}
	return domain.FromSource(req.SourceKind, []byte(req.Text))
}

func (s *Server) readMultipart(r *http.Request) (domain.RawInput, error) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return domain.RawInput{}, invalidRequest(fmt.Errorf("invalid multipart form: %w", err))
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return domain.FromSource(domain.SourcePastedText, []byte(r.FormValue("text")))
	}
	if err != nil {
		return domain.RawInput{}, invalidRequest(fmt.Errorf("invalid file upload: %w", err))
	}
	defer file.Close()

	kind, err := domain.SourceKindForFilename(header.Filename)
	if err != nil {
		return domain.RawInput{}, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.RawInput{}, invalidRequest(fmt.Errorf("failed to read upload: %w", err))
	}
	return domain.FromSource(kind, data)
}

// requestError marks malformed requests that never reached the pipeline
type requestError struct {
	err    error
	kind   domain.FailureKind
	status int
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// invalidRequest tags a body that could not be read; bodies cut off by the upload limit are 413
func invalidRequest(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{err: err, kind: failureRequestTooLarge, status: http.StatusRequestEntityTooLarge}
	}
	return &requestError{err: err, kind: failureInvalidRequest, status: http.StatusBadRequest}
}

func writeFailure(w http.ResponseWriter, err error) {
	var body errorBody

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		body.Error.Kind = reqErr.kind
		body.Error.Message = reqErr.Error()
		writeJSON(w, reqErr.status, body)
		return
	}

	kind := domain.FailureKindOf(err)
	body.Error.Kind = kind
	body.Error.Message = domain.UserMessage(kind)
	writeJSON(w, statusFor(kind), body)
}

func statusFor(kind domain.FailureKind) int {
	switch kind {
	case domain.FailureUnsupportedInputKind, domain.FailureEmptyInput:
		return http.StatusBadRequest
	case domain.FailureNoReadableContent:
		return http.StatusUnprocessableEntity
	case domain.FailureDelegateUnavailable, domain.FailureDelegateMalformedResponse:
		return http.StatusBadGateway
	case domain.FailureCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

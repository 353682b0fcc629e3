package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lvonguyen/casescreen/internal/indicator"
	"github.com/lvonguyen/casescreen/internal/ranking"
)

// Validation errors reported to clients.
var (
	ErrMissingContent    = errors.New("Missing content field")
	ErrMissingCaseFields = errors.New("Missing required fields")
	ErrInvalidBody       = errors.New("invalid request body")
	ErrBodyTooLarge      = errors.New("request body too large")
)

// DocumentRequest is the body of POST /analyze/document.
type DocumentRequest struct {
	Content      *string `json:"content"`
	DocumentType string  `json:"document_type"`
}

// CaseRequest is the body of POST /analyze/case.
type CaseRequest struct {
	CaseID          *int64                `json:"case_id"`
	Documents       *[]indicator.Document `json:"documents"`
	IncludePriority bool                  `json:"include_priority"`
}

// CaseResponse is a case result with an optional priority ranking.
type CaseResponse struct {
	*indicator.CaseResult
	Priority *ranking.Priority `json:"priority,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": s.opts.Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"detectors": s.analyzer.Detectors(),
	})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	names := indicator.Names()
	writeJSON(w, http.StatusOK, map[string]any{
		"indicators": names,
		"count":      len(names),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entries := indicator.Catalog()
	if category := r.URL.Query().Get("category"); category != "" {
		entries = indicator.ByCategory(category)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"indicators": entries,
		"count":      len(entries),
	})
}

func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.reject(w, r, err)
		return
	}
	if req.Content == nil {
		s.reject(w, r, ErrMissingContent)
		return
	}

	_, span := s.telemetry.StartSpan(r.Context(), "analyze.document",
		attribute.String("document.type", req.DocumentType),
		attribute.Int("document.length", len(*req.Content)),
	)
	result := s.analyzer.AnalyzeDocument(*req.Content, req.DocumentType)
	span.SetAttributes(attribute.Int("indicators.total", result.TotalIndicators))
	span.End()

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeCase(w http.ResponseWriter, r *http.Request) {
	var req CaseRequest
	if err := s.decode(w, r, &req); err != nil {
		s.reject(w, r, err)
		return
	}
	if req.CaseID == nil || req.Documents == nil {
		s.reject(w, r, ErrMissingCaseFields)
		return
	}

	ctx, span := s.telemetry.StartSpan(r.Context(), "analyze.case",
		attribute.Int64("case.id", *req.CaseID),
		attribute.Int("case.documents", len(*req.Documents)),
	)

	result, err := s.analyzer.AnalyzeCase(ctx, *req.CaseID, *req.Documents)
	if err != nil {
		s.telemetry.RecordError(ctx, err, zap.Int64("case_id", *req.CaseID))
		span.End()
		writeError(w, http.StatusServiceUnavailable, "analysis cancelled")
		return
	}
	span.SetAttributes(attribute.Int("indicators.total", result.TotalIndicators))
	span.End()

	resp := CaseResponse{CaseResult: result}
	if req.IncludePriority {
		p := ranking.Explain(result.Indicators)
		resp.Priority = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a size-limited JSON body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return ErrInvalidBody
	}
	return nil
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	s.logger.Warn("Request rejected",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/models"
	"github.com/hyperjump/kusuri/internal/pipeline"
	"github.com/hyperjump/kusuri/internal/retrieval"
	"go.uber.org/zap"
)

type contextRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type contextResponse struct {
	Snippets []models.ContextSnippet `json:"snippets"`
	Context  string                  `json:"context"`
}

func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}
	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "no PDF file uploaded")
		return
	}
	defer file.Close()

	filename := r.FormValue("filename")
	if filename == "" {
		filename = header.Filename
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		s.respondError(w, http.StatusBadRequest, "only PDF files allowed")
		return
	}

	pdfBytes, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	s.logger.Debug("upload request",
		zap.String("user_id", userID),
		zap.String("filename", filename),
		zap.Int("bytes", len(pdfBytes)),
	)

	result, err := s.processor.ProcessPDF(r.Context(), userID, pdfBytes, models.UploadMetadata{
		Filename:   filename,
		UploadDate: time.Now().UTC(),
	})
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRetrieveContext(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snippets := s.retriever.RetrieveContext(r.Context(), userID, req.Query, req.TopK)
	if snippets == nil {
		snippets = []models.ContextSnippet{}
	}
	s.respondJSON(w, http.StatusOK, contextResponse{
		Snippets: snippets,
		Context:  retrieval.ContextBlock(s.filter, snippets),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"mode":      s.processor.Mode(),
		"users":     s.store.UserCount(),
		"documents": s.store.TotalDocuments(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondPipelineError maps pipeline stage errors to HTTP status codes:
// bad input and rejected content are client errors, unparseable PDFs are
// unprocessable, embedding upstream failures are bad gateway.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	var inputErr *pipeline.InputError
	if errors.As(err, &inputErr) {
		s.respondError(w, http.StatusBadRequest, inputErr.Error())
		return
	}
	var rejected *pipeline.ContentRejectedError
	if errors.As(err, &rejected) {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      rejected.Reason,
			"confidence": rejected.Confidence,
		})
		return
	}
	var extraction *pipeline.ExtractionError
	if errors.As(err, &extraction) {
		s.respondError(w, http.StatusUnprocessableEntity, extraction.Error())
		return
	}
	var svcErr *embedding.ServiceError
	var fmtErr *embedding.FormatError
	if errors.As(err, &svcErr) || errors.As(err, &fmtErr) {
		s.logger.Error("embedding upstream failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}
	s.logger.Error("upload processing failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

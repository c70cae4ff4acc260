// Package server provides the HTTP API for Kusuri.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kusuri/internal/config"
	"github.com/hyperjump/kusuri/internal/models"
	"github.com/hyperjump/kusuri/internal/retrieval"
	"github.com/hyperjump/kusuri/internal/safety"
	"github.com/hyperjump/kusuri/internal/store"
	"go.uber.org/zap"
)

// maxUploadBytes caps PDF upload size at 10MB.
const maxUploadBytes = 10 << 20

// Processor ingests an uploaded PDF for a user. Implemented by
// pipeline.Pipeline; a narrow interface so handlers can be tested with a stub.
type Processor interface {
	ProcessPDF(ctx context.Context, userID string, pdfBytes []byte, meta models.UploadMetadata) (*models.ProcessResult, error)
	Mode() string
}

// Server is the HTTP server for the Kusuri API.
type Server struct {
	processor Processor
	retriever retrieval.Retriever
	filter    *safety.Filter
	store     *store.DocumentStore
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	processor Processor,
	retriever retrieval.Retriever,
	filter *safety.Filter,
	docStore *store.DocumentStore,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		processor: processor,
		retriever: retriever,
		filter:    filter,
		store:     docStore,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/users/{userID}/documents", s.handleUploadPDF)
	r.Post("/api/v1/users/{userID}/context", s.handleRetrieveContext)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

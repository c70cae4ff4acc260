// Package pipeline runs an uploaded PDF through extraction, safety
// filtering, chunking, embedding, and storage.
package pipeline

import (
	"context"
	"fmt"

	"github.com/hyperjump/kusuri/internal/chunker"
	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/extract"
	"github.com/hyperjump/kusuri/internal/models"
	"github.com/hyperjump/kusuri/internal/safety"
	"github.com/hyperjump/kusuri/internal/store"
	"github.com/hyperjump/kusuri/pkg/utils"
	"go.uber.org/zap"
)

// Mode names for status reporting.
const (
	ModeSimilarity = "similarity"
	ModeFullText   = "fulltext"
)

// Pipeline ingests prescription PDFs for a user. With an embedder it chunks
// and embeds the text (similarity mode); without one it stores the whole
// sanitized text as a single document (full-text mode). Any stage failure
// aborts the upload with nothing stored.
type Pipeline struct {
	extractor extract.TextExtractor
	filter    *safety.Filter
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	store     *store.DocumentStore
	logger    *zap.Logger
}

// NewPipeline creates a pipeline. embedder may be nil, which selects
// full-text mode.
func NewPipeline(
	extractor extract.TextExtractor,
	filter *safety.Filter,
	ch *chunker.Chunker,
	embedder embedding.Embedder,
	s *store.DocumentStore,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		filter:    filter,
		chunker:   ch,
		embedder:  embedder,
		store:     s,
		logger:    logger,
	}
}

// Mode returns which ingestion/retrieval mode the pipeline runs in.
func (p *Pipeline) Mode() string {
	if p.embedder != nil {
		return ModeSimilarity
	}
	return ModeFullText
}

// ProcessPDF runs the full ingestion pipeline: extract text, validate it as
// medical content, sanitize it, then store it either as embedded chunks or
// as one full-text document. Returns *InputError, *ExtractionError or
// *ContentRejectedError for the corresponding stage; embedding failures
// propagate as *embedding.ServiceError / *embedding.FormatError.
func (p *Pipeline) ProcessPDF(ctx context.Context, userID string, pdfBytes []byte, meta models.UploadMetadata) (*models.ProcessResult, error) {
	if userID == "" {
		return nil, &InputError{Msg: "user id is required"}
	}
	if len(pdfBytes) == 0 {
		return nil, &InputError{Msg: "PDF body is empty"}
	}

	p.logger.Info("processing PDF",
		zap.String("user_id", userID),
		zap.String("filename", meta.Filename),
		zap.Int("bytes", len(pdfBytes)),
	)

	text, err := p.extractor.ExtractText(pdfBytes)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	p.logger.Debug("text extracted",
		zap.Int("length", len(text)),
		zap.String("preview", utils.Truncate(text, 120)),
	)

	validation := p.filter.ValidateDocumentContent(text)
	if !validation.IsValid {
		p.logger.Info("document rejected",
			zap.String("user_id", userID),
			zap.String("reason", validation.Reason),
			zap.Float64("confidence", validation.Confidence),
		)
		return nil, &ContentRejectedError{
			Reason:     validation.Reason,
			Confidence: validation.Confidence,
		}
	}

	sanitized := p.filter.Sanitize(text)

	var result *models.ProcessResult
	if p.embedder != nil {
		result, err = p.storeChunks(ctx, userID, sanitized, meta)
	} else {
		result, err = p.storeFullText(userID, sanitized, meta)
	}
	if err != nil {
		return nil, err
	}
	result.TextLength = len(text)

	p.logger.Info("PDF processed",
		zap.String("user_id", userID),
		zap.String("mode", p.Mode()),
		zap.Int("chunks", result.ChunkCount),
		zap.Int("stored", result.VectorCount),
	)
	return result, nil
}

// storeChunks chunks sanitized text, embeds every chunk sequentially, and
// appends the resulting vector documents. Nothing is stored unless the whole
// batch embeds successfully.
func (p *Pipeline) storeChunks(ctx context.Context, userID, sanitized string, meta models.UploadMetadata) (*models.ProcessResult, error) {
	chunks := p.chunker.Chunk(sanitized)
	if len(chunks) == 0 {
		return nil, &ContentRejectedError{Reason: "no usable text after sanitization"}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	docs := make([]models.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = models.Document{
			Text:       chunk.Text,
			Filename:   meta.Filename,
			UploadDate: meta.UploadDate,
			Embedding:  vectors[i],
		}
	}
	count, err := p.store.Store(userID, models.KindChunk, docs)
	if err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	return &models.ProcessResult{
		Success:     true,
		VectorCount: count,
		ChunkCount:  len(chunks),
	}, nil
}

// storeFullText appends the sanitized text as a single document.
func (p *Pipeline) storeFullText(userID, sanitized string, meta models.UploadMetadata) (*models.ProcessResult, error) {
	doc := models.Document{
		Text:       sanitized,
		Filename:   meta.Filename,
		UploadDate: meta.UploadDate,
	}
	count, err := p.store.Store(userID, models.KindDoc, []models.Document{doc})
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	return &models.ProcessResult{
		Success:     true,
		VectorCount: count,
	}, nil
}

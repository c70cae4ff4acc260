package retrieval

import (
	"context"
	"sort"

	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/models"
	"github.com/hyperjump/kusuri/internal/safety"
	"github.com/hyperjump/kusuri/internal/store"
	"go.uber.org/zap"
)

// DefaultTopK is the number of snippets returned when the caller does not ask
// for a specific count.
const DefaultTopK = 3

// Retriever returns ranked or verbatim context snippets for a user's query.
// An empty result means "no context available" and is never an error:
// unknown users, off-domain queries, and upstream embedding failures all
// yield empty so the conversation can proceed without context.
type Retriever interface {
	RetrieveContext(ctx context.Context, userID, query string, topK int) []models.ContextSnippet
}

// SimilarityRetriever embeds the query and ranks stored chunks by cosine
// similarity against their embeddings.
type SimilarityRetriever struct {
	store    *store.DocumentStore
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewSimilarityRetriever creates a similarity-mode retriever.
func NewSimilarityRetriever(s *store.DocumentStore, e embedding.Embedder, logger *zap.Logger) *SimilarityRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimilarityRetriever{store: s, embedder: e, logger: logger}
}

// RetrieveContext returns the topK most similar stored chunks, descending by
// score, ties kept in insertion order.
func (r *SimilarityRetriever) RetrieveContext(ctx context.Context, userID, query string, topK int) []models.ContextSnippet {
	docs := r.store.Retrieve(userID)
	if len(docs) == 0 {
		r.logger.Debug("no documents for user", zap.String("user_id", userID))
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, returning no context",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}

	type scored struct {
		doc   models.Document
		score float64
	}
	scores := make([]scored, len(docs))
	for i, doc := range docs {
		scores[i] = scored{doc: doc, score: CosineSimilarity(queryVec, doc.Embedding)}
	}
	// Stable: equal scores stay in insertion order.
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if topK > len(scores) {
		topK = len(scores)
	}
	snippets := make([]models.ContextSnippet, topK)
	for i := 0; i < topK; i++ {
		snippets[i] = models.ContextSnippet{
			Text:       scores[i].doc.Text,
			Score:      scores[i].score,
			Filename:   scores[i].doc.Filename,
			UploadDate: scores[i].doc.UploadDate,
		}
	}
	r.logger.Debug("context retrieved",
		zap.String("user_id", userID),
		zap.Int("snippets", len(snippets)),
	)
	return snippets
}

// FullTextRetriever returns every stored document verbatim, gated on the
// query being in the healthcare domain. Used when no embedding backend is
// configured.
type FullTextRetriever struct {
	store  *store.DocumentStore
	filter *safety.Filter
	logger *zap.Logger
}

// NewFullTextRetriever creates a full-text-mode retriever.
func NewFullTextRetriever(s *store.DocumentStore, f *safety.Filter, logger *zap.Logger) *FullTextRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FullTextRetriever{store: s, filter: f, logger: logger}
}

// RetrieveContext returns all of the user's documents in insertion order.
// A non-empty query that is not healthcare-related returns empty without
// revealing any stored content. topK is ignored in this mode.
func (r *FullTextRetriever) RetrieveContext(ctx context.Context, userID, query string, topK int) []models.ContextSnippet {
	if query != "" && !r.filter.IsHealthcareQuery(query) {
		r.logger.Debug("off-domain query rejected", zap.String("user_id", userID))
		return nil
	}
	docs := r.store.Retrieve(userID)
	if len(docs) == 0 {
		return nil
	}
	snippets := make([]models.ContextSnippet, len(docs))
	for i, doc := range docs {
		snippets[i] = models.ContextSnippet{
			Text:       doc.Text,
			Filename:   doc.Filename,
			UploadDate: doc.UploadDate,
		}
	}
	return snippets
}

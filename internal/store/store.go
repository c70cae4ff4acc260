// Package store provides the per-user in-memory document collection.
// Contents live for the process lifetime only; a restart discards them.
package store

import (
	"fmt"
	"sync"

	"github.com/hyperjump/kusuri/internal/models"
	"go.uber.org/zap"
)

// DocumentStore maps opaque user IDs to append-only document collections.
// Each collection is guarded by its own lock so concurrent uploads for the
// same user cannot assign duplicate indices. User IDs are never validated,
// only used as map keys.
type DocumentStore struct {
	mu         sync.RWMutex
	users      map[string]*userCollection
	dimensions int
	logger     *zap.Logger
}

type userCollection struct {
	mu   sync.Mutex
	docs []models.Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore(logger *zap.Logger) *DocumentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStore{
		users:  make(map[string]*userCollection),
		logger: logger,
	}
}

// Store appends docs to the user's collection, creating it if absent. Each
// document gets id "{userId}-{kind}-{index}" where index is the collection
// length at insertion; indices are monotonic per user and never reused.
// All embedded documents in a store must share one dimensionality (a single
// embedding model per store lifetime); a mismatch rejects the whole batch.
// Returns the number of documents stored.
func (s *DocumentStore) Store(userID, kind string, docs []models.Document) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}

	coll := s.collection(userID)
	coll.mu.Lock()
	defer coll.mu.Unlock()

	for i := range docs {
		if len(docs[i].Embedding) == 0 {
			continue
		}
		if err := s.checkDimensions(len(docs[i].Embedding)); err != nil {
			return 0, err
		}
	}

	for i := range docs {
		doc := docs[i]
		index := len(coll.docs)
		doc.ID = fmt.Sprintf("%s-%s-%d", userID, kind, index)
		doc.UserID = userID
		doc.ChunkIndex = i
		coll.docs = append(coll.docs, doc)
	}

	s.logger.Debug("documents stored",
		zap.String("user_id", userID),
		zap.String("kind", kind),
		zap.Int("count", len(docs)),
		zap.Int("collection_size", len(coll.docs)),
	)
	return len(docs), nil
}

// collection returns the user's collection, creating it if needed.
func (s *DocumentStore) collection(userID string) *userCollection {
	s.mu.RLock()
	coll, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return coll
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if coll, ok = s.users[userID]; ok {
		return coll
	}
	coll = &userCollection{}
	s.users[userID] = coll
	return coll
}

// checkDimensions pins the store to the first embedding dimensionality seen.
// Caller holds the collection lock; s.mu guards the dimension itself.
func (s *DocumentStore) checkDimensions(dims int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		s.dimensions = dims
		return nil
	}
	if dims != s.dimensions {
		return fmt.Errorf("embedding dimension mismatch: got %d, store has %d", dims, s.dimensions)
	}
	return nil
}

// Retrieve returns a copy of the user's documents in insertion order.
// Unknown users get an empty slice, never an error.
func (s *DocumentStore) Retrieve(userID string) []models.Document {
	s.mu.RLock()
	coll, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	coll.mu.Lock()
	defer coll.mu.Unlock()
	out := make([]models.Document, len(coll.docs))
	copy(out, coll.docs)
	return out
}

// Count returns the number of documents stored for userID.
func (s *DocumentStore) Count(userID string) int {
	s.mu.RLock()
	coll, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	coll.mu.Lock()
	defer coll.mu.Unlock()
	return len(coll.docs)
}

// UserCount returns the number of users with at least one stored document.
func (s *DocumentStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// TotalDocuments returns the number of documents across all users.
func (s *DocumentStore) TotalDocuments() int {
	s.mu.RLock()
	colls := make([]*userCollection, 0, len(s.users))
	for _, coll := range s.users {
		colls = append(colls, coll)
	}
	s.mu.RUnlock()
	total := 0
	for _, coll := range colls {
		coll.mu.Lock()
		total += len(coll.docs)
		coll.mu.Unlock()
	}
	return total
}

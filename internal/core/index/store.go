package index

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// Store persists indexed documents. All returns entries in insertion order.
type Store interface {
	Append(ctx context.Context, doc entity.IndexedDocument) error
	All(ctx context.Context) ([]entity.IndexedDocument, error)
	Len(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// MemoryStore is the process-lifetime default store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []entity.IndexedDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, doc entity.IndexedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return nil
}

// All returns a snapshot; later appends are not visible through it.
func (s *MemoryStore) All(_ context.Context) ([]entity.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.IndexedDocument(nil), s.docs...), nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	return nil
}

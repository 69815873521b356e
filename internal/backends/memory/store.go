package memory

import (
	"context"
	"folio/internal/types"
	"sync"
)

// Store keeps documents in process memory. It backs tests and local runs of the
// reference API.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]types.Document
}

func NewStore() *Store {
	return &Store{data: make(map[string]map[string]types.Document)}
}

func (s *Store) List(_ context.Context, resource string) ([]types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]types.Document, 0, len(s.data[resource]))
	for _, d := range s.data[resource] {
		docs = append(docs, d.Clone())
	}
	types.SortDocuments(docs)
	return docs, nil
}

func (s *Store) Get(_ context.Context, resource, id string) (types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[resource][id]
	if !ok {
		return nil, types.Err(types.ErrNotFound, nil, "%s/%s", resource, id)
	}
	return d.Clone(), nil
}

func (s *Store) Put(_ context.Context, resource string, doc types.Document) error {
	id := doc.ID()
	if id == "" {
		return types.Err(types.ErrPrecondition, nil, "%s: document without id", resource)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[resource]
	if !ok {
		m = make(map[string]types.Document)
		s.data[resource] = m
	}
	m[id] = doc.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, resource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[resource][id]; !ok {
		return types.Err(types.ErrNotFound, nil, "%s/%s", resource, id)
	}
	delete(s.data[resource], id)
	return nil
}

func (s *Store) Reorder(_ context.Context, resource string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.data[resource]
	if err := types.CheckPermutation(len(m), ids, func(id string) bool {
		_, ok := m[id]
		return ok
	}); err != nil {
		return types.Err(types.ErrInvalidOrder, err, "%s", resource)
	}
	for i, id := range ids {
		d := m[id].Clone()
		d["order"] = i
		m[id] = d
	}
	return nil
}

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	s.data = make(map[string]map[string]types.Document)
	s.mu.Unlock()
	return nil
}

package store

import (
	"context"
	"sync"

	"slotbot/internal/models"
)

// MemoryStore keeps booking documents in a process-local map. Used for
// tests and ephemeral runs; contents are lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]models.Booking
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]models.Booking)}
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, rec models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[conversationID] = append(s.docs[conversationID], rec)
	return nil
}

func (s *MemoryStore) ReplaceAll(_ context.Context, conversationID string, recs []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[conversationID] = append([]models.Booking(nil), recs...)
	return nil
}

func (s *MemoryStore) ReadAll(_ context.Context, conversationID string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := append([]models.Booking(nil), s.docs[conversationID]...)
	if err := validateRecords(recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *MemoryStore) RemoveAt(_ context.Context, conversationID string, index int) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.docs[conversationID]
	if index < 0 || index >= len(recs) {
		return nil, nil
	}
	removed := recs[index]
	s.docs[conversationID] = append(recs[:index], recs[index+1:]...)
	return &removed, nil
}

func (s *MemoryStore) Conversations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

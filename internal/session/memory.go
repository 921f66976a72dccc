package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexbotov/casino-engine/internal/domain"
)

// MemoryStore keeps sessions in process memory. Values are copied in and
// out so callers never share a session with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.GameSession
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.GameSession)}
}

func (m *MemoryStore) Create(_ context.Context, s *domain.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return &s, nil
}

func (m *MemoryStore) FindOpen(_ context.Context, playerID, gameID string) (*domain.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if s.PlayerID == playerID && s.GameID == gameID && s.Status == domain.GameSessionActive {
			return &s, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MemoryStore) Update(_ context.Context, s *domain.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, s.ID)
	}
	m.sessions[s.ID] = *s
	return nil
}

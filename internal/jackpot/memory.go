package jackpot

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps pools in process memory behind a mutex
type MemoryStore struct {
	mu    sync.Mutex
	pools map[string]decimal.Decimal
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pools: make(map[string]decimal.Decimal)}
}

func (m *MemoryStore) Ensure(_ context.Context, id string, seed decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[id]; !ok {
		m.pools[id] = seed
	}
	return nil
}

func (m *MemoryStore) Contribute(_ context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.pools[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	cur = cur.Add(amount)
	m.pools[id] = cur
	return cur, nil
}

func (m *MemoryStore) Claim(_ context.Context, id string, seed decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.pools[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	m.pools[id] = seed
	return cur, nil
}

func (m *MemoryStore) Amount(_ context.Context, id string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.pools[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	return cur, nil
}

func (m *MemoryStore) Snapshot(_ context.Context) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(m.pools))
	for id, amount := range m.pools {
		out[id] = amount
	}
	return out, nil
}

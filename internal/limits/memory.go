package limits

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps limits and activity in process memory
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]Record
	activity map[string][]Activity
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		activity: make(map[string][]Activity),
	}
}

func (m *MemoryStore) Load(_ context.Context, playerID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[playerID]
	if !ok {
		return nil, nil
	}
	if rec.Pending != nil {
		p := *rec.Pending
		rec.Pending = &p
	}
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, playerID string, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := *rec
	if rec.Pending != nil {
		p := *rec.Pending
		saved.Pending = &p
	}
	m.records[playerID] = saved
	return nil
}

func (m *MemoryStore) AddActivity(_ context.Context, playerID string, a Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[playerID] = append(prune(m.activity[playerID], a.At.Add(-Window)), a)
	return nil
}

// prune drops the leading entries at or before since
func prune(entries []Activity, since time.Time) []Activity {
	cut := 0
	for cut < len(entries) && !entries[cut].At.After(since) {
		cut++
	}
	return entries[cut:]
}

// Totals also drops activity at or before since
func (m *MemoryStore) Totals(_ context.Context, playerID, currency string, since time.Time) (wagered, won int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := prune(m.activity[playerID], since)
	m.activity[playerID] = entries

	for _, a := range entries {
		if a.Currency == currency {
			wagered += a.Bet
			won += a.Win
		}
	}
	return wagered, won, nil
}

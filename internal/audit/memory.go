package audit

import (
	"context"
	"sync"

	"github.com/alexbotov/casino-engine/internal/domain"
)

// Memory keeps records and events in process memory
type Memory struct {
	mu      sync.Mutex
	records []*domain.GameRecord
	events  []*domain.AuditEvent
}

// NewMemory creates an empty in-memory recorder
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, rec *domain.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) Log(_ context.Context, eventType string, severity domain.EventSeverity, description string, data interface{}, opts ...EventOption) error {
	event := NewEvent(eventType, severity, description, data, opts...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Records returns a copy of the stored records in insertion order
func (m *Memory) Records() []*domain.GameRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.GameRecord(nil), m.records...)
}

// Events returns the stored events of the given type, or all when empty
func (m *Memory) Events(eventType string) []*domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.AuditEvent
	for _, e := range m.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// GetRecords returns the stored records matching filter, newest first
func (m *Memory) GetRecords(_ context.Context, filter RecordFilter) ([]*domain.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.GameRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if filter.PlayerID != "" && rec.PlayerID != filter.PlayerID {
			continue
		}
		if filter.GameID != "" && rec.GameID != filter.GameID {
			continue
		}
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if !filter.From.IsZero() && rec.CreatedAt.Before(filter.From) {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

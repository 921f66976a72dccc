package paytable

import (
	"fmt"
	"sync"

	"github.com/alexbotov/casino-engine/internal/domain"
)

// Registry holds paytables in declaration order
type Registry struct {
	mu     sync.RWMutex
	order  []string
	tables map[string]*Paytable
}

// NewRegistry creates a registry and registers the given paytables
func NewRegistry(tables ...*Paytable) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Paytable)}
	for _, p := range tables {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a paytable
func (r *Registry) Register(p *Paytable) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGame, p.ID)
	}
	r.tables[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Get returns the paytable with the given id
func (r *Registry) Get(id string) (*Paytable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGameNotFound, id)
	}
	return p, nil
}

// All returns every paytable in registration order
func (r *Registry) All() []*Paytable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Paytable, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tables[id])
	}
	return out
}

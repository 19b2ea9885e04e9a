package ticket

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// MemoryRegistry is a process-local Registry, used for local runs and tests.
type MemoryRegistry struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tickets: make(map[string]*Ticket)}
}

func (r *MemoryRegistry) GetTicket(_ context.Context, id string) (*Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

func (r *MemoryRegistry) AddTicket(_ context.Context, t *Ticket) error {
	if t == nil || t.ID == "" {
		return errors.New("ticket id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tickets[t.ID] = t
	return nil
}

func (r *MemoryRegistry) DeleteTicket(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tickets, id)
	return nil
}

package repository

import (
	"context"
	"sync"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// MemoryEventRepo serves events from memory.
type MemoryEventRepo struct {
	mu     sync.RWMutex
	events map[string]model.Event
}

// NewMemoryEventRepo returns a repo holding the given events.
func NewMemoryEventRepo(events ...model.Event) *MemoryEventRepo {
	r := &MemoryEventRepo{events: make(map[string]model.Event, len(events))}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *MemoryEventRepo) GetEvent(_ context.Context, id string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.TicketTypes = append([]model.TicketType(nil), e.TicketTypes...)
	return &e, nil
}

// Create adds an event.  ErrConflict is returned for a duplicate id.
func (r *MemoryEventRepo) Create(_ context.Context, ev *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ev.ID]; ok {
		return ErrConflict
	}
	r.events[ev.ID] = *ev
	return nil
}

package ingest

import (
	"context"
	"sync"

	"github.com/waypost/waypost/api/types/v1alpha1"
)

// maxMemoryEvents bounds the per-category history held by the in-memory
// repository.
const maxMemoryEvents = 10000

// MemoryRepository keeps accepted events in memory. It is the default store
// for waypostd when no database is configured.
type MemoryRepository struct {
	mu     sync.Mutex
	events map[v1alpha1.Category][]StoredEvent
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[v1alpha1.Category][]StoredEvent)}
}

// SaveEvents implements Repository.SaveEvents.
func (r *MemoryRepository) SaveEvents(ctx context.Context, events []StoredEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range events {
		list := append(r.events[event.Category], event)
		if len(list) > maxMemoryEvents {
			list = list[len(list)-maxMemoryEvents:]
		}
		r.events[event.Category] = list
	}
	return nil
}

// RecentEvents implements Repository.RecentEvents.
func (r *MemoryRepository) RecentEvents(ctx context.Context, category v1alpha1.Category, limit int) ([]StoredEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.events[category]
	if len(list) > limit {
		list = list[len(list)-limit:]
	}

	// Newest first
	out := make([]StoredEvent, len(list))
	for i, event := range list {
		out[len(list)-1-i] = event
	}
	return out, nil
}

package chain

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicate is returned when registering a network ID twice.
var ErrDuplicate = errors.New("chain: network already registered")

// Registry holds query clients by network ID.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Query
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Query),
	}
}

// Register adds a client under its ID.
func (r *Registry) Register(q Query) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := q.ID()
	if _, exists := r.clients[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, id)
	}
	r.clients[id] = q
	return nil
}

// Get returns the client registered under id.
func (r *Registry) Get(id string) (Query, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.clients[id]
	return q, ok
}

// IDs returns the registered network IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

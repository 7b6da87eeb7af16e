package cursor

import (
	"context"
	"sync"
)

// Memory is an in-memory Cursor implementation.
// Suitable for development and testing; data is lost on restart.
type Memory struct {
	mu        sync.RWMutex
	positions map[string]Position
}

// NewMemory creates a new in-memory cursor.
func NewMemory() *Memory {
	return &Memory{
		positions: make(map[string]Position),
	}
}

// Load returns the saved position for key.
func (m *Memory) Load(_ context.Context, key string) (Position, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[key]
	return pos, ok, nil
}

// Save stores the position for key.
func (m *Memory) Save(_ context.Context, key string, pos Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[key] = pos
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

package connectors

import (
	"context"
	"sync"
)

// MemoryRepo keeps the registry in process memory.
type MemoryRepo struct {
	mu   sync.Mutex
	list []Connector
}

// NewMemoryRepo constructs a MemoryRepo seeded with defaults.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{list: defaults()}
}

// Load returns the registry.
func (r *MemoryRepo) Load(ctx context.Context) ([]Connector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Connector, len(r.list))
	copy(out, r.list)
	return out, nil
}

// Save replaces the registry.
func (r *MemoryRepo) Save(ctx context.Context, list []Connector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = make([]Connector, len(list))
	copy(r.list, list)
	return nil
}

package meetings

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo. Aggregates are deep
// copied on the way in and out so callers never share slices with the store.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Meeting
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Meeting)}
}

func cloneMeeting(m Meeting) Meeting {
	raw, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out Meeting
	if err := json.Unmarshal(raw, &out); err != nil {
		return m
	}
	// Version is not part of the wire shape.
	out.Version = m.Version
	return out
}

// Create stores a new meeting.
func (r *MemoryRepo) Create(ctx context.Context, m Meeting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[m.ID] = cloneMeeting(m)
	return nil
}

// GetByID returns a meeting by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.data[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	return cloneMeeting(m), nil
}

// List returns all meetings, newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Meeting, 0, len(r.data))
	for _, m := range r.data {
		out = append(out, cloneMeeting(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update persists changes to an existing meeting, guarded by its version.
func (r *MemoryRepo) Update(ctx context.Context, m Meeting) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.data[m.ID]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	if stored.Version != m.Version {
		return Meeting{}, ErrVersionConflict
	}
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	r.data[m.ID] = cloneMeeting(m)
	return cloneMeeting(m), nil
}

// Delete removes a meeting by ID.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

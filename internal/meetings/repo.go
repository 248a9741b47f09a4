package meetings

import "context"

// Repo defines persistence operations for meeting aggregates. Update checks
// the stored version against the one carried by the aggregate and bumps it,
// so interleaved read-modify-write cycles from another process surface as
// ErrVersionConflict instead of a lost update.
type Repo interface {
	Create(ctx context.Context, m Meeting) error
	GetByID(ctx context.Context, id string) (Meeting, error)
	List(ctx context.Context) ([]Meeting, error)
	Update(ctx context.Context, m Meeting) (Meeting, error)
	Delete(ctx context.Context, id string) error
}

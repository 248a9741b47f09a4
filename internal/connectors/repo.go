package connectors

import "context"

// Repo persists the connector registry. Load returns the full registry,
// seeding defaults when empty; Save replaces the stored flags.
type Repo interface {
	Load(ctx context.Context) ([]Connector, error)
	Save(ctx context.Context, list []Connector) error
}

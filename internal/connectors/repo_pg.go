package connectors

import (
	"context"
	"database/sql"
)

// PGRepo persists the registry in the connectors table.
type PGRepo struct {
	DB *sql.DB
}

// Load returns the stored registry, seeding defaults on first use.
func (r *PGRepo) Load(ctx context.Context) ([]Connector, error) {
	const query = `SELECT key, name, connected FROM connectors ORDER BY key ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Connector
	for rows.Next() {
		var c Connector
		if err := rows.Scan(&c.Key, &c.Name, &c.Connected); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		seeded := defaults()
		if err := r.Save(ctx, seeded); err != nil {
			return nil, err
		}
		return seeded, nil
	}
	return out, nil
}

// Save upserts every connector row.
func (r *PGRepo) Save(ctx context.Context, list []Connector) error {
	const query = `
INSERT INTO connectors (key, name, connected)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name, connected = EXCLUDED.connected`
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range list {
		if _, err := tx.ExecContext(ctx, query, c.Key, c.Name, c.Connected); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

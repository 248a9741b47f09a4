package meetings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Nested collections live in JSONB
// columns; only the fields the ranker filters on get their own columns.
type PGRepo struct {
	DB *sql.DB
}

const meetingColumns = `id, title, provider, meeting_date, owner, tags, participants, notes, agenda, actions, recording, insights, version, created_at, updated_at`

// Create inserts a new meeting.
func (r *PGRepo) Create(ctx context.Context, m Meeting) error {
	const query = `
INSERT INTO meetings (` + meetingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	cols, err := marshalMeeting(m)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		m.ID, m.Title, m.Provider, m.Date, m.Owner,
		cols.tags, cols.participants, cols.notes, cols.agenda, cols.actions,
		cols.recording, cols.insights,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetByID returns a meeting by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Meeting, error) {
	const query = `
SELECT ` + meetingColumns + `
FROM meetings
WHERE id = $1`
	m, err := scanMeeting(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, err
	}
	return m, nil
}

// List returns all meetings, newest first.
func (r *PGRepo) List(ctx context.Context) ([]Meeting, error) {
	const query = `
SELECT ` + meetingColumns + `
FROM meetings
ORDER BY created_at DESC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update persists changes to an existing meeting, guarded by its version.
func (r *PGRepo) Update(ctx context.Context, m Meeting) (Meeting, error) {
	const query = `
UPDATE meetings
SET title = $2, provider = $3, meeting_date = $4, owner = $5,
    tags = $6, participants = $7, notes = $8, agenda = $9, actions = $10,
    recording = $11, insights = $12,
    version = version + 1, updated_at = $13
WHERE id = $1 AND version = $14`

	cols, err := marshalMeeting(m)
	if err != nil {
		return Meeting{}, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, query,
		m.ID, m.Title, m.Provider, m.Date, m.Owner,
		cols.tags, cols.participants, cols.notes, cols.agenda, cols.actions,
		cols.recording, cols.insights,
		now, m.Version,
	)
	if err != nil {
		return Meeting{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Meeting{}, err
	}
	if affected == 0 {
		// Either the row is gone or another writer bumped the version.
		if _, getErr := r.GetByID(ctx, m.ID); errors.Is(getErr, ErrNotFound) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, ErrVersionConflict
	}
	m.Version++
	m.UpdatedAt = now
	return m, nil
}

// Delete removes a meeting by ID.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM meetings WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type meetingColumnsJSON struct {
	tags, participants, notes, agenda, actions, recording, insights []byte
}

func marshalMeeting(m Meeting) (meetingColumnsJSON, error) {
	var cols meetingColumnsJSON
	var err error
	marshal := func(dst *[]byte, v any, name string) {
		if err != nil {
			return
		}
		*dst, err = json.Marshal(v)
		if err != nil {
			err = fmt.Errorf("marshal %s: %w", name, err)
		}
	}
	marshal(&cols.tags, m.Tags, "tags")
	marshal(&cols.participants, m.Participants, "participants")
	marshal(&cols.notes, m.Notes, "notes")
	marshal(&cols.agenda, m.Agenda, "agenda")
	marshal(&cols.actions, m.Actions, "actions")
	marshal(&cols.recording, m.Recording, "recording")
	marshal(&cols.insights, m.Insights, "insights")
	return cols, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (Meeting, error) {
	var m Meeting
	var tags, participants, notes, agenda, actions, recording, insights []byte
	err := row.Scan(
		&m.ID, &m.Title, &m.Provider, &m.Date, &m.Owner,
		&tags, &participants, &notes, &agenda, &actions,
		&recording, &insights,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return Meeting{}, err
	}
	unmarshal := func(src []byte, dst any, name string) {
		if err != nil || len(src) == 0 {
			return
		}
		if uerr := json.Unmarshal(src, dst); uerr != nil {
			err = fmt.Errorf("unmarshal %s: %w", name, uerr)
		}
	}
	unmarshal(tags, &m.Tags, "tags")
	unmarshal(participants, &m.Participants, "participants")
	unmarshal(notes, &m.Notes, "notes")
	unmarshal(agenda, &m.Agenda, "agenda")
	unmarshal(actions, &m.Actions, "actions")
	unmarshal(recording, &m.Recording, "recording")
	unmarshal(insights, &m.Insights, "insights")
	if err != nil {
		return Meeting{}, err
	}
	if m.Insights.Status == "" {
		m.Insights = emptyInsights()
	}
	if m.Recording.Status == "" {
		m.Recording.Status = RecordingIdle
	}
	return m, nil
}

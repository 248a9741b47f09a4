package meetings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"saku-backend/internal/llm"
	"saku-backend/internal/rag"
	"saku-backend/internal/shared/metrics"
	"saku-backend/internal/shared/storage/object"
	"saku-backend/internal/shared/telemetry"
	"saku-backend/internal/uploads"
)

// Service contains business logic for meetings and their pipeline.
type Service struct {
	Repo        Repo
	Engine      *rag.Engine
	Uploads     *uploads.Manager
	Store       object.ObjectStore
	LLM         llm.Client
	Transcriber Transcriber

	locks *meetingLocks
}

// NewService constructs a Service.
func NewService(repo Repo, engine *rag.Engine, up *uploads.Manager, store object.ObjectStore, client llm.Client) *Service {
	return &Service{
		Repo:    repo,
		Engine:  engine,
		Uploads: up,
		Store:   store,
		LLM:     client,
		locks:   newMeetingLocks(),
	}
}

// CreateInput carries the fields accepted on meeting creation.
type CreateInput struct {
	Title        string
	Provider     string
	Date         string
	Owner        string
	Tags         []string
	Participants []string
}

// Create registers a new meeting.
func (s *Service) Create(ctx context.Context, in CreateInput) (Meeting, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Meeting{}, ErrInvalidInput
	}

	m := newMeeting(uuid.NewString(), title, strings.TrimSpace(in.Provider), time.Now().UTC())
	m.Date = strings.TrimSpace(in.Date)
	m.Owner = strings.TrimSpace(in.Owner)
	if len(in.Tags) > 0 {
		m.Tags = in.Tags
	}
	if len(in.Participants) > 0 {
		m.Participants = in.Participants
	}

	if err := s.Repo.Create(ctx, m); err != nil {
		return Meeting{}, err
	}
	return m, nil
}

// Get returns a meeting by ID.
func (s *Service) Get(ctx context.Context, id string) (Meeting, error) {
	return s.Repo.GetByID(ctx, id)
}

// PatchInput carries optional top-level field updates. Nil pointers leave
// the field untouched.
type PatchInput struct {
	Title        *string
	Provider     *string
	Date         *string
	Owner        *string
	Tags         *[]string
	Participants *[]string
}

// Patch applies partial updates to a meeting's top-level fields.
func (s *Service) Patch(ctx context.Context, id string, in PatchInput) (Meeting, error) {
	return s.mutate(ctx, id, func(m *Meeting) error {
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return ErrInvalidInput
			}
			m.Title = title
		}
		if in.Provider != nil {
			m.Provider = strings.TrimSpace(*in.Provider)
		}
		if in.Date != nil {
			m.Date = strings.TrimSpace(*in.Date)
		}
		if in.Owner != nil {
			m.Owner = strings.TrimSpace(*in.Owner)
		}
		if in.Tags != nil {
			m.Tags = *in.Tags
		}
		if in.Participants != nil {
			m.Participants = *in.Participants
		}
		return nil
	})
}

// Delete removes a meeting. Indexed transcript chunks are cleaned up best
// effort; a cleanup failure never blocks the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.acquire(id)
	defer unlock()

	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.Engine.Index.Delete(ctx, rag.Metadata{"doc_id": TranscriptDocID(id)}); err != nil {
		metrics.IncIndexCleanupFailed()
		telemetry.Warn("index cleanup failed", map[string]any{
			"meeting_id": id,
			"doc_id":     TranscriptDocID(id),
			"error":      err.Error(),
		})
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.locks.forget(id)
	return nil
}

// AddNote appends a note to a meeting.
func (s *Service) AddNote(ctx context.Context, meetingID, text string) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, ErrInvalidInput
	}
	note := Note{ID: uuid.NewString(), Text: text, CreatedAt: time.Now().UTC()}
	_, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		m.Notes = append(m.Notes, note)
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

// DeleteNote removes a note by ID.
func (s *Service) DeleteNote(ctx context.Context, meetingID, noteID string) error {
	_, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		for i, n := range m.Notes {
			if n.ID == noteID {
				m.Notes = append(m.Notes[:i], m.Notes[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
	return err
}

// AddAgendaItem appends an agenda item to a meeting.
func (s *Service) AddAgendaItem(ctx context.Context, meetingID, text string) (AgendaItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return AgendaItem{}, ErrInvalidInput
	}
	item := AgendaItem{ID: uuid.NewString(), Text: text, CreatedAt: time.Now().UTC()}
	_, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		m.Agenda = append(m.Agenda, item)
		return nil
	})
	if err != nil {
		return AgendaItem{}, err
	}
	return item, nil
}

// DeleteAgendaItem removes an agenda item by ID.
func (s *Service) DeleteAgendaItem(ctx context.Context, meetingID, itemID string) error {
	_, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		for i, item := range m.Agenda {
			if item.ID == itemID {
				m.Agenda = append(m.Agenda[:i], m.Agenda[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
	return err
}

// ActionInput carries the fields accepted on action creation and update.
type ActionInput struct {
	Title    string
	Assignee string
	Due      string
}

// AddAction appends an action to a meeting.
func (s *Service) AddAction(ctx context.Context, meetingID string, in ActionInput) (Action, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Action{}, ErrInvalidInput
	}
	action := Action{
		ID:        uuid.NewString(),
		Title:     title,
		Assignee:  strings.TrimSpace(in.Assignee),
		Due:       strings.TrimSpace(in.Due),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		m.Actions = append(m.Actions, action)
		return nil
	})
	if err != nil {
		return Action{}, err
	}
	return action, nil
}

// ActionPatch carries optional field updates for an action.
type ActionPatch struct {
	Title    *string
	Done     *bool
	Assignee *string
	Due      *string
}

// UpdateAction applies partial updates to an action.
func (s *Service) UpdateAction(ctx context.Context, meetingID, actionID string, in ActionPatch) (Action, error) {
	var updated Action
	_, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		for i := range m.Actions {
			if m.Actions[i].ID != actionID {
				continue
			}
			if in.Title != nil {
				title := strings.TrimSpace(*in.Title)
				if title == "" {
					return ErrInvalidInput
				}
				m.Actions[i].Title = title
			}
			if in.Done != nil {
				m.Actions[i].Done = *in.Done
			}
			if in.Assignee != nil {
				m.Actions[i].Assignee = strings.TrimSpace(*in.Assignee)
			}
			if in.Due != nil {
				m.Actions[i].Due = strings.TrimSpace(*in.Due)
			}
			updated = m.Actions[i]
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return Action{}, err
	}
	return updated, nil
}

// DeleteAction removes an action by ID.
func (s *Service) DeleteAction(ctx context.Context, meetingID, actionID string) error {
	_, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		for i, a := range m.Actions {
			if a.ID == actionID {
				m.Actions = append(m.Actions[:i], m.Actions[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
	return err
}

// mutate runs a read-modify-write cycle under the meeting's lock.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Meeting) error) (Meeting, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	if err := fn(&m); err != nil {
		return Meeting{}, err
	}
	return s.Repo.Update(ctx, m)
}

package meetings

import "time"

// Recording statuses. Monotonic forward; only a transcript delete moves the
// status back (to uploaded).
const (
	RecordingIdle         = "idle"
	RecordingUploaded     = "uploaded"
	RecordingTranscribing = "transcribing"
	RecordingTranscribed  = "transcribed"
)

// Insights statuses.
const (
	InsightsIdle      = "idle"
	InsightsAnalyzing = "analyzing"
	InsightsReady     = "ready"
)

// Meeting is the aggregate root. All nested state is persisted and mutated
// through read-modify-write cycles serialized per meeting id.
type Meeting struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Provider     string       `json:"provider"`
	Date         string       `json:"date,omitempty"`
	Owner        string       `json:"owner,omitempty"`
	Tags         []string     `json:"tags"`
	Participants []string     `json:"participants"`
	Notes        []Note       `json:"notes"`
	Agenda       []AgendaItem `json:"agenda"`
	Actions      []Action     `json:"actions"`
	Recording    Recording    `json:"recording"`
	Insights     Insights     `json:"insights"`
	Version      int64        `json:"-"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Recording tracks the uploaded media and its transcription state. ObjectURI
// is the only link between a meeting and stored bytes.
type Recording struct {
	Status          string  `json:"status"`
	ObjectURI       string  `json:"objectUri,omitempty"`
	Size            int64   `json:"size,omitempty"`
	ContentType     string  `json:"contentType,omitempty"`
	DurationSec     float64 `json:"duration,omitempty"`
	TranscriptDocID string  `json:"transcriptDocId,omitempty"`
	TranscriptText  string  `json:"transcriptText,omitempty"`
}

// Insights is the AI-derived summary block. Edited is set only by explicit
// user edits and survives re-runs.
type Insights struct {
	Status           string            `json:"status"`
	Summary          string            `json:"summary"`
	Chapters         []Chapter         `json:"chapters"`
	Highlights       []Highlight       `json:"highlights"`
	KeyQuestions     []string          `json:"keyQuestions"`
	ExtractedActions []ExtractedAction `json:"extractedActions"`
	Edited           bool              `json:"edited"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Chapter marks a section of the recording.
type Chapter struct {
	Title    string `json:"title"`
	StartSec int    `json:"startSec"`
}

// Highlight calls out a notable moment.
type Highlight struct {
	Label    string `json:"label"`
	StartSec int    `json:"startSec"`
	Text     string `json:"text"`
}

// ExtractedAction is an action item derived from the transcript.
type ExtractedAction struct {
	Title    string `json:"title"`
	Assignee string `json:"assignee,omitempty"`
	Due      string `json:"due,omitempty"`
}

// Note is a free-text user note.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// AgendaItem is a planned discussion point.
type AgendaItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Action is a user-entered task, optionally linked to a calendar event.
type Action struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Done            bool      `json:"done"`
	Assignee        string    `json:"assignee,omitempty"`
	Due             string    `json:"due,omitempty"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// emptyInsights is the idle shape returned before any run.
func emptyInsights() Insights {
	return Insights{
		Status:           InsightsIdle,
		Chapters:         []Chapter{},
		Highlights:       []Highlight{},
		KeyQuestions:     []string{},
		ExtractedActions: []ExtractedAction{},
	}
}

// newMeeting initializes an aggregate with empty collections so JSON renders
// arrays rather than nulls.
func newMeeting(id, title, provider string, now time.Time) Meeting {
	return Meeting{
		ID:           id,
		Title:        title,
		Provider:     provider,
		Tags:         []string{},
		Participants: []string{},
		Notes:        []Note{},
		Agenda:       []AgendaItem{},
		Actions:      []Action{},
		Recording:    Recording{Status: RecordingIdle},
		Insights:     emptyInsights(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TranscriptDocID is the index doc id owning a meeting's transcript chunks.
func TranscriptDocID(meetingID string) string {
	return "meeting-" + meetingID + "-transcript"
}

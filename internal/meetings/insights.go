package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"saku-backend/internal/rag"
	"saku-backend/internal/shared/metrics"
	"saku-backend/internal/shared/telemetry"
	"saku-backend/internal/shared/util"
)

const (
	fallbackSummaryLimit = 400
	maxFallbackActions   = 3
	maxNoteHighlights    = 3
	transcriptPromptCap  = 15000
	notesPromptCap       = 2000
)

// RunInsights generates the insights block for a meeting. The step always
// reports success: any upstream or parse failure is absorbed into the
// deterministic fallback. Edited survives re-runs; only explicit user edits
// set it.
func (s *Service) RunInsights(ctx context.Context, meetingID string) (Insights, error) {
	unlock := s.locks.acquire(meetingID)
	defer unlock()

	start := time.Now()

	m, err := s.Repo.GetByID(ctx, meetingID)
	if err != nil {
		return Insights{}, err
	}

	m.Insights.Status = InsightsAnalyzing
	m, err = s.Repo.Update(ctx, m)
	if err != nil {
		return Insights{}, err
	}

	transcript := s.gatherTranscript(ctx, m)
	notes := joinNotes(m.Notes)

	generated, genErr := s.generateInsights(ctx, m, transcript, notes)
	if genErr != nil {
		metrics.IncInsightFallback()
		telemetry.Warn("insight generation degraded to fallback", map[string]any{
			"meeting_id": m.ID,
			"error":      genErr.Error(),
		})
		generated = fallbackInsights(m, transcript, notes)
	}

	generated.Status = InsightsReady
	generated.Edited = m.Insights.Edited
	generated.UpdatedAt = time.Now().UTC()
	m.Insights = generated

	m, err = s.Repo.Update(ctx, m)
	if err != nil {
		return Insights{}, err
	}

	metrics.IncInsightRun()
	metrics.ObserveInsightsDurationMs(float64(time.Since(start).Milliseconds()))
	return m.Insights, nil
}

// GetInsights returns the insights block; the idle empty shape before any
// run.
func (s *Service) GetInsights(ctx context.Context, meetingID string) (Insights, error) {
	m, err := s.Repo.GetByID(ctx, meetingID)
	if err != nil {
		return Insights{}, err
	}
	return m.Insights, nil
}

// InsightsEdit carries user edits to the insights block. Nil fields stay
// untouched.
type InsightsEdit struct {
	Summary          *string
	Chapters         *[]Chapter
	Highlights       *[]Highlight
	KeyQuestions     *[]string
	ExtractedActions *[]ExtractedAction
}

// EditInsights applies user edits and marks the block edited.
func (s *Service) EditInsights(ctx context.Context, meetingID string, in InsightsEdit) (Insights, error) {
	m, err := s.mutate(ctx, meetingID, func(m *Meeting) error {
		if in.Summary != nil {
			m.Insights.Summary = *in.Summary
		}
		if in.Chapters != nil {
			m.Insights.Chapters = *in.Chapters
		}
		if in.Highlights != nil {
			m.Insights.Highlights = *in.Highlights
		}
		if in.KeyQuestions != nil {
			m.Insights.KeyQuestions = *in.KeyQuestions
		}
		if in.ExtractedActions != nil {
			m.Insights.ExtractedActions = *in.ExtractedActions
		}
		m.Insights.Edited = true
		m.Insights.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return Insights{}, err
	}
	return m.Insights, nil
}

// gatherTranscript returns the stored transcript text, or reconstructs it
// from the index in chunk order when only the chunks survive.
func (s *Service) gatherTranscript(ctx context.Context, m Meeting) string {
	if m.Recording.TranscriptText != "" {
		return m.Recording.TranscriptText
	}
	if m.Recording.TranscriptDocID == "" {
		return ""
	}

	records, err := s.Engine.Index.Get(ctx, rag.Metadata{"doc_id": m.Recording.TranscriptDocID})
	if err != nil || len(records) == 0 {
		return ""
	}
	sort.Slice(records, func(i, j int) bool {
		return chunkIndexOf(records[i].Meta) < chunkIndexOf(records[j].Meta)
	})
	parts := make([]string, len(records))
	for i, rec := range records {
		parts[i] = rec.Text
	}
	return strings.Join(parts, "\n")
}

// insightsPayload is the fixed JSON shape requested from the model. Anything
// that does not parse into it goes down the fallback path.
type insightsPayload struct {
	Summary          string            `json:"summary"`
	Chapters         []Chapter         `json:"chapters"`
	Highlights       []Highlight       `json:"highlights"`
	KeyQuestions     []string          `json:"keyQuestions"`
	ExtractedActions []ExtractedAction `json:"extractedActions"`
}

func (s *Service) generateInsights(ctx context.Context, m Meeting, transcript, notes string) (Insights, error) {
	prompt := buildInsightsPrompt(m, transcript, notes)

	raw, err := s.LLM.CompleteJSON(ctx, prompt)
	if err != nil {
		return Insights{}, err
	}

	var payload insightsPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return Insights{}, fmt.Errorf("parse insights response: %w", err)
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return Insights{}, fmt.Errorf("insights response missing summary")
	}

	out := Insights{
		Summary:          payload.Summary,
		Chapters:         payload.Chapters,
		Highlights:       payload.Highlights,
		KeyQuestions:     payload.KeyQuestions,
		ExtractedActions: payload.ExtractedActions,
	}
	if out.Chapters == nil {
		out.Chapters = []Chapter{}
	}
	if out.Highlights == nil {
		out.Highlights = []Highlight{}
	}
	if out.KeyQuestions == nil {
		out.KeyQuestions = []string{}
	}
	if out.ExtractedActions == nil {
		out.ExtractedActions = []ExtractedAction{}
	}
	return out, nil
}

func buildInsightsPrompt(m Meeting, transcript, notes string) string {
	transcript = util.Truncate(transcript, transcriptPromptCap)
	notes = util.Truncate(notes, notesPromptCap)
	if notes == "" {
		notes = "None"
	}

	var b strings.Builder
	b.WriteString("You are an expert meeting analyst. Analyze the following meeting and generate insights.\n\n")
	b.WriteString("Meeting Title: ")
	b.WriteString(m.Title)
	b.WriteString("\nParticipants: ")
	if len(m.Participants) > 0 {
		b.WriteString(strings.Join(m.Participants, ", "))
	} else {
		b.WriteString("Unknown")
	}
	b.WriteString("\n\nTRANSCRIPT:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nADDITIONAL NOTES:\n")
	b.WriteString(notes)
	b.WriteString("\n\nGenerate a JSON response with exactly this structure:\n")
	b.WriteString(`{
  "summary": "2-3 sentence overview of the meeting",
  "chapters": [{"title": "Chapter title", "startSec": 0}],
  "highlights": [{"label": "Short label", "startSec": 0, "text": "What happened"}],
  "keyQuestions": ["important question"],
  "extractedActions": [{"title": "task", "assignee": "person", "due": "YYYY-MM-DD"}]
}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Extract ONLY factual information from the transcript\n")
	b.WriteString("2. For action items, be specific and actionable\n")
	b.WriteString("3. Output ONLY valid JSON, no additional text\n")
	return b.String()
}

// extractJSONObject tolerates code fences and prose around the JSON object.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	if fenced, ok := strings.CutPrefix(raw, "```json"); ok {
		raw = fenced
	} else if fenced, ok := strings.CutPrefix(raw, "```"); ok {
		raw = fenced
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// fallbackInsights builds the deterministic degraded block: truncated
// summary, fixed chapters, note highlights, and the user's own actions
// mirrored back.
func fallbackInsights(m Meeting, transcript, notes string) Insights {
	source := strings.TrimSpace(transcript)
	if notes != "" {
		if source != "" {
			source += "\n\n"
		}
		source += notes
	}
	if source == "" {
		source = "Meeting: " + m.Title
	}

	highlights := []Highlight{}
	for i, line := range util.FirstNonEmptyLines(notes, maxNoteHighlights) {
		highlights = append(highlights, Highlight{
			Label:    fmt.Sprintf("Note %d", i+1),
			StartSec: 0,
			Text:     line,
		})
	}

	actions := []ExtractedAction{}
	for i, a := range m.Actions {
		if i == maxFallbackActions {
			break
		}
		actions = append(actions, ExtractedAction{Title: a.Title, Assignee: a.Assignee, Due: a.Due})
	}

	return Insights{
		Summary: util.Truncate(source, fallbackSummaryLimit),
		Chapters: []Chapter{
			{Title: "Introduction", StartSec: 0},
			{Title: "Discussion", StartSec: 60},
			{Title: "Wrap-up", StartSec: 120},
		},
		Highlights:       highlights,
		KeyQuestions:     []string{},
		ExtractedActions: actions,
	}
}

func joinNotes(notes []Note) string {
	if len(notes) == 0 {
		return ""
	}
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = n.Text
	}
	return strings.Join(parts, "\n")
}

// chunkIndexOf reads chunk_index from metadata, tolerating the float64
// produced by JSON round-trips.
func chunkIndexOf(meta rag.Metadata) int {
	switch v := meta["chunk_index"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

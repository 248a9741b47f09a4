package meetings

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"saku-backend/internal/rag"
	"saku-backend/internal/shared/metrics"
	"saku-backend/internal/shared/telemetry"
	"saku-backend/internal/uploads"
)

// Transcriber converts a media stream to text. Nil is a valid configuration;
// the pipeline then builds a deterministic placeholder transcript instead.
type Transcriber interface {
	Transcribe(ctx context.Context, r io.Reader, contentType string) (string, error)
}

// UploadURL issues a single-use upload slot bound to the meeting.
func (s *Service) UploadURL(ctx context.Context, meetingID, fileName, contentType string) (uploads.IssueResult, error) {
	if _, err := s.Repo.GetByID(ctx, meetingID); err != nil {
		return uploads.IssueResult{}, err
	}
	return s.Uploads.Issue(ctx, meetingID, fileName, contentType)
}

// AttachRecording links an object URI to the meeting and moves the recording
// to uploaded. URIs written through the upload manager carry their recorded
// size and content type; any externally supplied URI is accepted as-is.
// Attaching while a transcription is in flight is rejected.
func (s *Service) AttachRecording(ctx context.Context, meetingID, objectURI string) (Meeting, error) {
	objectURI = strings.TrimSpace(objectURI)
	if objectURI == "" {
		return Meeting{}, ErrInvalidInput
	}

	rec := Recording{Status: RecordingUploaded, ObjectURI: objectURI}
	if info, ok := s.Uploads.Uploaded(objectURI); ok {
		rec.Size = info.Size
		rec.ContentType = info.ContentType
	}
	if dur, ok := s.probeDuration(ctx, objectURI, rec.ContentType); ok {
		rec.DurationSec = dur
	}

	return s.mutate(ctx, meetingID, func(m *Meeting) error {
		if m.Recording.Status == RecordingTranscribing {
			return fmt.Errorf("%w: transcription in progress", ErrInvalidState)
		}
		// A new recording invalidates any previous transcript.
		if m.Recording.TranscriptDocID != "" {
			s.cleanupTranscript(ctx, m.ID)
		}
		m.Recording = rec
		return nil
	})
}

// Transcribe runs the recording through transcription and indexes the
// result. The status flips to transcribing before any work starts so
// progress pollers observe the intermediate state, then to transcribed once
// the chunks are indexed.
func (s *Service) Transcribe(ctx context.Context, meetingID string) (Meeting, error) {
	unlock := s.locks.acquire(meetingID)
	defer unlock()

	start := time.Now()

	m, err := s.Repo.GetByID(ctx, meetingID)
	if err != nil {
		return Meeting{}, err
	}
	if m.Recording.ObjectURI == "" || m.Recording.Status == RecordingIdle {
		return Meeting{}, ErrNoRecording
	}

	m.Recording.Status = RecordingTranscribing
	m, err = s.Repo.Update(ctx, m)
	if err != nil {
		return Meeting{}, err
	}

	transcript := s.transcribe(ctx, m)
	docID := TranscriptDocID(m.ID)

	chunks, err := s.Engine.UpsertTranscript(ctx, docID, transcript, rag.Metadata{"meeting_id": m.ID})
	if err != nil {
		// Roll the status back so pollers don't see a phantom in-flight run.
		m.Recording.Status = RecordingUploaded
		if _, rollbackErr := s.Repo.Update(ctx, m); rollbackErr != nil {
			telemetry.Warn("transcription status rollback failed", map[string]any{
				"meeting_id": m.ID,
				"error":      rollbackErr.Error(),
			})
		}
		return Meeting{}, fmt.Errorf("index transcript: %w", err)
	}

	m.Recording.Status = RecordingTranscribed
	m.Recording.TranscriptDocID = docID
	m.Recording.TranscriptText = transcript
	m, err = s.Repo.Update(ctx, m)
	if err != nil {
		return Meeting{}, err
	}

	metrics.IncTranscription()
	metrics.ObserveTranscribeDurationMs(float64(time.Since(start).Milliseconds()))
	telemetry.Info("transcription complete", map[string]any{
		"meeting_id": m.ID,
		"doc_id":     docID,
		"chunks":     chunks,
	})
	return m, nil
}

// DeleteTranscript removes the indexed transcript and clears the transcript
// fields. The recording returns to uploaded so the meeting can be
// transcribed again from the same bytes.
func (s *Service) DeleteTranscript(ctx context.Context, meetingID string) (Meeting, error) {
	return s.mutate(ctx, meetingID, func(m *Meeting) error {
		if m.Recording.TranscriptDocID == "" {
			return fmt.Errorf("%w: no transcript", ErrInvalidState)
		}
		s.cleanupTranscript(ctx, m.ID)
		m.Recording.TranscriptDocID = ""
		m.Recording.TranscriptText = ""
		m.Recording.Status = RecordingUploaded
		return nil
	})
}

// cleanupTranscript removes indexed transcript chunks best effort.
func (s *Service) cleanupTranscript(ctx context.Context, meetingID string) {
	docID := TranscriptDocID(meetingID)
	if err := s.Engine.Index.Delete(ctx, rag.Metadata{"doc_id": docID}); err != nil {
		metrics.IncIndexCleanupFailed()
		telemetry.Warn("index cleanup failed", map[string]any{
			"meeting_id": meetingID,
			"doc_id":     docID,
			"error":      err.Error(),
		})
	}
}

// transcribe produces the transcript text for a meeting. Real transcription
// runs only when a transcriber is configured and the bytes are locally
// readable; everything else falls back to a deterministic placeholder built
// from the meeting's own notes and agenda.
func (s *Service) transcribe(ctx context.Context, m Meeting) string {
	if s.Transcriber != nil {
		if key, ok := s.Store.KeyFromURI(m.Recording.ObjectURI); ok {
			if rc, err := s.Store.Open(ctx, key); err == nil {
				defer rc.Close()
				text, err := s.Transcriber.Transcribe(ctx, rc, m.Recording.ContentType)
				if err == nil && strings.TrimSpace(text) != "" {
					return text
				}
				if err != nil {
					telemetry.Warn("transcription failed, using placeholder", map[string]any{
						"meeting_id": m.ID,
						"error":      err.Error(),
					})
				}
			}
		}
	}
	return placeholderTranscript(m)
}

// placeholderTranscript assembles deterministic transcript text from what
// the user already typed in, so the rest of the pipeline has something to
// chunk and index.
func placeholderTranscript(m Meeting) string {
	var b strings.Builder
	b.WriteString("Meeting: ")
	b.WriteString(m.Title)
	b.WriteString(".")
	if m.Provider != "" {
		b.WriteString(" Held on ")
		b.WriteString(m.Provider)
		b.WriteString(".")
	}
	for _, item := range m.Agenda {
		b.WriteString("\n\nAgenda item: ")
		b.WriteString(item.Text)
	}
	for _, n := range m.Notes {
		b.WriteString("\n\nNote: ")
		b.WriteString(n.Text)
	}
	if len(m.Agenda) == 0 && len(m.Notes) == 0 {
		b.WriteString(" No agenda or notes were recorded for this meeting.")
	}
	return b.String()
}

// probeDuration inspects locally readable WAV bytes for their play length.
// Other formats and remote objects are skipped; duration stays zero.
func (s *Service) probeDuration(ctx context.Context, objectURI, contentType string) (float64, bool) {
	key, ok := s.Store.KeyFromURI(objectURI)
	if !ok {
		return 0, false
	}
	if contentType != "audio/wav" && !strings.HasSuffix(strings.ToLower(key), ".wav") {
		return 0, false
	}
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return 0, false
	}
	defer rc.Close()
	return wavDuration(rc)
}

// wavDuration reads a canonical 44-byte RIFF/WAVE header and derives the
// duration from the data size and byte rate.
func wavDuration(r io.Reader) (float64, bool) {
	header := make([]byte, 44)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, false
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, false
	}
	byteRate := uint32le(header[28:32])
	dataSize := uint32le(header[40:44])
	if byteRate == 0 {
		return 0, false
	}
	return float64(dataSize) / float64(byteRate), true
}

func uint32le(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

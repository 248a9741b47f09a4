package meetings

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"saku-backend/internal/rag"
)

func TestTranscribeWithoutRecording(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	m := mustCreate(t, s, CreateInput{Title: "Sync"})

	_, err := s.Transcribe(ctx, m.ID)
	if !errors.Is(err, ErrNoRecording) {
		t.Fatalf("expected ErrNoRecording, got %v", err)
	}
}

func TestAttachTranscribePipeline(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	m := mustCreate(t, s, CreateInput{Title: "Sync"})
	if _, err := s.AddNote(ctx, m.ID, "Discussed the launch checklist."); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	updated, err := s.AttachRecording(ctx, m.ID, "file:///tmp/a.mp4")
	if err != nil {
		t.Fatalf("AttachRecording: %v", err)
	}
	if updated.Recording.Status != RecordingUploaded {
		t.Fatalf("expected status uploaded, got %s", updated.Recording.Status)
	}
	if updated.Recording.ObjectURI != "file:///tmp/a.mp4" {
		t.Fatalf("unexpected objectUri %s", updated.Recording.ObjectURI)
	}

	done, err := s.Transcribe(ctx, m.ID)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if done.Recording.Status != RecordingTranscribed {
		t.Fatalf("expected status transcribed, got %s", done.Recording.Status)
	}
	want := "meeting-" + m.ID + "-transcript"
	if done.Recording.TranscriptDocID != want {
		t.Fatalf("expected transcriptDocId %s, got %s", want, done.Recording.TranscriptDocID)
	}
	if done.Recording.TranscriptText == "" {
		t.Fatalf("expected placeholder transcript text")
	}

	records, err := s.Engine.Index.Get(ctx, rag.Metadata{"doc_id": want})
	if err != nil {
		t.Fatalf("index Get: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("expected indexed transcript chunks")
	}
	for _, rec := range records {
		idx := chunkIndexOf(rec.Meta)
		if got := chunkMetaInt(rec.Meta, "start_sec"); got != idx*30 {
			t.Fatalf("chunk %d: expected start_sec %d, got %d", idx, idx*30, got)
		}
		if got := chunkMetaInt(rec.Meta, "end_sec"); got != idx*30+30 {
			t.Fatalf("chunk %d: expected end_sec %d, got %d", idx, idx*30+30, got)
		}
		if id, _ := rec.Meta["meeting_id"].(string); id != m.ID {
			t.Fatalf("chunk %d: expected meeting_id %s, got %v", idx, m.ID, rec.Meta["meeting_id"])
		}
	}
}

type failingIndex struct {
	rag.Index
}

func (failingIndex) Upsert(ctx context.Context, ids []string, texts []string, metas []rag.Metadata) error {
	return errors.New("index unavailable")
}

func TestTranscribeIndexFailureRestoresUploaded(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	s.Engine = &rag.Engine{Index: failingIndex{Index: rag.NewMemoryIndex(rag.HashEmbedder{})}}
	m := mustCreate(t, s, CreateInput{Title: "Sync"})

	if _, err := s.AttachRecording(ctx, m.ID, "file:///tmp/a.mp4"); err != nil {
		t.Fatalf("AttachRecording: %v", err)
	}
	if _, err := s.Transcribe(ctx, m.ID); err == nil {
		t.Fatalf("expected transcribe failure")
	}

	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Recording.Status != RecordingUploaded {
		t.Fatalf("expected status uploaded after failed index, got %s", got.Recording.Status)
	}
	if got.Recording.TranscriptDocID != "" {
		t.Fatalf("unexpected transcriptDocId %s", got.Recording.TranscriptDocID)
	}
}

func TestDeleteTranscriptResetsToUploaded(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	m := mustCreate(t, s, CreateInput{Title: "Sync"})

	if _, err := s.AttachRecording(ctx, m.ID, "file:///tmp/a.mp4"); err != nil {
		t.Fatalf("AttachRecording: %v", err)
	}
	if _, err := s.Transcribe(ctx, m.ID); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	docID := TranscriptDocID(m.ID)
	updated, err := s.DeleteTranscript(ctx, m.ID)
	if err != nil {
		t.Fatalf("DeleteTranscript: %v", err)
	}
	if updated.Recording.Status != RecordingUploaded {
		t.Fatalf("expected status uploaded after transcript delete, got %s", updated.Recording.Status)
	}
	if updated.Recording.TranscriptDocID != "" || updated.Recording.TranscriptText != "" {
		t.Fatalf("expected cleared transcript fields, got %+v", updated.Recording)
	}

	records, err := s.Engine.Index.Get(ctx, rag.Metadata{"doc_id": docID})
	if err != nil {
		t.Fatalf("index Get: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected transcript chunks removed, found %d", len(records))
	}

	// The same recording can be transcribed again.
	if _, err := s.Transcribe(ctx, m.ID); err != nil {
		t.Fatalf("re-Transcribe: %v", err)
	}
}

func TestDeleteTranscriptWithoutTranscript(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	m := mustCreate(t, s, CreateInput{Title: "Sync"})

	_, err := s.DeleteTranscript(ctx, m.ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestAttachRecordingFromUploadManager(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	m := mustCreate(t, s, CreateInput{Title: "Sync"})

	res, err := s.UploadURL(ctx, m.ID, "audio.wav", "audio/wav")
	if err != nil {
		t.Fatalf("UploadURL: %v", err)
	}

	wav := buildWAV(t, 2, 16000)
	if _, _, err := s.Uploads.Consume(ctx, res.Token, bytes.NewReader(wav)); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	updated, err := s.AttachRecording(ctx, m.ID, res.ObjectURI)
	if err != nil {
		t.Fatalf("AttachRecording: %v", err)
	}
	if updated.Recording.Size != int64(len(wav)) {
		t.Fatalf("expected size %d from consumed registry, got %d", len(wav), updated.Recording.Size)
	}
	if updated.Recording.ContentType != "audio/wav" {
		t.Fatalf("expected content type audio/wav, got %s", updated.Recording.ContentType)
	}
	if updated.Recording.DurationSec < 1.9 || updated.Recording.DurationSec > 2.1 {
		t.Fatalf("expected ~2s duration from WAV probe, got %f", updated.Recording.DurationSec)
	}
}

func TestWAVDurationRejectsGarbage(t *testing.T) {
	if _, ok := wavDuration(strings.NewReader("not a wav file at all, just text padding to 44 bytes....")); ok {
		t.Fatalf("expected probe to reject non-WAV bytes")
	}
}

// buildWAV writes a canonical header plus silence for the given duration.
func buildWAV(t *testing.T, seconds, byteRate int) []byte {
	t.Helper()
	dataSize := seconds * byteRate
	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))  // mono
	binary.Write(buf, binary.LittleEndian, uint32(8000)) // sample rate
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func chunkMetaInt(meta rag.Metadata, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

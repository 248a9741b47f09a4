package uploads

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"saku-backend/internal/shared/storage/object"
	"saku-backend/internal/shared/storage/object/local"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(local.New(t.TempDir()))
	t.Cleanup(m.Close)
	return m
}

func TestIssueAndConsumeWritesObject(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	res, err := m.Issue(ctx, "meeting-1", "audio.wav", "audio/wav")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if res.Token == "" || res.ObjectURI == "" {
		t.Fatalf("expected token and objectURI, got %+v", res)
	}
	if res.Presigned {
		t.Fatalf("local store must not presign")
	}
	if res.ExpiresInSeconds != 1800 {
		t.Fatalf("expected 1800s TTL for local store, got %d", res.ExpiresInSeconds)
	}

	payload := "RIFF fake wav bytes"
	uri, info, err := m.Consume(ctx, res.Token, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if uri != res.ObjectURI {
		t.Fatalf("expected uri %s, got %s", res.ObjectURI, uri)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), info.Size)
	}
	if info.ContentType != "audio/wav" {
		t.Fatalf("expected content type audio/wav, got %s", info.ContentType)
	}

	got, ok := m.Uploaded(res.ObjectURI)
	if !ok {
		t.Fatalf("expected uploaded registry entry for %s", res.ObjectURI)
	}
	if got.Size != int64(len(payload)) {
		t.Fatalf("registry size mismatch: %d", got.Size)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	res, err := m.Issue(ctx, "meeting-1", "audio.wav", "audio/wav")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := m.Consume(ctx, res.Token, strings.NewReader("bytes")); err != nil {
		t.Fatalf("first Consume: %v", err)
	}
	_, _, err = m.Consume(ctx, res.Token, strings.NewReader("bytes"))
	if !errors.Is(err, ErrTokenConsumed) {
		t.Fatalf("expected ErrTokenConsumed, got %v", err)
	}
}

func TestConsumeExpiredToken(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	res, err := m.Issue(ctx, "meeting-1", "audio.wav", "audio/wav")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.mu.Lock()
	m.tickets[res.Token].expiresAt = time.Now().Add(-time.Second)
	m.mu.Unlock()

	_, _, err = m.Consume(ctx, res.Token, strings.NewReader("bytes"))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	// An expired token is removed, later attempts see not found.
	_, _, err = m.Consume(ctx, res.Token, strings.NewReader("bytes"))
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestConsumeUnknownToken(t *testing.T) {
	m := newTestManager(t)
	_, _, err := m.Consume(context.Background(), "nope", strings.NewReader("bytes"))
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestSweepDropsExpiredTickets(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	res, err := m.Issue(ctx, "meeting-1", "audio.wav", "audio/wav")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.mu.Lock()
	m.tickets[res.Token].expiresAt = time.Now().Add(-time.Minute)
	m.mu.Unlock()

	m.sweep(time.Now())

	m.mu.Lock()
	_, ok := m.tickets[res.Token]
	m.mu.Unlock()
	if ok {
		t.Fatalf("expected expired ticket to be swept")
	}
}

type flakyStore struct {
	object.ObjectStore
	failures int
}

func (f *flakyStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("disk full")
	}
	return f.ObjectStore.SaveWithKey(ctx, storageKey, contentType, r)
}

func TestConsumeFailedWriteKeepsTokenUsable(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{ObjectStore: local.New(t.TempDir()), failures: 1}
	m := NewManager(store)
	t.Cleanup(m.Close)

	res, err := m.Issue(ctx, "meeting-1", "audio.wav", "audio/wav")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := m.Consume(ctx, res.Token, strings.NewReader("bytes")); err == nil {
		t.Fatalf("expected write failure")
	}
	if _, ok := m.Uploaded(res.ObjectURI); ok {
		t.Fatalf("failed write must not register an upload")
	}

	uri, info, err := m.Consume(ctx, res.Token, strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("retry Consume: %v", err)
	}
	if uri != res.ObjectURI || info.Size != int64(len("bytes")) {
		t.Fatalf("retry result = %s %+v", uri, info)
	}
}

type presignStore struct {
	object.ObjectStore
	lastTTL time.Duration
}

func (p *presignStore) SignedWriteURL(ctx context.Context, storageKey, contentType string, ttl time.Duration) (string, error) {
	p.lastTTL = ttl
	return "https://bucket.example/" + storageKey + "?signed=1", nil
}

func TestIssuePresignedUsesShortTTL(t *testing.T) {
	store := &presignStore{ObjectStore: local.New(t.TempDir())}
	m := NewManager(store)
	t.Cleanup(m.Close)

	res, err := m.Issue(context.Background(), "meeting-1", "audio.wav", "audio/wav")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !res.Presigned {
		t.Fatalf("expected presigned result")
	}
	if res.ExpiresInSeconds != 600 {
		t.Fatalf("expected 600s TTL for presigned store, got %d", res.ExpiresInSeconds)
	}
	if !strings.HasPrefix(res.UploadURL, "https://bucket.example/") {
		t.Fatalf("unexpected upload url %s", res.UploadURL)
	}
	if store.lastTTL != 10*time.Minute {
		t.Fatalf("expected 10m presign ttl, got %s", store.lastTTL)
	}
}

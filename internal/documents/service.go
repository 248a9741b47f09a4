package documents

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"saku-backend/internal/extract"
	"saku-backend/internal/rag"
	"saku-backend/internal/shared/metrics"
	"saku-backend/internal/shared/telemetry"
)

// Service contains business logic for the document registry.
type Service struct {
	Repo   Repo
	Engine *rag.Engine
}

// IngestResult reports the outcome of an ingest operation.
type IngestResult struct {
	Doc    Document
	Chunks int
}

// IngestFile extracts text from an uploaded file, indexes it and records the
// document. The registry entry is written only after indexing succeeds so a
// listed document always has chunks behind it.
func (s *Service) IngestFile(ctx context.Context, fileName, mimeType string, data []byte) (IngestResult, error) {
	if fileName == "" {
		return IngestResult{}, ErrInvalidInput
	}

	text, err := extract.FromBytes(ctx, data, mimeType, fileName)
	if err != nil {
		return IngestResult{}, err
	}

	title := strings.TrimSpace(fileName)
	return s.ingest(ctx, title, text, rag.Metadata{"source": "upload", "file_name": fileName})
}

// IngestURL fetches a page, strips its markup and indexes the text.
func (s *Service) IngestURL(ctx context.Context, rawURL string) (IngestResult, error) {
	if strings.TrimSpace(rawURL) == "" {
		return IngestResult{}, ErrInvalidInput
	}

	text, err := extract.FromURL(ctx, rawURL)
	if err != nil {
		return IngestResult{}, err
	}

	return s.ingest(ctx, rawURL, text, rag.Metadata{"source": "url", "url": rawURL})
}

func (s *Service) ingest(ctx context.Context, title, text string, meta rag.Metadata) (IngestResult, error) {
	doc := Document{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	chunks, err := s.Engine.UpsertDocument(ctx, doc.ID, text, meta)
	if err != nil {
		return IngestResult{}, err
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return IngestResult{}, err
	}

	telemetry.Info("document ingested", map[string]any{
		"doc_id": doc.ID,
		"chunks": chunks,
	})
	return IngestResult{Doc: doc, Chunks: chunks}, nil
}

// List returns all registered documents.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.List(ctx)
}

// Delete removes a document and its indexed chunks. Index cleanup is best
// effort: a failure there leaves orphan chunks but still removes the registry
// entry, so the document disappears from listings.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.Engine.Index.Delete(ctx, rag.Metadata{"doc_id": id}); err != nil {
		metrics.IncIndexCleanupFailed()
		telemetry.Warn("index cleanup failed", map[string]any{
			"doc_id": id,
			"error":  err.Error(),
		})
	}

	return s.Repo.Delete(ctx, id)
}

package rag

import (
	"context"
	"fmt"

	"saku-backend/internal/shared/util"
)

const snippetLimit = 200

// Citation is the human-facing rendering of a retrieved chunk. Purely
// presentational; building citations never alters ranking.
type Citation struct {
	DocID      string `json:"docId"`
	ChunkIndex int    `json:"chunkIndex"`
	Snippet    string `json:"snippet"`
}

// Engine runs the chunk/index/retrieve cycle against an Index.
type Engine struct {
	Index Index
}

// UpsertDocument chunks the text and fully replaces the document's chunk set
// in the index. Re-upserting identical input is idempotent: chunks from any
// previous chunking of the same doc_id are removed first so a shorter chunk
// set leaves no stale stragglers. Returns the chunk count.
func (e *Engine) UpsertDocument(ctx context.Context, docID, text string, meta Metadata) (int, error) {
	return e.upsert(ctx, docID, text, meta, DocChunkSize, DocChunkOverlap)
}

// Transcript chunks carry synthetic sequential time ranges keyed off their
// position: chunk i covers [i*30s, i*30s+30s).
const transcriptWindowSec = 30

// UpsertTranscript indexes transcript text with the fine-grained chunk
// profile and tags each chunk with its synthetic time range.
func (e *Engine) UpsertTranscript(ctx context.Context, docID, text string, meta Metadata) (int, error) {
	return e.upsertWith(ctx, docID, text, meta, TranscriptChunkSize, TranscriptChunkOverlap, func(i int, m Metadata) {
		m["start_sec"] = i * transcriptWindowSec
		m["end_sec"] = i*transcriptWindowSec + transcriptWindowSec
	})
}

func (e *Engine) upsert(ctx context.Context, docID, text string, meta Metadata, size, overlap int) (int, error) {
	return e.upsertWith(ctx, docID, text, meta, size, overlap, nil)
}

func (e *Engine) upsertWith(ctx context.Context, docID, text string, meta Metadata, size, overlap int, decorate func(int, Metadata)) (int, error) {
	chunks := Chunk(text, size, overlap)

	if err := e.Index.Delete(ctx, Metadata{"doc_id": docID}); err != nil {
		return 0, fmt.Errorf("clear previous chunks for %s: %w", docID, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]string, len(chunks))
	metas := make([]Metadata, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("%s_%d", docID, i)
		m := Metadata{"doc_id": docID, "chunk_index": i}
		for k, v := range meta {
			if k == "doc_id" || k == "chunk_index" {
				continue
			}
			m[k] = v
		}
		if decorate != nil {
			decorate(i, m)
		}
		metas[i] = m
	}

	if err := e.Index.Upsert(ctx, ids, chunks, metas); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", docID, err)
	}
	return len(chunks), nil
}

// Query retrieves the topK most similar chunks. When a doc-id allowlist is
// supplied, only chunks belonging to those documents are eligible; the store
// cannot filter natively, so the engine over-fetches and filters client-side.
func (e *Engine) Query(ctx context.Context, text string, topK int, docIDs ...string) ([]Hit, error) {
	fetch := topK
	if len(docIDs) > 0 {
		fetch = topK * 3
	}
	hits, err := e.Index.Query(ctx, text, fetch)
	if err != nil {
		return nil, err
	}
	if len(docIDs) == 0 {
		return hits, nil
	}

	allowed := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		allowed[id] = struct{}{}
	}
	out := make([]Hit, 0, topK)
	for _, hit := range hits {
		docID, _ := hit.Meta["doc_id"].(string)
		if _, ok := allowed[docID]; !ok {
			continue
		}
		out = append(out, hit)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// FormatCitations renders hits as citations with a 200-character snippet.
func FormatCitations(hits []Hit) []Citation {
	citations := make([]Citation, 0, len(hits))
	for _, hit := range hits {
		docID, _ := hit.Meta["doc_id"].(string)
		citations = append(citations, Citation{
			DocID:      docID,
			ChunkIndex: metaInt(hit.Meta, "chunk_index"),
			Snippet:    util.Truncate(hit.Text, snippetLimit),
		})
	}
	return citations
}

// metaInt reads an integer metadata value, tolerating the float64 produced by
// JSON round-trips through the PG index.
func metaInt(meta Metadata, key string) int {
	switch v := meta[key].(type) {
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

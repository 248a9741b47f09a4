package rag

import "context"

// Metadata carries arbitrary chunk attributes. The engine always sets doc_id
// and chunk_index; callers may attach additional keys (meeting_id, time
// ranges, filenames).
type Metadata map[string]any

// Hit is a ranked query result.
type Hit struct {
	Text string
	Meta Metadata
}

// Record is a stored chunk returned by filtered fetches.
type Record struct {
	ID   string
	Text string
	Meta Metadata
}

// Index is the content-addressable chunk store. Embedding computation happens
// behind this interface; callers hand over plain text. Persistence and
// connection errors propagate to the caller. No retries happen here; each
// use site decides whether to degrade or surface the error.
type Index interface {
	// Upsert replaces any existing records with the same ids.
	Upsert(ctx context.Context, ids []string, texts []string, metas []Metadata) error
	// Query returns up to topK records ranked by semantic similarity. Tie
	// order is store-internal and must be treated as opaque.
	Query(ctx context.Context, text string, topK int) ([]Hit, error)
	// Get returns records whose metadata matches every key in filter.
	Get(ctx context.Context, filter Metadata) ([]Record, error)
	// Delete removes records whose metadata matches every key in filter.
	Delete(ctx context.Context, filter Metadata) error
}

// Embedder produces vector embeddings for texts, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

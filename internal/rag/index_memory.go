package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

type memoryRecord struct {
	id        string
	text      string
	meta      Metadata
	embedding []float32
	seq       uint64
}

// MemoryIndex is a process-local Index backed by a map and brute-force cosine
// similarity. It mirrors the PG-backed index closely enough to serve dev mode
// and tests.
type MemoryIndex struct {
	embedder Embedder

	mu      sync.RWMutex
	records map[string]*memoryRecord
	nextSeq uint64
}

// NewMemoryIndex constructs a MemoryIndex using the given embedder.
func NewMemoryIndex(embedder Embedder) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		records:  make(map[string]*memoryRecord),
	}
}

// Upsert replaces any existing records with the same ids.
func (x *MemoryIndex) Upsert(ctx context.Context, ids []string, texts []string, metas []Metadata) error {
	embeddings, err := x.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, id := range ids {
		seq := x.nextSeq
		if prev, ok := x.records[id]; ok {
			seq = prev.seq
		} else {
			x.nextSeq++
		}
		x.records[id] = &memoryRecord{
			id:        id,
			text:      texts[i],
			meta:      cloneMeta(metas[i]),
			embedding: embeddings[i],
			seq:       seq,
		}
	}
	return nil
}

// Query ranks all records by cosine similarity to the query embedding.
func (x *MemoryIndex) Query(ctx context.Context, text string, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	embeddings, err := x.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	query := embeddings[0]

	x.mu.RLock()
	candidates := make([]*memoryRecord, 0, len(x.records))
	for _, rec := range x.records {
		candidates = append(candidates, rec)
	}
	x.mu.RUnlock()

	scores := make(map[string]float64, len(candidates))
	for _, rec := range candidates {
		scores[rec.id] = cosineSimilarity(query, rec.embedding)
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := scores[candidates[i].id], scores[candidates[j].id]
		if si != sj {
			return si > sj
		}
		return candidates[i].seq < candidates[j].seq
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	hits := make([]Hit, 0, len(candidates))
	for _, rec := range candidates {
		hits = append(hits, Hit{Text: rec.text, Meta: cloneMeta(rec.meta)})
	}
	return hits, nil
}

// Get returns records whose metadata matches every key in filter, in
// insertion order.
func (x *MemoryIndex) Get(ctx context.Context, filter Metadata) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	var matched []*memoryRecord
	for _, rec := range x.records {
		if metaMatches(rec.meta, filter) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]Record, 0, len(matched))
	for _, rec := range matched {
		out = append(out, Record{ID: rec.id, Text: rec.text, Meta: cloneMeta(rec.meta)})
	}
	return out, nil
}

// Delete removes records whose metadata matches every key in filter.
func (x *MemoryIndex) Delete(ctx context.Context, filter Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, rec := range x.records {
		if metaMatches(rec.meta, filter) {
			delete(x.records, id)
		}
	}
	return nil
}

func metaMatches(meta, filter Metadata) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func cloneMeta(meta Metadata) Metadata {
	out := make(Metadata, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

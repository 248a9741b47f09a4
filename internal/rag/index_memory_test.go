package rag

import (
	"context"
	"testing"
)

func seedIndex(t *testing.T, x *MemoryIndex) {
	t.Helper()
	err := x.Upsert(context.Background(),
		[]string{"a_0", "a_1", "b_0"},
		[]string{"alpha one", "alpha two", "beta"},
		[]Metadata{
			{"doc_id": "a", "chunk_index": 0},
			{"doc_id": "a", "chunk_index": 1},
			{"doc_id": "b", "chunk_index": 0},
		},
	)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestMemoryIndexQueryTopK(t *testing.T) {
	x := NewMemoryIndex(HashEmbedder{})
	seedIndex(t, x)

	hits, err := x.Query(context.Background(), "alpha", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}

	hits, err = x.Query(context.Background(), "alpha", 0)
	if err != nil {
		t.Fatalf("Query zero: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits for topK 0, got %d", len(hits))
	}
}

func TestMemoryIndexGetFilterAndOrder(t *testing.T) {
	x := NewMemoryIndex(HashEmbedder{})
	seedIndex(t, x)

	records, err := x.Get(context.Background(), Metadata{"doc_id": "a"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ID != "a_0" || records[1].ID != "a_1" {
		t.Fatalf("insertion order broken: %s, %s", records[0].ID, records[1].ID)
	}

	records, err = x.Get(context.Background(), Metadata{"doc_id": "missing"})
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty result, got %d", len(records))
	}
}

func TestMemoryIndexDeleteByFilter(t *testing.T) {
	x := NewMemoryIndex(HashEmbedder{})
	seedIndex(t, x)

	if err := x.Delete(context.Background(), Metadata{"doc_id": "a"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	records, err := x.Get(context.Background(), Metadata{})
	if err != nil {
		t.Fatalf("Get all: %v", err)
	}
	if len(records) != 1 || records[0].ID != "b_0" {
		t.Fatalf("unexpected survivors: %#v", records)
	}
}

func TestMemoryIndexUpsertReplacesByID(t *testing.T) {
	x := NewMemoryIndex(HashEmbedder{})
	seedIndex(t, x)

	err := x.Upsert(context.Background(),
		[]string{"a_0"},
		[]string{"rewritten"},
		[]Metadata{{"doc_id": "a", "chunk_index": 0}},
	)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	records, err := x.Get(context.Background(), Metadata{"doc_id": "a"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Text != "rewritten" {
		t.Fatalf("text = %q", records[0].Text)
	}
}

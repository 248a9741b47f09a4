package rag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	chunks := Chunk("hello world", DocChunkSize, DocChunkOverlap)
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Fatalf("chunks = %#v", chunks)
	}
}

func TestChunkEmptyText(t *testing.T) {
	if chunks := Chunk("", DocChunkSize, DocChunkOverlap); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %#v", chunks)
	}
	if chunks := Chunk("  \n\n\t ", DocChunkSize, DocChunkOverlap); len(chunks) != 0 {
		t.Fatalf("expected no chunks for whitespace, got %#v", chunks)
	}
}

func TestChunkPacksParagraphs(t *testing.T) {
	text := "First paragraph line one.\nstill first paragraph.\n\nSecond paragraph."
	chunks := Chunk(text, DocChunkSize, DocChunkOverlap)
	if len(chunks) != 1 {
		t.Fatalf("expected one packed chunk, got %d: %#v", len(chunks), chunks)
	}
	want := "First paragraph line one. still first paragraph. Second paragraph."
	if chunks[0] != want {
		t.Fatalf("chunk = %q, want %q", chunks[0], want)
	}
}

func TestChunkRespectsSizeAndOverlap(t *testing.T) {
	var paras []string
	for i := 0; i < 40; i++ {
		paras = append(paras, strings.Repeat("word ", 20))
	}
	text := strings.Join(paras, "\n\n")

	chunks := Chunk(text, TranscriptChunkSize, TranscriptChunkOverlap)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > TranscriptChunkSize {
			t.Fatalf("chunk %d length %d exceeds %d", i, len(c), TranscriptChunkSize)
		}
	}
}

func TestChunkMultiByteTextStaysValid(t *testing.T) {
	para := strings.Repeat("日本語のテキストを分割しても文字が壊れないこと。", 8)
	text := strings.Repeat(para+"\n\n", 12)

	chunks := Chunk(text, TranscriptChunkSize, TranscriptChunkOverlap)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d contains invalid UTF-8: %q", i, c)
		}
		if n := utf8.RuneCountInString(c); n > TranscriptChunkSize {
			t.Fatalf("chunk %d rune count %d exceeds %d", i, n, TranscriptChunkSize)
		}
	}
}

func TestChunkSlicesMultiByteOversizedParagraph(t *testing.T) {
	text := strings.Repeat("語", 1200)
	chunks := Chunk(text, 400, 50)
	if len(chunks) < 3 {
		t.Fatalf("expected sliced chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d contains invalid UTF-8: %q", i, c)
		}
	}
	if n := utf8.RuneCountInString(chunks[0]); n != 400 {
		t.Fatalf("first chunk rune count = %d", n)
	}
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 200)
	a := Chunk(text, DocChunkSize, DocChunkOverlap)
	b := Chunk(text, DocChunkSize, DocChunkOverlap)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs", i)
		}
	}
}

func TestChunkSlicesOversizedParagraph(t *testing.T) {
	// One giant paragraph cannot be packed, so slicing applies.
	text := strings.Repeat("x", 2500)
	chunks := Chunk(text, 900, 150)
	if len(chunks) < 3 {
		t.Fatalf("expected sliced chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 900 {
		t.Fatalf("first chunk length = %d", len(chunks[0]))
	}
	// Adjacent slices share the overlap region.
	head := chunks[1][:150]
	tail := chunks[0][len(chunks[0])-150:]
	if head != tail {
		t.Fatalf("overlap mismatch")
	}
}

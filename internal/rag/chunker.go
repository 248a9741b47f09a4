package rag

import (
	"strings"
	"unicode/utf8"
)

// Chunking profiles. Documents use the larger profile; transcripts use the
// smaller one so individual chunks stay addressable to narrow time ranges.
const (
	DocChunkSize          = 900
	DocChunkOverlap       = 150
	TranscriptChunkSize   = 400
	TranscriptChunkOverlap = 50
)

// Chunk splits text into overlapping segments of at most size characters.
// Sizes and overlaps count runes, not bytes, so multi-byte text never gets
// cut mid-character. Paragraph-aware packing is attempted first: paragraphs
// (runs of non-empty lines joined by single spaces) are greedily packed into
// a buffer, and when the next paragraph would overflow, the buffer is emitted
// and the next one is seeded with the trailing overlap characters of the
// previous chunk. Any packed chunk still larger than size (a single oversized
// paragraph) is cut down by fixed-width slicing. The result is deterministic
// for identical inputs and parameters.
func Chunk(text string, size, overlap int) []string {
	paras := splitParagraphs(text)

	var chunks []string
	cur := ""
	for _, para := range paras {
		if cur == "" {
			cur = para
			continue
		}
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(para) <= size {
			cur = cur + " " + para
			continue
		}
		chunks = append(chunks, cur)
		tail := cur
		if runes := []rune(tail); len(runes) > overlap {
			tail = string(runes[len(runes)-overlap:])
		}
		if tail != "" {
			cur = tail + " " + para
		} else {
			cur = para
		}
	}
	if cur != "" {
		chunks = append(chunks, cur)
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(trimmed) <= size {
			out = append(out, trimmed)
			continue
		}
		out = append(out, slice(trimmed, size, overlap)...)
	}
	return out
}

// slice performs fixed-width slicing over runes for text with no paragraph
// structure small enough to pack.
func slice(text string, size, overlap int) []string {
	step := size - overlap
	if step < 1 {
		step = 1
	}
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// splitParagraphs collapses the text into paragraphs: consecutive non-empty
// lines are joined with single spaces, blank lines terminate a paragraph.
func splitParagraphs(text string) []string {
	var out []string
	var buf []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(buf) > 0 {
				out = append(out, strings.Join(buf, " "))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, trimmed)
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, " "))
	}
	return out
}

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// ErrNoText is returned when no usable text could be extracted.
var ErrNoText = errors.New("no text extracted")

// FromBytes extracts plain text from an uploaded payload. PDFs go through the
// PDF reader; anything else is treated as UTF-8 text.
func FromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if normalizeMimeType(mimeType, fileName) == mimePDF {
		text, err := fromPDF(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf %s: %w", fileName, err)
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrNoText
		}
		return text, nil
	}

	if !utf8.Valid(data) || len(bytes.TrimSpace(data)) == 0 {
		return "", ErrNoText
	}
	return string(data), nil
}

// FromURL fetches a page and strips its markup down to readable text.
func FromURL(ctx context.Context, rawURL string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}

	text := StripHTML(string(raw))
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func fromPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripHTML removes tags, scripts and styles, leaving newline-separated text.
func StripHTML(raw string) string {
	raw = cutBlocks(raw, "<script", "</script>")
	raw = cutBlocks(raw, "<style", "</style>")

	var buf strings.Builder
	inTag := false
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
			buf.WriteByte('\n')
		case r == '>':
			inTag = false
		case !inTag:
			buf.WriteRune(r)
		}
	}

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}

func cutBlocks(raw, open, close string) string {
	lower := strings.ToLower(raw)
	var buf strings.Builder
	for {
		start := strings.Index(lower, open)
		if start < 0 {
			buf.WriteString(raw)
			return buf.String()
		}
		end := strings.Index(lower[start:], close)
		if end < 0 {
			buf.WriteString(raw[:start])
			return buf.String()
		}
		buf.WriteString(raw[:start])
		cut := start + end + len(close)
		raw = raw[cut:]
		lower = lower[cut:]
	}
}

func normalizeMimeType(mimeType string, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean == mimePDF {
		return mimePDF
	}
	if strings.ToLower(filepath.Ext(fileName)) == ".pdf" {
		return mimePDF
	}
	return clean
}

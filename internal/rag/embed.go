package rag

import (
	"context"
	"crypto/md5"
	"encoding/binary"
)

// EmbeddingDim is the vector width used across the index implementations.
const EmbeddingDim = 768

// HashEmbedder produces deterministic, content-addressed embeddings from an
// MD5 digest of the text. The vectors carry no semantic meaning; they exist so
// the index keeps working without embedding credentials and so tests are
// reproducible. Real deployments inject a remote embedder instead.
type HashEmbedder struct{}

// EmbedTexts returns one EmbeddingDim-wide vector per input text.
func (HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashVector(text)
	}
	return out, nil
}

func hashVector(text string) []float32 {
	sum := md5.Sum([]byte(text))

	base := make([]float32, 0, len(sum)/2)
	for i := 0; i+1 < len(sum); i += 2 {
		val := float32(binary.BigEndian.Uint16(sum[i:i+2])) / 65535.0
		base = append(base, (val-0.5)*2)
	}

	vec := make([]float32, 0, EmbeddingDim)
	for len(vec) < EmbeddingDim {
		vec = append(vec, base...)
	}
	return vec[:EmbeddingDim]
}

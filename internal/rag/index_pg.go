package rag

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// PGIndex implements Index on Postgres with the pgvector extension. Nearest
// neighbor queries use the cosine distance operator.
type PGIndex struct {
	DB       *sql.DB
	Embedder Embedder
}

// Upsert replaces any existing records with the same ids.
func (x *PGIndex) Upsert(ctx context.Context, ids []string, texts []string, metas []Metadata) error {
	embeddings, err := x.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	tx, err := x.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	const query = `
INSERT INTO chunks (id, doc_id, chunk_index, body, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET doc_id = EXCLUDED.doc_id,
    chunk_index = EXCLUDED.chunk_index,
    body = EXCLUDED.body,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`

	for i, id := range ids {
		meta := metas[i]
		docID, _ := meta["doc_id"].(string)
		chunkIndex := 0
		if v, ok := meta["chunk_index"].(int); ok {
			chunkIndex = v
		}
		rawMeta, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, id, docID, chunkIndex, texts[i], rawMeta, pgvector.NewVector(embeddings[i])); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Query returns the topK nearest chunks by cosine distance.
func (x *PGIndex) Query(ctx context.Context, text string, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	embeddings, err := x.Embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	const query = `
SELECT body, metadata
FROM chunks
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $2`

	rows, err := x.DB.QueryContext(ctx, query, pgvector.NewVector(embeddings[0]), topK)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var body string
		var rawMeta []byte
		if err := rows.Scan(&body, &rawMeta); err != nil {
			return nil, err
		}
		meta, err := unmarshalMeta(rawMeta)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Text: body, Meta: meta})
	}
	return hits, rows.Err()
}

// Get returns records whose metadata matches every key in filter, ordered by
// doc_id and chunk_index.
func (x *PGIndex) Get(ctx context.Context, filter Metadata) ([]Record, error) {
	where, args, err := filterClause(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, body, metadata FROM chunks` + where + ` ORDER BY doc_id, chunk_index`
	rows, err := x.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var rawMeta []byte
		if err := rows.Scan(&rec.ID, &rec.Text, &rawMeta); err != nil {
			return nil, err
		}
		if rec.Meta, err = unmarshalMeta(rawMeta); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes records whose metadata matches every key in filter.
func (x *PGIndex) Delete(ctx context.Context, filter Metadata) error {
	where, args, err := filterClause(filter)
	if err != nil {
		return err
	}
	if _, err := x.DB.ExecContext(ctx, `DELETE FROM chunks`+where, args...); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// filterClause maps a metadata filter to a WHERE clause. doc_id hits its
// dedicated column; remaining keys use JSONB containment.
func filterClause(filter Metadata) (string, []any, error) {
	var clauses []string
	var args []any

	rest := make(Metadata, len(filter))
	for k, v := range filter {
		if k == "doc_id" {
			args = append(args, v)
			clauses = append(clauses, fmt.Sprintf("doc_id = $%d", len(args)))
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		raw, err := json.Marshal(rest)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, raw)
		clauses = append(clauses, fmt.Sprintf("metadata @> $%d::jsonb", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	where := " WHERE " + clauses[0]
	for _, clause := range clauses[1:] {
		where += " AND " + clause
	}
	return where, args, nil
}

func unmarshalMeta(raw []byte) (Metadata, error) {
	meta := Metadata{}
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"civreply/internal/models"
)

// TenantIndex is a read-only view over one tenant's published index.
type TenantIndex struct {
	db     *sql.DB
	tenant string
}

// ScoredChunk pairs a retrieved chunk with its cosine distance to the query
// (smaller is more similar).
type ScoredChunk struct {
	Chunk    models.Chunk
	Distance float32
}

// serializeFloat32Vector converts a float32 slice to the byte format expected by sqlite-vec
func serializeFloat32Vector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return buf
}

// verify checks that the index file carries the expected schema.
func (ix *TenantIndex) verify() error {
	var count int
	err := ix.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='chunks'").Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("chunks table missing")
	}
	return nil
}

// Search performs KNN vector search using sqlite-vec. Results are ordered by
// ascending distance; equal distances fall back to document name and chunk
// ordinal, so repeated identical queries return identical sequences.
func (ix *TenantIndex) Search(ctx context.Context, embedding []float32, topK int) ([]ScoredChunk, error) {
	embeddingBytes := serializeFloat32Vector(embedding)

	// Note: sqlite-vec requires the k parameter to be passed as part of the MATCH expression
	query := `
		SELECT
			c.id,
			c.document,
			c.page,
			c.ordinal,
			c.text,
			v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance, c.document, c.ordinal
	`

	rows, err := ix.db.QueryContext(ctx, query, embeddingBytes, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to perform vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ScoredChunk
	for rows.Next() {
		var (
			id, document, text string
			page, ordinal      int
			distance           float32
		)
		if err := rows.Scan(&id, &document, &page, &ordinal, &text, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}

		chunkID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("failed to parse chunk id %s: %w", id, err)
		}

		results = append(results, ScoredChunk{
			Chunk: models.Chunk{
				ID:       chunkID,
				Tenant:   ix.tenant,
				Document: document,
				Page:     page,
				Ordinal:  ordinal,
				Text:     text,
			},
			Distance: distance,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// Count returns the number of chunks in the index.
func (ix *TenantIndex) Count() (int, error) {
	var n int
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Documents returns the distinct source document names in the index.
func (ix *TenantIndex) Documents() ([]string, error) {
	rows, err := ix.db.Query("SELECT DISTINCT document FROM chunks ORDER BY document")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		docs = append(docs, name)
	}
	return docs, rows.Err()
}

// Close closes the database connection
func (ix *TenantIndex) Close() error {
	return ix.db.Close()
}

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"civreply/internal/models"
)

// StagingIndex is a new index being built for a tenant. Either Publish moves
// the completed build into place atomically, or Discard removes it and the
// previously published index stays intact.
type StagingIndex struct {
	db           *sql.DB
	path         string
	finalPath    string
	tenant       string
	store        *IndexStore
	embeddingDim int
}

func (b *StagingIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		page INTEGER NOT NULL,
		ordinal INTEGER NOT NULL,
		text TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := b.db.Exec(schema); err != nil {
		return err
	}

	// vec_chunks is created on first insert, once the embedding dimension
	// is known.
	return nil
}

// ensureVecTableExists creates the vec_chunks table on first insert and pins
// the embedding dimension for the rest of the build.
func (b *StagingIndex) ensureVecTableExists(embeddingLen int) error {
	if b.embeddingDim != 0 {
		if b.embeddingDim != embeddingLen {
			return fmt.Errorf("embedding dimension changed mid-build from %d to %d", b.embeddingDim, embeddingLen)
		}
		return nil
	}

	vecQuery := fmt.Sprintf(`
		CREATE VIRTUAL TABLE vec_chunks USING vec0(
			id TEXT PRIMARY KEY,
			embedding FLOAT[%d] distance_metric=cosine
		)
	`, embeddingLen)
	if _, err := b.db.Exec(vecQuery); err != nil {
		return fmt.Errorf("failed to create vec_chunks table: %w", err)
	}

	b.embeddingDim = embeddingLen
	return nil
}

// Add inserts a chunk with its embedding into the staging index.
func (b *StagingIndex) Add(chunk models.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("chunk %s has no embedding", chunk.ID)
	}
	if err := b.ensureVecTableExists(len(chunk.Embedding)); err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	metadataQuery := `INSERT INTO chunks (id, document, page, ordinal, text) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.Exec(metadataQuery, chunk.ID.String(), chunk.Document, chunk.Page, chunk.Ordinal, chunk.Text); err != nil {
		return fmt.Errorf("failed to insert chunk metadata: %w", err)
	}

	embeddingBytes := serializeFloat32Vector(chunk.Embedding)
	vecQuery := `INSERT INTO vec_chunks (id, embedding) VALUES (?, ?)`
	if _, err := tx.Exec(vecQuery, chunk.ID.String(), embeddingBytes); err != nil {
		return fmt.Errorf("failed to insert chunk vector: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Publish finalizes the build and atomically replaces the tenant's published
// index with this one.
func (b *StagingIndex) Publish() error {
	stamp := `INSERT INTO meta (key, value) VALUES ('built_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := b.db.Exec(stamp, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = b.db.Close()
		return fmt.Errorf("failed to stamp build time: %w", err)
	}

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close staging database: %w", err)
	}

	if err := os.Rename(b.path, b.finalPath); err != nil {
		return fmt.Errorf("failed to publish index: %w", err)
	}

	b.store.invalidate(b.tenant)
	return nil
}

// Discard aborts the build, removing the staging file. The previously
// published index is untouched.
func (b *StagingIndex) Discard() {
	_ = b.db.Close()
	_ = os.Remove(b.path)
}

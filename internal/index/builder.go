// Package index builds per-tenant vector indexes from ingested chunks.
package index

import (
	"context"
	"fmt"
	"log"
	"sync"

	"civreply/internal/cerr"
	"civreply/internal/ingest"
	"civreply/internal/models"
	"civreply/internal/storage"
)

// Embedder converts text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Builder performs full index rebuilds. A rebuild either fully replaces the
// tenant's published index or leaves it untouched; rebuilds for the same
// tenant never run in parallel.
type Builder struct {
	store    *storage.IndexStore
	ingestor *ingest.Ingestor
	embedder Embedder

	mu       sync.Mutex
	building map[string]bool
}

// NewBuilder wires a builder to its collaborators.
func NewBuilder(store *storage.IndexStore, ingestor *ingest.Ingestor, embedder Embedder) *Builder {
	return &Builder{
		store:    store,
		ingestor: ingestor,
		embedder: embedder,
		building: make(map[string]bool),
	}
}

// Rebuild ingests docsDir and replaces the tenant's index with a fresh build.
// Cancelling ctx aborts the build; the previously published index survives
// any failure or abort.
func (b *Builder) Rebuild(ctx context.Context, tenant, docsDir string) (int, error) {
	if err := models.ValidateTenantKey(tenant); err != nil {
		return 0, err
	}

	if !b.tryAcquire(tenant) {
		return 0, fmt.Errorf("%w: %s", cerr.ErrRebuildInProgress, tenant)
	}
	defer b.release(tenant)

	log.Printf("INDEXER: starting rebuild for %s from %s", tenant, docsDir)

	chunks, err := b.ingestor.IngestDirectory(tenant, docsDir)
	if err != nil {
		return 0, err
	}

	staging, err := b.store.Begin(tenant)
	if err != nil {
		return 0, &cerr.BuildError{Tenant: tenant, Stage: "staging", Cause: err}
	}

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			staging.Discard()
			return 0, &cerr.BuildError{Tenant: tenant, Stage: "embedding", Cause: err}
		}

		embedding, err := b.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			staging.Discard()
			return 0, &cerr.BuildError{Tenant: tenant, Stage: "embedding", Cause: err}
		}
		chunks[i].Embedding = embedding

		if err := staging.Add(chunks[i]); err != nil {
			staging.Discard()
			return 0, &cerr.BuildError{Tenant: tenant, Stage: "write", Cause: err}
		}
	}

	if err := staging.Publish(); err != nil {
		return 0, &cerr.BuildError{Tenant: tenant, Stage: "publish", Cause: err}
	}

	log.Printf("INDEXER: rebuild for %s complete, %d chunks indexed", tenant, len(chunks))
	return len(chunks), nil
}

func (b *Builder) tryAcquire(tenant string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.building[tenant] {
		return false
	}
	b.building[tenant] = true
	return true
}

func (b *Builder) release(tenant string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.building, tenant)
}

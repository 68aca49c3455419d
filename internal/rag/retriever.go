// Package rag composes retrieval, generation, and post-processing into the
// question-answering pipeline.
package rag

import (
	"context"
	"fmt"
	"log"

	"civreply/internal/cerr"
	"civreply/internal/models"
	"civreply/internal/storage"
)

// Embedder converts text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the chunks most relevant to a question within one tenant's
// index.
type Retriever struct {
	store    *storage.IndexStore
	embedder Embedder

	// maxDistance is the relevance cutoff; matches beyond it are treated
	// as no match at all.
	maxDistance float32
}

// NewRetriever wires a retriever to its index store and embedder.
func NewRetriever(store *storage.IndexStore, embedder Embedder, maxDistance float64) *Retriever {
	return &Retriever{
		store:       store,
		embedder:    embedder,
		maxDistance: float32(maxDistance),
	}
}

// Retrieve returns up to k chunks ordered by descending similarity. It fails
// with ErrIndexNotFound when the tenant has no index and ErrRetrievalEmpty
// when nothing clears the relevance cutoff.
func (r *Retriever) Retrieve(ctx context.Context, tenant, question string, k int) ([]models.Chunk, error) {
	ix, err := r.store.Load(tenant)
	if err != nil {
		return nil, err
	}

	questionEmbedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	scored, err := ix.Search(ctx, questionEmbedding, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(scored))
	for _, s := range scored {
		if s.Distance > r.maxDistance {
			continue
		}
		chunks = append(chunks, s.Chunk)
	}

	if len(chunks) == 0 {
		log.Printf("RETRIEVE: no chunk within distance %.2f for %s", r.maxDistance, tenant)
		return nil, fmt.Errorf("%w: %s", cerr.ErrRetrievalEmpty, tenant)
	}

	return chunks, nil
}

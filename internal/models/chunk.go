package models

import "github.com/google/uuid"

// Chunk is a bounded span of text extracted from one source document,
// the unit of retrieval. Ordinal is the chunk's position within its
// document and breaks ties when similarity scores are equal.
type Chunk struct {
	ID        uuid.UUID `json:"id"`
	Tenant    string    `json:"tenant"`
	Document  string    `json:"document"`
	Page      int       `json:"page,omitempty"`
	Ordinal   int       `json:"ordinal"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// NewChunk assigns a fresh ID to a chunk with the given provenance.
func NewChunk(tenant, document string, page, ordinal int, text string) Chunk {
	return Chunk{
		ID:       uuid.New(),
		Tenant:   tenant,
		Document: document,
		Page:     page,
		Ordinal:  ordinal,
		Text:     text,
	}
}

// Citation points a caller at the source material behind an answer,
// kept structured so UIs can render a source list without reparsing prose.
type Citation struct {
	Document string `json:"document"`
	Page     int    `json:"page,omitempty"`
}

// Package ingest loads a tenant's document directory and splits the extracted
// text into overlapping chunks ready for embedding.
package ingest

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"civreply/internal/cerr"
	"civreply/internal/models"
)

// Ingestor scans a directory of council documents and produces chunks.
// Reading is the only side effect; source files are never mutated.
type Ingestor struct {
	chunkSize    int
	chunkOverlap int
	extractor    PageExtractor
}

// New returns an Ingestor using the UniPDF-backed extractor.
func New(chunkSize, chunkOverlap int) *Ingestor {
	return NewWithExtractor(chunkSize, chunkOverlap, fileExtractor{})
}

// NewWithExtractor allows substituting the page extractor.
func NewWithExtractor(chunkSize, chunkOverlap int, ex PageExtractor) *Ingestor {
	return &Ingestor{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		extractor:    ex,
	}
}

// IngestDirectory loads every supported document under dir for the given
// tenant. It fails with a distinct IngestError kind when the directory is
// missing versus when no document yields extractable text, since the two
// need different admin remediation.
func (g *Ingestor) IngestDirectory(tenant, dir string) ([]models.Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &cerr.IngestError{Kind: cerr.IngestMissingDirectory, Dir: dir, Cause: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isSupportedFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(g.chunkSize),
		textsplitter.WithChunkOverlap(g.chunkOverlap),
	)

	var chunks []models.Chunk
	for _, name := range names {
		docChunks, err := g.ingestFile(tenant, dir, name, splitter)
		if err != nil {
			// A single unreadable document should not sink the whole build.
			log.Printf("INGEST: skipping %s: %v", name, err)
			continue
		}
		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		return nil, &cerr.IngestError{Kind: cerr.IngestNoExtractableText, Dir: dir}
	}

	log.Printf("INGEST: %s: %d chunks from %d documents", tenant, len(chunks), len(names))
	return chunks, nil
}

func (g *Ingestor) ingestFile(tenant, dir, name string, splitter textsplitter.RecursiveCharacter) ([]models.Chunk, error) {
	pages, err := g.extractor.Pages(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	ordinal := 0
	for pageIdx, pageText := range pages {
		if strings.TrimSpace(pageText) == "" {
			continue
		}

		pieces, err := splitter.SplitText(pageText)
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunks = append(chunks, models.NewChunk(tenant, name, pageIdx+1, ordinal, piece))
			ordinal++
		}
	}
	return chunks, nil
}

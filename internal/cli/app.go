package cli

import (
	"context"
	"fmt"
	"log"

	"civreply/internal/answer"
	"civreply/internal/config"
	"civreply/internal/embeddings"
	"civreply/internal/index"
	"civreply/internal/ingest"
	"civreply/internal/llm"
	"civreply/internal/postprocess"
	"civreply/internal/quota"
	"civreply/internal/rag"
	"civreply/internal/storage"
)

// application holds the fully wired pipeline shared by all commands.
type application struct {
	cfg      *config.Config
	store    *storage.IndexStore
	governor *quota.Governor
	builder  *index.Builder
	service  *rag.Service

	closers []func() error
}

// newApplication loads configuration and assembles the pipeline. The model
// backend is selected by services.provider: Ollama serves embeddings and
// completions from separate endpoints, Gemini serves both from one client.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app := &application{cfg: cfg}

	store, err := storage.NewIndexStore(cfg.Paths.IndexRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	app.store = store
	app.closers = append(app.closers, store.Close)

	governor, err := quota.Open(cfg.Paths.UsageDB)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	app.governor = governor
	app.closers = append(app.closers, governor.Close)

	var (
		embedder  index.Embedder
		completer answer.Completer
	)
	switch cfg.Services.Provider {
	case "gemini":
		gemini, err := llm.NewGeminiClient(ctx, cfg.Services.Gemini)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		app.closers = append(app.closers, gemini.Close)
		embedder = gemini
		completer = gemini
	default:
		embedder = embeddings.NewOllamaEmbedder(cfg.Services.Ollama)
		completer = llm.NewOllamaClient(cfg.Services.Ollama)
	}
	log.Printf("APP: Using %s model backend", cfg.Services.Provider)

	ingestor := ingest.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	app.builder = index.NewBuilder(store, ingestor, embedder)

	retriever := rag.NewRetriever(store, embedder, cfg.Retrieval.MaxDistance)
	generator := answer.NewGenerator(completer)
	post := postprocess.NewProcessor(postprocess.NewLLMTranslator(completer))
	app.service = rag.NewService(retriever, generator, post, governor, cfg.Retrieval.TopK)

	return app, nil
}

// Close releases everything the application opened, in reverse order.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("APP: Close error: %v", err)
		}
	}
	a.closers = nil
}

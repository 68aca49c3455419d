package rag

import (
	"context"
	"errors"
	"fmt"
	"log"

	"civreply/internal/answer"
	"civreply/internal/cerr"
	"civreply/internal/models"
	"civreply/internal/postprocess"
	"civreply/internal/quota"
)

// Service answers tenant-scoped questions. The quota gate runs first, then
// retrieval, generation, and post-processing; every answered query lands in
// the usage log.
type Service struct {
	retriever *Retriever
	generator *answer.Generator
	post      *postprocess.Processor
	governor  *quota.Governor
	topK      int
}

// NewService wires the pipeline together.
func NewService(retriever *Retriever, generator *answer.Generator, post *postprocess.Processor, governor *quota.Governor, topK int) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		post:      post,
		governor:  governor,
		topK:      topK,
	}
}

// Ask resolves a question against the tenant's indexed documents.
func (s *Service) Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error) {
	if req.Question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}
	if req.Plan == "" {
		req.Plan = models.PlanBasic
	}
	if !models.ValidPlan(req.Plan) {
		return nil, fmt.Errorf("unknown plan: %s", req.Plan)
	}
	if err := models.ValidateTenantKey(req.Tenant); err != nil {
		return nil, err
	}

	if err := s.governor.CheckAndIncrement(req.Tenant, req.Plan); err != nil {
		return nil, err
	}

	chunks, err := s.retriever.Retrieve(ctx, req.Tenant, req.Question, s.topK)
	switch {
	case errors.Is(err, cerr.ErrRetrievalEmpty):
		// Expected condition: the generator's grounding guard answers it.
		chunks = nil
	case err != nil:
		return nil, err
	}

	answerText, err := s.generator.Generate(ctx, req.Question, chunks, req.Plan)
	if err != nil {
		return nil, err
	}

	resp := &models.AskResponse{
		Answer:  answerText,
		Sources: postprocess.ExtractCitations(chunks),
		Plan:    req.Plan,
	}

	if req.Language != "" {
		translated, terr := s.post.Translate(ctx, answerText, req.Language)
		if terr != nil {
			// Degraded, not fatal: translated already carries the
			// original answer behind a marker.
			log.Printf("ASK: %v", terr)
		}
		if translated != answerText {
			resp.TranslatedAnswer = translated
		}
	}

	if err := s.governor.RecordQuery(models.QueryRecord{
		Tenant:   req.Tenant,
		Question: req.Question,
		Answer:   answerText,
		Plan:     req.Plan,
		Role:     req.Role,
	}); err != nil {
		log.Printf("ASK: failed to record query: %v", err)
	}

	return resp, nil
}

// Package api exposes the question-answering pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/ory/herodot"

	"civreply/internal/auth"
	"civreply/internal/cerr"
	"civreply/internal/models"
)

// Interfaces for dependency injection
type AskService interface {
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
}

type IndexRebuilder interface {
	Rebuild(ctx context.Context, tenant, docsDir string) (int, error)
}

type Server struct {
	mux        *http.ServeMux
	ask        AskService
	rebuilder  IndexRebuilder
	tenants    []models.Tenant
	docsRoot   string
	adminToken string
	writer     *herodot.JSONWriter
}

func NewServer(ask AskService, rebuilder IndexRebuilder, tenants []models.Tenant, docsRoot, adminToken string) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		ask:        ask,
		rebuilder:  rebuilder,
		tenants:    tenants,
		docsRoot:   docsRoot,
		adminToken: adminToken,
		writer:     herodot.NewJSONWriter(nil),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/ask", s.handleAsk)
	s.mux.Handle("/admin/reindex", auth.AdminMiddleware(s.adminToken, http.HandlerFunc(s.handleReindex)))
	s.mux.HandleFunc("/tenants", s.listTenants)
	s.mux.HandleFunc("/health", s.healthCheck)
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return loggingMiddleware(s.mux)
}

func (s *Server) Run(addr string) error {
	log.Printf("Server starting on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

var errTooManyRequests = herodot.DefaultError{
	StatusField: http.StatusText(http.StatusTooManyRequests),
	ErrorField:  "Monthly query limit reached",
	CodeField:   http.StatusTooManyRequests,
}

var errBadGateway = herodot.DefaultError{
	StatusField: http.StatusText(http.StatusBadGateway),
	ErrorField:  "External service unavailable",
	CodeField:   http.StatusBadGateway,
}

var errConflict = herodot.DefaultError{
	StatusField: http.StatusText(http.StatusConflict),
	ErrorField:  "Rebuild already in progress",
	CodeField:   http.StatusConflict,
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}
	if req.Tenant == "" || req.Question == "" {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("tenant and question are required"))
		return
	}
	if req.Plan != "" && !models.ValidPlan(req.Plan) {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason(fmt.Sprintf("unknown plan: %s", req.Plan)))
		return
	}

	resp, err := s.ask.Ask(r.Context(), req)
	if err != nil {
		s.writeAskError(w, r, err)
		return
	}
	s.writer.Write(w, r, resp)
}

func (s *Server) writeAskError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *cerr.QuotaExceededError
	var ge *cerr.GenerationError
	switch {
	case errors.As(err, &qe):
		s.writer.WriteError(w, r, errTooManyRequests.WithReason(fmt.Sprintf(
			"%d of %d monthly queries used on the %s plan. Upgrade for a higher limit.",
			qe.Used, qe.Limit, qe.Plan)))
	case errors.Is(err, cerr.ErrIndexNotFound):
		s.writer.WriteError(w, r, herodot.ErrNotFound.WithReason(
			"No documents are indexed for this council yet. Ask an administrator to upload and index documents."))
	case errors.As(err, &ge):
		s.writer.WriteError(w, r, errBadGateway.WithReason("The answer service is temporarily unavailable"))
	default:
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason("Failed to answer question"))
	}
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req models.ReindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}
	if req.Tenant == "" {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("tenant is required"))
		return
	}

	docsDir := req.DocsDir
	if docsDir == "" {
		docsDir = filepath.Join(s.docsRoot, req.Tenant)
	}

	n, err := s.rebuilder.Rebuild(r.Context(), req.Tenant, docsDir)
	if err != nil {
		s.writeReindexError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.ReindexResponse{
		Tenant:  req.Tenant,
		Chunks:  n,
		Message: "Index rebuilt successfully",
	})
}

func (s *Server) writeReindexError(w http.ResponseWriter, r *http.Request, err error) {
	var be *cerr.BuildError
	switch {
	case errors.Is(err, cerr.ErrRebuildInProgress):
		s.writer.WriteError(w, r, errConflict.WithReason("A rebuild for this council is already running"))
	case errors.As(err, new(*cerr.IngestError)):
		kind, _ := cerr.IsIngest(err)
		if kind == cerr.IngestMissingDirectory {
			s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason(
				"Document directory not found. Upload documents before reindexing."))
			return
		}
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason(
			"No extractable text found. Scanned-image PDFs need OCR before indexing."))
	case errors.As(err, &be):
		s.writer.WriteError(w, r, errBadGateway.WithReason("Index build failed; previous index is untouched"))
	default:
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason("Failed to rebuild index"))
	}
}

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	response := &models.TenantListResponse{
		Tenants: s.tenants,
		Count:   len(s.tenants),
	}
	s.writer.Write(w, r, response)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	response := &models.HealthResponse{Status: "healthy"}
	s.writer.Write(w, r, response)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s %s", r.Method, r.RequestURI, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

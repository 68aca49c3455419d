package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryRecord is one answered question, appended to the usage log.
// Records are immutable once written.
type QueryRecord struct {
	ID        uuid.UUID `json:"id"`
	Tenant    string    `json:"tenant"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Plan      Plan      `json:"plan"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AskRequest is a tenant-scoped question.
type AskRequest struct {
	Tenant   string `json:"tenant"`
	Question string `json:"question"`
	Language string `json:"language,omitempty"`
	Plan     Plan   `json:"plan,omitempty"`
	Role     string `json:"role,omitempty"`
}

// AskResponse carries the grounded answer plus structured source citations.
type AskResponse struct {
	Answer           string     `json:"answer"`
	TranslatedAnswer string     `json:"translated_answer,omitempty"`
	Sources          []Citation `json:"sources"`
	Plan             Plan       `json:"plan"`
}

// ReindexRequest asks for a full rebuild of one tenant's index.
type ReindexRequest struct {
	Tenant  string `json:"tenant"`
	DocsDir string `json:"docs_dir,omitempty"`
}

// ReindexResponse reports the outcome of a rebuild.
type ReindexResponse struct {
	Tenant  string `json:"tenant"`
	Chunks  int    `json:"chunks"`
	Message string `json:"message"`
}

// TenantListResponse lists the configured councils.
type TenantListResponse struct {
	Tenants []Tenant `json:"tenants"`
	Count   int      `json:"count"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status string `json:"status"`
}

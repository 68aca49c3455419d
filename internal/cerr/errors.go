// Package cerr defines the error taxonomy for the question-answering pipeline.
// Callers distinguish conditions with errors.Is / errors.As; no error here may
// leave the index store in a half-written state.
package cerr

import (
	"errors"
	"fmt"
)

// Sentinel conditions.
var (
	// ErrIndexNotFound means the tenant has no persisted index yet. Callers
	// should surface this as "ask an admin to upload and index documents",
	// never as a silent empty answer.
	ErrIndexNotFound = errors.New("index not found for tenant")

	// ErrIndexCorrupted means an index exists but cannot be read. This fails
	// loudly rather than returning empty results.
	ErrIndexCorrupted = errors.New("index is corrupted")

	// ErrRetrievalEmpty means the index exists but no chunk cleared the
	// relevance threshold. A normal condition, not a failure.
	ErrRetrievalEmpty = errors.New("no relevant chunks found")

	// ErrRebuildInProgress rejects a second concurrent rebuild for the same
	// tenant.
	ErrRebuildInProgress = errors.New("rebuild already in progress for tenant")
)

// IngestKind separates the two admin remediations for a failed ingest:
// upload documents vs re-scan with OCR.
type IngestKind string

const (
	IngestMissingDirectory  IngestKind = "missing_directory"
	IngestNoExtractableText IngestKind = "no_extractable_text"
)

// IngestError reports bad or missing input documents.
type IngestError struct {
	Kind  IngestKind
	Dir   string
	Cause error
}

func (e *IngestError) Error() string {
	switch e.Kind {
	case IngestMissingDirectory:
		return fmt.Sprintf("ingest: document directory %s not found", e.Dir)
	case IngestNoExtractableText:
		return fmt.Sprintf("ingest: no extractable text in %s", e.Dir)
	}
	return fmt.Sprintf("ingest: failed for %s", e.Dir)
}

func (e *IngestError) Unwrap() error { return e.Cause }

// BuildError reports an embedding or index-construction failure. A build
// that fails leaves the previously persisted index untouched.
type BuildError struct {
	Tenant string
	Stage  string
	Cause  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("index build for %s failed at %s: %v", e.Tenant, e.Stage, e.Cause)
}

func (e *BuildError) Unwrap() error { return e.Cause }

// GenerationError reports a model service failure after retries.
type GenerationError struct {
	Model string
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Model, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// TranslationError is degraded and non-fatal: the caller already holds a
// usable untranslated answer when it sees this.
type TranslationError struct {
	Language string
	Cause    error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation to %s failed: %v", e.Language, e.Cause)
}

func (e *TranslationError) Unwrap() error { return e.Cause }

// QuotaExceededError carries the limit and current count so the caller can
// render an upgrade prompt.
type QuotaExceededError struct {
	Tenant string
	Plan   string
	Limit  int
	Used   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d/%d queries used on %s plan",
		e.Tenant, e.Used, e.Limit, e.Plan)
}

// IsQuotaExceeded reports whether err is a quota denial.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsIngest reports whether err is an ingest failure, returning its kind.
func IsIngest(err error) (IngestKind, bool) {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return "", false
}

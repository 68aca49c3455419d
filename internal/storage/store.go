// Package storage persists one vector index per tenant using sqlite-vec.
// Each tenant's index is a single database file under the index root; builds
// write to a staging file and publish by atomic rename, so readers never
// observe a half-written index.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver

	"civreply/internal/cerr"
	"civreply/internal/models"
)

func init() {
	sqlite_vec.Auto()
}

// IndexStore manages the per-tenant index files under a root directory.
type IndexStore struct {
	root string

	mu   sync.Mutex
	open map[string]*TenantIndex
}

// NewIndexStore creates the index root if needed.
func NewIndexStore(root string) (*IndexStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index root: %w", err)
	}
	return &IndexStore{
		root: root,
		open: make(map[string]*TenantIndex),
	}, nil
}

// PathFor returns the index file path for a tenant, rejecting keys that
// would escape the index root.
func (s *IndexStore) PathFor(tenant string) (string, error) {
	if err := models.ValidateTenantKey(tenant); err != nil {
		return "", err
	}
	return filepath.Join(s.root, tenant+".db"), nil
}

// Exists reports whether a published index exists for the tenant.
func (s *IndexStore) Exists(tenant string) bool {
	path, err := s.PathFor(tenant)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load opens the tenant's published index, reusing an already open handle.
// A missing index and a corrupted index are distinct failures: the former is
// an expected condition, the latter must never look like empty results.
func (s *IndexStore) Load(tenant string) (*TenantIndex, error) {
	path, err := s.PathFor(tenant)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ix, ok := s.open[tenant]; ok {
		return ix, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", cerr.ErrIndexNotFound, tenant)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerr.ErrIndexCorrupted, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", cerr.ErrIndexCorrupted, err)
	}

	ix := &TenantIndex{db: db, tenant: tenant}
	if err := ix.verify(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", cerr.ErrIndexCorrupted, err)
	}

	s.open[tenant] = ix
	return ix, nil
}

// Begin opens a staging index for a full rebuild of the tenant's index.
// Nothing is visible to readers until Publish succeeds.
func (s *IndexStore) Begin(tenant string) (*StagingIndex, error) {
	path, err := s.PathFor(tenant)
	if err != nil {
		return nil, err
	}

	stagingPath := path + ".staging"
	// A leftover staging file from an aborted build is stale by definition.
	_ = os.Remove(stagingPath)

	db, err := sql.Open("sqlite3", stagingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to staging database: %w", err)
	}

	staging := &StagingIndex{
		db:        db,
		path:      stagingPath,
		finalPath: path,
		tenant:    tenant,
		store:     s,
	}
	if err := staging.initSchema(); err != nil {
		_ = db.Close()
		_ = os.Remove(stagingPath)
		return nil, fmt.Errorf("failed to initialize staging schema: %w", err)
	}

	return staging, nil
}

// invalidate closes and drops any cached handle so the next Load sees the
// freshly published file.
func (s *IndexStore) invalidate(tenant string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ix, ok := s.open[tenant]; ok {
		_ = ix.Close()
		delete(s.open, tenant)
	}
}

// Close closes all cached index handles.
func (s *IndexStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for tenant, ix := range s.open {
		if err := ix.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.open, tenant)
	}
	return firstErr
}

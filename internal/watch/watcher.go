package watch

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"civreply/internal/cerr"
	"civreply/internal/models"
)

// Rebuilder rebuilds one tenant's index from its document directory.
type Rebuilder interface {
	Rebuild(ctx context.Context, tenant, docsDir string) (int, error)
}

// Watcher watches the documents root for changes and triggers per-tenant
// index rebuilds. The root is expected to contain one subdirectory per
// tenant key; files directly under the root are ignored.
type Watcher struct {
	rebuilder Rebuilder
	docsRoot  string
	debounce  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(rebuilder Rebuilder, docsRoot string, debounce time.Duration) *Watcher {
	return &Watcher{
		rebuilder: rebuilder,
		docsRoot:  docsRoot,
		debounce:  debounce,
		pending:   make(map[string]*time.Timer),
	}
}

// Run watches the documents root until the context is cancelled. Tenant
// directories that appear while running are picked up automatically.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.docsRoot); err != nil {
		return err
	}
	if err := w.addTenantDirs(watcher); err != nil {
		return err
	}
	log.Printf("WATCHER: Watching document root: %s", w.docsRoot)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("WATCHER ERROR: %v", err)
		case <-ctx.Done():
			log.Println("WATCHER: Context cancelled, shutting down watcher.")
			w.cancelPending()
			return ctx.Err()
		}
	}
}

func (w *Watcher) addTenantDirs(watcher *fsnotify.Watcher) error {
	entries, err := os.ReadDir(w.docsRoot)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := models.ValidateTenantKey(entry.Name()); err != nil {
			log.Printf("WATCHER WARN: Skipping directory with invalid tenant key: %s", entry.Name())
			continue
		}
		if err := watcher.Add(filepath.Join(w.docsRoot, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	// A new tenant directory created under the root gets watched too.
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == w.docsRoot {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if models.ValidateTenantKey(filepath.Base(event.Name)) == nil {
				if err := watcher.Add(event.Name); err != nil {
					log.Printf("WATCHER ERROR: Failed to watch new directory %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	tenant := w.tenantFor(event.Name)
	if tenant == "" {
		return
	}
	log.Printf("WATCHER: Change in %s documents: %s", tenant, event.Name)
	w.schedule(ctx, tenant)
}

// tenantFor maps an event path to the tenant whose directory contains it.
// Files directly under the root belong to no tenant.
func (w *Watcher) tenantFor(path string) string {
	rel, err := filepath.Rel(w.docsRoot, path)
	if err != nil || rel == "." {
		return ""
	}
	first, rest := rel, ""
	if i := strings.IndexRune(rel, filepath.Separator); i >= 0 {
		first, rest = rel[:i], rel[i+1:]
	}
	if rest == "" {
		return ""
	}
	if models.ValidateTenantKey(first) != nil {
		return ""
	}
	return first
}

// schedule arms (or re-arms) the debounce timer for a tenant. Editors often
// emit several events per save; only the last one within the window counts.
func (w *Watcher) schedule(ctx context.Context, tenant string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[tenant]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[tenant] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, tenant)
		w.mu.Unlock()
		w.rebuild(ctx, tenant)
	})
}

func (w *Watcher) rebuild(ctx context.Context, tenant string) {
	docsDir := filepath.Join(w.docsRoot, tenant)
	chunks, err := w.rebuilder.Rebuild(ctx, tenant, docsDir)
	if err != nil {
		if errors.Is(err, cerr.ErrRebuildInProgress) {
			// Another rebuild is running; the next change will retry.
			log.Printf("WATCHER: Rebuild for %s already in progress, skipping", tenant)
			return
		}
		log.Printf("WATCHER ERROR: Rebuild for %s failed: %v", tenant, err)
		return
	}
	log.Printf("WATCHER: Rebuilt index for %s (%d chunks)", tenant, chunks)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for tenant, timer := range w.pending {
		timer.Stop()
		delete(w.pending, tenant)
	}
}

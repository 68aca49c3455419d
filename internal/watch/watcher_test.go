package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingRebuilder struct {
	mu      sync.Mutex
	calls   map[string]int
	lastDir map[string]string
}

func newRecordingRebuilder() *recordingRebuilder {
	return &recordingRebuilder{calls: make(map[string]int), lastDir: make(map[string]string)}
}

func (r *recordingRebuilder) Rebuild(_ context.Context, tenant, docsDir string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[tenant]++
	r.lastDir[tenant] = docsDir
	return 1, nil
}

func (r *recordingRebuilder) count(tenant string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[tenant]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherTriggersRebuildOnWrite(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "wyndham"), 0o755); err != nil {
		t.Fatalf("Failed to create tenant dir: %v", err)
	}

	rebuilder := newRecordingRebuilder()
	w := New(rebuilder, root, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher time to register its watches.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(root, "wyndham", "bins.txt")
	if err := os.WriteFile(path, []byte("Recycling is collected fortnightly."), 0o644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return rebuilder.count("wyndham") >= 1 }) {
		t.Fatal("Expected a rebuild for wyndham after writing a document")
	}

	rebuilder.mu.Lock()
	dir := rebuilder.lastDir["wyndham"]
	rebuilder.mu.Unlock()
	if dir != filepath.Join(root, "wyndham") {
		t.Errorf("Expected rebuild against tenant docs dir, got %s", dir)
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "hume"), 0o755); err != nil {
		t.Fatalf("Failed to create tenant dir: %v", err)
	}

	rebuilder := newRecordingRebuilder()
	w := New(rebuilder, root, 300*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(200 * time.Millisecond)

	// A burst of writes within the debounce window collapses to one rebuild.
	for i := 0; i < 5; i++ {
		path := filepath.Join(root, "hume", "waste.txt")
		if err := os.WriteFile(path, []byte("update"), 0o644); err != nil {
			t.Fatalf("Failed to write document: %v", err)
		}
		time.Sleep(30 * time.Millisecond)
	}

	if !waitFor(t, 3*time.Second, func() bool { return rebuilder.count("hume") >= 1 }) {
		t.Fatal("Expected a rebuild for hume")
	}
	// Let any stray timers fire before asserting the count.
	time.Sleep(500 * time.Millisecond)
	if got := rebuilder.count("hume"); got != 1 {
		t.Errorf("Expected 1 debounced rebuild, got %d", got)
	}
}

func TestWatcherPicksUpNewTenantDirectory(t *testing.T) {
	root := t.TempDir()

	rebuilder := newRecordingRebuilder()
	w := New(rebuilder, root, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(200 * time.Millisecond)

	if err := os.MkdirAll(filepath.Join(root, "melton"), 0o755); err != nil {
		t.Fatalf("Failed to create tenant dir: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(root, "melton", "rates.txt")
	if err := os.WriteFile(path, []byte("Rates are due quarterly."), 0o644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return rebuilder.count("melton") >= 1 }) {
		t.Fatal("Expected a rebuild for a tenant directory created after startup")
	}
}

func TestWatcherIgnoresFilesOutsideTenantDirs(t *testing.T) {
	root := t.TempDir()

	rebuilder := newRecordingRebuilder()
	w := New(rebuilder, root, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("not a tenant doc"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	rebuilder.mu.Lock()
	total := len(rebuilder.calls)
	rebuilder.mu.Unlock()
	if total != 0 {
		t.Errorf("Expected no rebuilds for files outside tenant directories, got %d", total)
	}
}

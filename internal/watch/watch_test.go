package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_FiresOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 8)

	w, err := New(dir, 100*time.Millisecond, nil, func() {
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(dir, "worktypes.json"), []byte(`{}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher never fired")
	}

	// The burst was within one debounce window; no second callback should
	// follow.
	select {
	case <-fired:
		t.Fatalf("watcher fired more than once for a single burst")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresNonConfigFiles(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 1)

	w, err := New(dir, 50*time.Millisecond, nil, func() {
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-fired:
		t.Fatalf("watcher fired for a non-config file")
	case <-time.After(300 * time.Millisecond):
	}
}

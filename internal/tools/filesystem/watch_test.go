package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsFileCreation(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	target := filepath.Join(root, "new.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case path := <-w.Events():
		if path != "new.txt" {
			t.Fatalf("expected relative path %q, got %q", "new.txt", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a create event")
	}
}

func TestWatcherAddsNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Drain the directory-create event itself before creating the file.
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subdirectory create event")
	}

	target := filepath.Join(sub, "inner.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file in new subdirectory: %v", err)
	}

	select {
	case path := <-w.Events():
		if path != filepath.Join("sub", "inner.txt") {
			t.Fatalf("expected relative path %q, got %q", filepath.Join("sub", "inner.txt"), path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a create event inside the new subdirectory")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got: %v", err)
	}
}

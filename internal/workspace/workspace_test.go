package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Aidajafarbigloo/hermes/internal/model"
)

func TestCachePathLayout(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir)

	path, err := ws.CachePath("harvest", "cff", true)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, HiddenDirName, "harvest", "cff.json")
	if path != want {
		t.Fatalf("got %s, want %s", path, want)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		t.Fatalf("stage directory not created: %v", err)
	}
}

func TestCachePathWithoutCreateLeavesDiskAlone(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir)

	if _, err := ws.CachePath("harvest", "cff", false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, HiddenDirName)); !os.IsNotExist(err) {
		t.Fatal("lookup without create must not touch the disk")
	}
}

func TestCachePathRejectsTraversal(t *testing.T) {
	ws := New(t.TempDir())
	for _, bad := range []string{"", "..", "a/b", `a\b`, "."} {
		if _, err := ws.CachePath(bad, "name", false); err == nil {
			t.Fatalf("expected rejection for stage %q", bad)
		}
		if _, err := ws.CachePath("stage", bad, false); err == nil {
			t.Fatalf("expected rejection for name %q", bad)
		}
	}
}

func TestResolveMissing(t *testing.T) {
	ws := New(t.TempDir())
	_, err := ws.Resolve("harvest", "cff")
	var miss *model.CacheMissError
	if !errors.As(err, &miss) {
		t.Fatalf("expected CacheMissError, got %v", err)
	}
	if miss.Stage != "harvest" || miss.Name != "cff" {
		t.Fatalf("unexpected miss detail: %+v", miss)
	}
}

func TestResolveExisting(t *testing.T) {
	ws := New(t.TempDir())
	path, err := ws.CachePath("harvest", "cff", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := ws.Resolve("harvest", "cff")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Fatalf("got %s, want %s", resolved, path)
	}
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir)
	path, err := ws.CachePath("harvest", "cff", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ws.Purge(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(ws.Root()); !os.IsNotExist(err) {
		t.Fatal("cache root survived the purge")
	}
	// Purging an absent root is fine.
	if err := ws.Purge(); err != nil {
		t.Fatal(err)
	}
}

func TestAcquireRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()
	first := New(dir)
	if err := first.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = first.Release() }()

	second := New(dir)
	if err := second.Acquire(); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatal(err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("lock must be takeable after release: %v", err)
	}
	_ = second.Release()
}

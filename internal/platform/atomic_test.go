package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "core.yaml")

	if err := WriteFileAtomic(path, []byte("a: 1\n"), 0600, 0700); err != nil {
		t.Fatalf("WriteFileAtomic() error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("a: 2\n"), 0600, 0700); err != nil {
		t.Fatalf("WriteFileAtomic() overwrite error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a: 2\n" {
		t.Errorf("content = %q, want %q", data, "a: 2\n")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the target file", len(entries))
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("permissions = %o, want %o", perm, 0600)
		}
	}
}

func TestWriteFileAtomicMissingParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(filepath.Join(blocker, "child"), []byte("y"), 0644, 0755); err == nil {
		t.Fatal("expected error when the parent is a regular file")
	}
}

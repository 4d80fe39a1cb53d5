package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "strips", "strip.png")

	if err := New().WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("expected %q, got %q", "first", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != filePerm {
		t.Errorf("expected mode %o, got %o", filePerm, info.Mode().Perm())
	}
}

func TestFileSystem_WriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strip.png")
	fs := New()

	for _, content := range []string{"a much longer first strip", "short"} {
		if err := fs.WriteFile(path, []byte(content)); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	data, _ := os.ReadFile(path)
	if string(data) != "short" {
		t.Errorf("expected replaced content, got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the strip, got %v", names)
	}
}

func TestFileSystem_WriteFileIntoMissingParentFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := New().WriteFile(filepath.Join(blocker, "strip.png"), []byte("x")); err == nil {
		t.Error("expected error when the parent is a file")
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug", "slots")
	if err := New().MkdirAll(path); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s, got %v", path, err)
	}
}

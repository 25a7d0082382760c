package target

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
)

func TestUNCUploadCopiesFileToRemoteRoot(t *testing.T) {
	srcDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "nested")

	archive := filepath.Join(srcDir, "Documents-2026-01-02.7z")
	if err := os.WriteFile(archive, []byte("archive-bytes"), 0o644); err != nil {
		t.Fatalf("writing fixture archive: %v", err)
	}

	u := &UNC{Log: logr.Discard(), Name: "unc1", RemoteRoot: destDir}
	result, err := u.Upload(context.Background(), archive)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected Success=true")
	}

	got, err := os.ReadFile(result.RemotePath)
	if err != nil {
		t.Fatalf("reading copied archive: %v", err)
	}
	if string(got) != "archive-bytes" {
		t.Errorf("copied contents = %q, want %q", got, "archive-bytes")
	}
}

func TestUNCListSortsNewestFirst(t *testing.T) {
	root := t.TempDir()
	older := filepath.Join(root, "a.7z")
	newer := filepath.Join(root, "b.7z")
	if err := os.WriteFile(older, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	olderTime := mustStat(t, older).ModTime()
	if err := os.Chtimes(newer, olderTime.Add(1), olderTime.Add(1)); err != nil {
		t.Fatal(err)
	}

	u := &UNC{Log: logr.Discard(), Name: "unc1", RemoteRoot: root}
	archives, err := u.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("got %d archives, want 2", len(archives))
	}
	if archives[0].RemotePath != newer {
		t.Errorf("newest-first entry = %q, want %q", archives[0].RemotePath, newer)
	}
}

func TestUNCDeleteRemovesFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.7z")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	u := &UNC{Log: logr.Discard(), Name: "unc1", RemoteRoot: root}
	if err := u.Delete(context.Background(), path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}
}

func mustStat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info
}

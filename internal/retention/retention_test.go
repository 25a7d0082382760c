package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/target"
)

func TestApplyLocalKeepsNewestAndPrunesRest(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.7z", "b.7z", "c.7z"}
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
		modTime := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatal(err)
		}
	}

	action, err := ApplyLocal(logr.Discard(), dir, "*.7z", 2)
	if err != nil {
		t.Fatalf("ApplyLocal() error = %v", err)
	}
	if action.Kept != 2 {
		t.Errorf("Kept = %d, want 2", action.Kept)
	}
	if len(action.Removed) != 1 || filepath.Base(action.Removed[0]) != "a.7z" {
		t.Errorf("Removed = %v, want [a.7z]", action.Removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.7z")); !os.IsNotExist(err) {
		t.Error("expected oldest archive to be removed from disk")
	}
	if _, err := os.Stat(filepath.Join(dir, "c.7z")); err != nil {
		t.Error("expected newest archive to survive")
	}
}

func TestApplyLocalZeroKeepCountDisablesPruning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.7z")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	action, err := ApplyLocal(logr.Discard(), dir, "*.7z", 0)
	if err != nil {
		t.Fatalf("ApplyLocal() error = %v", err)
	}
	if len(action.Removed) != 0 {
		t.Errorf("expected no removals with keepCount<=0, got %v", action.Removed)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("expected archive to survive when pruning is disabled")
	}
}

type fakeRetentionTarget struct {
	archives  []target.RemoteArchive
	deleted   []string
	deleteErr error
}

func (f *fakeRetentionTarget) Upload(ctx context.Context, localArchivePath string) (target.TransferResult, error) {
	return target.TransferResult{}, errors.New("not used")
}

func (f *fakeRetentionTarget) List(ctx context.Context) ([]target.RemoteArchive, error) {
	return f.archives, nil
}

func (f *fakeRetentionTarget) Delete(ctx context.Context, remotePath string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, remotePath)
	return nil
}

func TestApplyTargetKeepsNewestAndDeletesRest(t *testing.T) {
	now := time.Now()
	ft := &fakeRetentionTarget{archives: []target.RemoteArchive{
		{RemotePath: "a.7z", ModTime: now.Add(-2 * time.Hour)},
		{RemotePath: "b.7z", ModTime: now.Add(-1 * time.Hour)},
		{RemotePath: "c.7z", ModTime: now},
	}}

	action, err := ApplyTarget(context.Background(), logr.Discard(), "remote1", ft, 2)
	if err != nil {
		t.Fatalf("ApplyTarget() error = %v", err)
	}
	if action.Kept != 2 {
		t.Errorf("Kept = %d, want 2", action.Kept)
	}
	if len(ft.deleted) != 1 || ft.deleted[0] != "a.7z" {
		t.Errorf("deleted = %v, want [a.7z]", ft.deleted)
	}
}

func TestApplyTargetZeroKeepCountDisablesPruning(t *testing.T) {
	ft := &fakeRetentionTarget{archives: []target.RemoteArchive{{RemotePath: "a.7z"}}}

	action, err := ApplyTarget(context.Background(), logr.Discard(), "remote1", ft, 0)
	if err != nil {
		t.Fatalf("ApplyTarget() error = %v", err)
	}
	if len(ft.deleted) != 0 {
		t.Errorf("expected no deletions with keepCount<=0, got %v", ft.deleted)
	}
	_ = action
}

func TestApplyTargetDeleteFailureIsNotFatal(t *testing.T) {
	now := time.Now()
	ft := &fakeRetentionTarget{
		archives: []target.RemoteArchive{
			{RemotePath: "a.7z", ModTime: now.Add(-time.Hour)},
			{RemotePath: "b.7z", ModTime: now},
		},
		deleteErr: errors.New("permission denied"),
	}

	action, err := ApplyTarget(context.Background(), logr.Discard(), "remote1", ft, 1)
	if err != nil {
		t.Fatalf("ApplyTarget() error = %v", err)
	}
	if len(action.Removed) != 0 {
		t.Errorf("expected no successful removals recorded, got %v", action.Removed)
	}
}

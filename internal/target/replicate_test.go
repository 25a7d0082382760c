package target

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
)

type fakeTarget struct {
	name       string
	uploadErr  error
	uploadedAt []string
	archives   []RemoteArchive
	listErr    error
	deleteErr  error
	deleted    []string
}

func (f *fakeTarget) Upload(ctx context.Context, localArchivePath string) (TransferResult, error) {
	if f.uploadErr != nil {
		return TransferResult{TargetName: f.name, Success: false}, f.uploadErr
	}
	f.uploadedAt = append(f.uploadedAt, localArchivePath)
	return TransferResult{TargetName: f.name, Success: true}, nil
}

func (f *fakeTarget) List(ctx context.Context) ([]RemoteArchive, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.archives, nil
}

func (f *fakeTarget) Delete(ctx context.Context, remotePath string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, remotePath)
	return nil
}

func TestReplicateUploadFansOutToAllDestinations(t *testing.T) {
	a := &fakeTarget{name: "a"}
	b := &fakeTarget{name: "b"}
	r := &Replicate{Log: logr.Discard(), Name: "replica", Destinations: []Provider{a, b}}

	result, err := r.Upload(context.Background(), "/tmp/archive.7z")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected Success=true when every destination succeeds")
	}
	if len(a.uploadedAt) != 1 || len(b.uploadedAt) != 1 {
		t.Errorf("expected both destinations to receive the upload, got a=%v b=%v", a.uploadedAt, b.uploadedAt)
	}
}

func TestReplicateUploadAggregatesPartialFailure(t *testing.T) {
	a := &fakeTarget{name: "a"}
	b := &fakeTarget{name: "b", uploadErr: errors.New("disk full")}
	r := &Replicate{Log: logr.Discard(), Name: "replica", Destinations: []Provider{a, b}}

	result, err := r.Upload(context.Background(), "/tmp/archive.7z")
	if err == nil {
		t.Fatal("expected an aggregate error when one destination fails")
	}
	if result.Success {
		t.Error("expected Success=false when any destination fails")
	}
	if len(a.uploadedAt) != 1 {
		t.Error("expected the succeeding destination to still receive the upload")
	}
}

func TestReplicateListIsNotSupported(t *testing.T) {
	r := &Replicate{Log: logr.Discard(), Name: "replica"}
	if _, err := r.List(context.Background()); err == nil {
		t.Fatal("expected Replicate.List to return an error directing callers to per-destination listing")
	}
}

func TestReplicateDeleteIsNotSupported(t *testing.T) {
	r := &Replicate{Log: logr.Discard(), Name: "replica"}
	if err := r.Delete(context.Background(), "whatever"); err == nil {
		t.Fatal("expected Replicate.Delete to return an error directing callers to per-destination deletion")
	}
}

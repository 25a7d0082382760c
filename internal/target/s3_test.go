package target

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-logr/logr"
)

type fakeS3Client struct {
	putErr    error
	listErr   error
	deleteErr error

	putCalls []string
	objects  []types.Object
}

func (f *fakeS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.putCalls = append(f.putCalls, aws.ToString(params.Key))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &s3.ListObjectsV2Output{Contents: f.objects}, nil
}

func (f *fakeS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3UploadPutsUnderPrefix(t *testing.T) {
	dir := t.TempDir()
	archive := dir + "/Documents-2026-01-02.7z"
	if err := os.WriteFile(archive, []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &fakeS3Client{}
	target := &S3{Log: logr.Discard(), Name: "s3main", Config: S3Config{Bucket: "bkt", Prefix: "backups"}, client: client}

	result, err := target.Upload(context.Background(), archive)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected Success=true")
	}
	if result.RemotePath != "backups/Documents-2026-01-02.7z" {
		t.Errorf("RemotePath = %q, want %q", result.RemotePath, "backups/Documents-2026-01-02.7z")
	}
	if len(client.putCalls) != 1 || client.putCalls[0] != result.RemotePath {
		t.Errorf("unexpected PutObject calls: %v", client.putCalls)
	}
}

func TestS3UploadFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	archive := dir + "/a.7z"
	if err := os.WriteFile(archive, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &fakeS3Client{putErr: errors.New("access denied")}
	target := &S3{Log: logr.Discard(), Name: "s3main", Config: S3Config{Bucket: "bkt"}, client: client}

	result, err := target.Upload(context.Background(), archive)
	if err == nil {
		t.Fatal("expected Upload to fail")
	}
	if result.Success {
		t.Error("expected Success=false")
	}
}

func TestS3ListSortsNewestFirst(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeS3Client{objects: []types.Object{
		{Key: aws.String("backups/old.7z"), LastModified: aws.Time(now)},
		{Key: aws.String("backups/new.7z"), LastModified: aws.Time(now.Add(time.Hour))},
	}}
	target := &S3{Log: logr.Discard(), Name: "s3main", Config: S3Config{Bucket: "bkt"}, client: client}

	archives, err := target.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(archives) != 2 || archives[0].RemotePath != "backups/new.7z" {
		t.Errorf("unexpected order: %+v", archives)
	}
}

func TestS3DeleteCallsDeleteObject(t *testing.T) {
	client := &fakeS3Client{}
	target := &S3{Log: logr.Discard(), Name: "s3main", Config: S3Config{Bucket: "bkt"}, client: client}

	if err := target.Delete(context.Background(), "backups/old.7z"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestS3DeleteFailurePropagates(t *testing.T) {
	client := &fakeS3Client{deleteErr: errors.New("not found")}
	target := &S3{Log: logr.Discard(), Name: "s3main", Config: S3Config{Bucket: "bkt"}, client: client}

	if err := target.Delete(context.Background(), "backups/old.7z"); err == nil {
		t.Fatal("expected Delete to propagate error")
	}
}

package target

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-logr/logr"
)

// S3Config holds the settings decoded from a BackupTarget's
// TargetSpecificSettings when Type=S3.
type S3Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Client is the subset of the S3 API the target needs, so tests can
// substitute a fake rather than hitting a real bucket.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 uploads archives to an S3-compatible object store, generalizing
// Replicate's UNC/SFTP destinations with an object-storage kind, grounded
// directly on diggerhq-opencomputer/internal/storage/s3.go's
// CheckpointStore.Upload/Delete.
type S3 struct {
	Log    logr.Logger
	Name   string
	Config S3Config
	client S3Client
}

// NewS3 returns an S3 target backed by cfg's credentials, or the default
// AWS credential chain when AccessKeyID is empty — mirroring
// CheckpointStore's NewCheckpointStore constructor.
func NewS3(ctx context.Context, log logr.Logger, name string, cfg S3Config) (*S3, error) {
	var client *s3.Client

	optFns := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		},
	}

	if cfg.AccessKeyID != "" {
		optFns = append(optFns, func(o *s3.Options) {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		})
		client = s3.New(s3.Options{}, optFns...)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for S3 target %q: %w", name, err)
		}
		client = s3.NewFromConfig(awsCfg, optFns...)
	}

	return &S3{Log: log, Name: name, Config: cfg, client: client}, nil
}

func (t *S3) key(localArchivePath string) string {
	return path.Join(t.Config.Prefix, path.Base(localArchivePath))
}

func (t *S3) Upload(ctx context.Context, localArchivePath string) (TransferResult, error) {
	start := time.Now()

	f, err := os.Open(localArchivePath)
	if err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "S3", Success: false, Message: err.Error()}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "S3", Success: false, Message: err.Error()}, err
	}

	key := t.key(localArchivePath)
	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.Config.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "S3", Success: false, Message: err.Error()}, fmt.Errorf("uploading %s to S3: %w", key, err)
	}

	return TransferResult{
		TargetName: t.Name, TargetType: "S3", Success: true,
		RemotePath: key, Duration: time.Since(start),
	}, nil
}

func (t *S3) List(ctx context.Context) ([]RemoteArchive, error) {
	out, err := t.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.Config.Bucket),
		Prefix: aws.String(t.Config.Prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("listing S3 objects under %s: %w", t.Config.Prefix, err)
	}
	archives := make([]RemoteArchive, 0, len(out.Contents))
	for _, obj := range out.Contents {
		archives = append(archives, RemoteArchive{RemotePath: aws.ToString(obj.Key), ModTime: aws.ToTime(obj.LastModified)})
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].ModTime.After(archives[j].ModTime) })
	return archives, nil
}

func (t *S3) Delete(ctx context.Context, remotePath string) error {
	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(t.Config.Bucket),
		Key:    aws.String(remotePath),
	})
	if err != nil {
		return fmt.Errorf("deleting %s from S3: %w", remotePath, err)
	}
	return nil
}

// Package target implements the remote-target provider boundary named in
// spec §1 ("Remote-target transfer providers — specified only at their
// interface boundary") and §6's BackupTargets configuration: UNC, SFTP,
// Replicate, and an S3-compatible provider.
package target

import (
	"context"
	"time"
)

// TransferResult reports one provider's outcome for a single archive
// upload.
type TransferResult struct {
	TargetName string
	TargetType string
	Success    bool
	Message    string
	Duration   time.Duration
	RemotePath string
}

// Provider is the capability every remote-target type implements: upload
// one archive, list existing archives for retention, and delete one by
// remote path.
type Provider interface {
	Upload(ctx context.Context, localArchivePath string) (TransferResult, error)
	List(ctx context.Context) ([]RemoteArchive, error)
	Delete(ctx context.Context, remotePath string) error
}

// RemoteArchive is one archive generation as seen by a target's List,
// consumed by internal/retention to decide what KeepCount keeps or prunes.
type RemoteArchive struct {
	RemotePath string
	ModTime    time.Time
}

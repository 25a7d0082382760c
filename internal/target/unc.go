package target

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-logr/logr"
)

// UNC copies archives to a Windows UNC or plain local/mapped path via a
// plain os.Open/os.Create/io.Copy, the same primitive diggerhq-opencomputer
// reaches for everywhere it moves a single file (see e.g.
// internal/firecracker/manager.go's rootfs/workspace staging) — no
// third-party library wraps a bare file copy, so this stays stdlib.
type UNC struct {
	Log        logr.Logger
	Name       string
	RemoteRoot string
}

func (u *UNC) Upload(ctx context.Context, localArchivePath string) (TransferResult, error) {
	start := time.Now()
	dest := filepath.Join(u.RemoteRoot, filepath.Base(localArchivePath))

	if err := os.MkdirAll(u.RemoteRoot, 0o755); err != nil {
		return TransferResult{TargetName: u.Name, TargetType: "UNC", Success: false, Message: err.Error()}, err
	}

	src, err := os.Open(localArchivePath)
	if err != nil {
		return TransferResult{TargetName: u.Name, TargetType: "UNC", Success: false, Message: err.Error()}, err
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return TransferResult{TargetName: u.Name, TargetType: "UNC", Success: false, Message: err.Error()}, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return TransferResult{TargetName: u.Name, TargetType: "UNC", Success: false, Message: err.Error()}, err
	}

	return TransferResult{
		TargetName: u.Name, TargetType: "UNC", Success: true,
		RemotePath: dest, Duration: time.Since(start),
	}, nil
}

func (u *UNC) List(ctx context.Context) ([]RemoteArchive, error) {
	entries, err := os.ReadDir(u.RemoteRoot)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", u.RemoteRoot, err)
	}
	archives := make([]RemoteArchive, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		archives = append(archives, RemoteArchive{RemotePath: filepath.Join(u.RemoteRoot, e.Name()), ModTime: info.ModTime()})
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].ModTime.After(archives[j].ModTime) })
	return archives, nil
}

func (u *UNC) Delete(ctx context.Context, remotePath string) error {
	return os.Remove(remotePath)
}

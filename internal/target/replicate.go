package target

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Replicate fans an upload out to every inner destination independently.
// Per DESIGN.md's Open Question 1 decision, a conflicting
// RetentionSettings.KeepCount on two inner destinations is not reconciled
// here: each destination applies its own KeepCount, independently of the
// others, exactly as if it were configured as a standalone target.
type Replicate struct {
	Log          logr.Logger
	Name         string
	Destinations []Provider
}

func (t *Replicate) Upload(ctx context.Context, localArchivePath string) (TransferResult, error) {
	start := time.Now()
	var failures []string

	for _, dest := range t.Destinations {
		if _, err := dest.Upload(ctx, localArchivePath); err != nil {
			failures = append(failures, err.Error())
		}
	}

	if len(failures) > 0 {
		msg := fmt.Sprintf("%d of %d destinations failed: %v", len(failures), len(t.Destinations), failures)
		return TransferResult{TargetName: t.Name, TargetType: "Replicate", Success: false, Message: msg, Duration: time.Since(start)}, fmt.Errorf("%s", msg)
	}

	return TransferResult{TargetName: t.Name, TargetType: "Replicate", Success: true, Duration: time.Since(start)}, nil
}

// List is not meaningful for Replicate itself — retention walks
// t.Destinations individually, each with its own KeepCount.
func (t *Replicate) List(ctx context.Context) ([]RemoteArchive, error) {
	return nil, fmt.Errorf("replicate target has no single archive listing; list each destination independently")
}

func (t *Replicate) Delete(ctx context.Context, remotePath string) error {
	return fmt.Errorf("replicate target has no single delete; delete from each destination independently")
}

// Package retention implements local and per-target archive retention:
// keeping the newest KeepCount generations and pruning the rest, per
// spec §6's BackupTargets.*.RetentionSettings and DESIGN.md's Open
// Question 1 decision (Replicate applies KeepCount independently per
// destination).
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/target"
)

// Action records what retention did at one location, for the JobReport.
type Action struct {
	Location string
	Kept     int
	Removed  []string
}

// ApplyLocal keeps the newest keepCount archives matching pattern in dir
// and removes the rest. keepCount <= 0 disables pruning.
func ApplyLocal(log logr.Logger, dir, pattern string, keepCount int) (Action, error) {
	if keepCount <= 0 {
		return Action{Location: dir}, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return Action{}, fmt.Errorf("globbing %s: %w", dir, err)
	}

	type fileWithTime struct {
		path string
		mod  time.Time
	}
	files := make([]fileWithTime, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, fileWithTime{path: m, mod: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })

	action := Action{Location: dir, Kept: min(keepCount, len(files))}
	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			log.Error(err, "failed to remove old local archive", "path", files[i].path)
			continue
		}
		action.Removed = append(action.Removed, files[i].path)
	}
	return action, nil
}

// ApplyTarget keeps the newest keepCount archives a Provider reports and
// deletes the rest via the provider's own Delete. keepCount <= 0 disables
// pruning.
func ApplyTarget(ctx context.Context, log logr.Logger, targetName string, p target.Provider, keepCount int) (Action, error) {
	if keepCount <= 0 {
		return Action{Location: targetName}, nil
	}

	archives, err := p.List(ctx)
	if err != nil {
		return Action{}, fmt.Errorf("listing archives on target %q: %w", targetName, err)
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].ModTime.After(archives[j].ModTime) })

	action := Action{Location: targetName, Kept: min(keepCount, len(archives))}
	for i := keepCount; i < len(archives); i++ {
		if err := p.Delete(ctx, archives[i].RemotePath); err != nil {
			log.Error(err, "failed to remove old remote archive", "target", targetName, "path", archives[i].RemotePath)
			continue
		}
		action.Removed = append(action.Removed, archives[i].RemotePath)
	}
	return action, nil
}

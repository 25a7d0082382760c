package jobengine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/hook"
	"github.com/BootBlock/poshbackup/internal/metrics"
	"github.com/BootBlock/poshbackup/internal/retention"
	"github.com/BootBlock/poshbackup/internal/target"
)

// PostProcessor is JobPostProcessor (spec §2 step 9): it transfers the
// archive to every configured remote target, applies local and per-target
// retention, and runs post-backup hooks. Ordering follows spec §5's
// "transfer precedes retention; retention precedes reporting and
// post-hooks".
type PostProcessor struct {
	Log   logr.Logger
	Hooks *hook.Runner
}

// Run transfers archivePath to every target built from eff's resolved
// target instances, applies retention locally and on each target, and
// fires the post-backup hook matching the job's outcome.
func (pp *PostProcessor) Run(ctx context.Context, eff *config.EffectiveJobConfig, allTargets map[string]config.BackupTarget, archivePath string, jobStatus Status, configFile string, report *Report) {
	for i, spec := range eff.ResolvedTargetInstances {
		name := eff.TargetNames[i]
		provider, err := target.Build(ctx, pp.Log, name, spec, allTargets)
		if err != nil {
			report.TargetResults = append(report.TargetResults, TargetTransferResult{TargetName: name, TargetType: string(spec.Type), Success: false, Message: err.Error()})
			continue
		}

		result, err := provider.Upload(ctx, archivePath)
		report.TargetResults = append(report.TargetResults, TargetTransferResult{
			TargetName: name, TargetType: string(spec.Type), Success: result.Success,
			Message: result.Message, Duration: result.Duration,
		})
		transferStatus := "success"
		if !result.Success {
			transferStatus = "failure"
		}
		metrics.TargetTransferDuration.WithLabelValues(name, string(spec.Type), transferStatus).Observe(result.Duration.Seconds())
		if err != nil {
			pp.Log.Error(err, "target upload failed", "target", name)
			continue
		}

		if spec.Type == config.TargetTypeReplicate {
			pp.applyReplicateRetention(ctx, spec, allTargets, report)
			continue
		}

		action, err := retention.ApplyTarget(ctx, pp.Log, name, provider, spec.RetentionSettings.KeepCount)
		if err != nil {
			pp.Log.Error(err, "target retention failed", "target", name)
		} else {
			report.RetentionActions = append(report.RetentionActions, RetentionAction{Location: action.Location, Kept: action.Kept, Removed: action.Removed})
		}
	}

	// No dedicated local-staging KeepCount exists in EffectiveJobConfig; 0
	// disables pruning and leaves the staging directory as-is.
	localAction, err := retention.ApplyLocal(pp.Log, filepath.Dir(archivePath), "*"+eff.ArchiveExtension, 0)
	if err != nil {
		pp.Log.Error(err, "local retention failed")
	} else if localAction.Location != "" {
		report.RetentionActions = append(report.RetentionActions, RetentionAction{Location: localAction.Location, Kept: localAction.Kept, Removed: localAction.Removed})
	}

	pp.runPostHook(ctx, eff, jobStatus, configFile, report)
}

// applyReplicateRetention recurses over a Replicate target's named
// destinations (config.BackupTarget.TargetSpecificSettings["Destinations"])
// and applies each inner destination's own RetentionSettings.KeepCount
// independently, per SPEC_FULL.md's "apply each inner destination's
// KeepCount independently" resolution. A destination that is itself a
// Replicate target recurses further.
func (pp *PostProcessor) applyReplicateRetention(ctx context.Context, spec config.BackupTarget, allTargets map[string]config.BackupTarget, report *Report) {
	names, _ := spec.TargetSpecificSettings["Destinations"].([]interface{})
	for _, n := range names {
		destName, ok := n.(string)
		if !ok {
			continue
		}
		destSpec, ok := allTargets[destName]
		if !ok {
			pp.Log.Info("replicate destination not found in target registry, skipping retention", "destination", destName)
			continue
		}
		if destSpec.Type == config.TargetTypeReplicate {
			pp.applyReplicateRetention(ctx, destSpec, allTargets, report)
			continue
		}

		destProvider, err := target.Build(ctx, pp.Log, destName, destSpec, allTargets)
		if err != nil {
			pp.Log.Error(err, "failed to build replicate destination for retention", "destination", destName)
			continue
		}
		action, err := retention.ApplyTarget(ctx, pp.Log, destName, destProvider, destSpec.RetentionSettings.KeepCount)
		if err != nil {
			pp.Log.Error(err, "target retention failed", "target", destName)
			continue
		}
		report.RetentionActions = append(report.RetentionActions, RetentionAction{Location: action.Location, Kept: action.Kept, Removed: action.Removed})
	}
}

// runPostHook fires PostBackupScriptOnSuccessPath for SUCCESS or
// SIMULATED_COMPLETE and PostBackupScriptOnFailurePath for FAILURE (neither
// for any other status), plus PostBackupScriptAlwaysPath on every call, per
// spec §4.8.
func (pp *PostProcessor) runPostHook(ctx context.Context, eff *config.EffectiveJobConfig, jobStatus Status, configFile string, report *Report) {
	if pp.Hooks == nil {
		return
	}

	args := hook.Args{JobName: eff.JobName, Status: string(jobStatus), ConfigFile: configFile, SimulateMode: eff.Simulate}

	var conditional string
	switch jobStatus {
	case StatusSuccess, StatusSimulatedComplete:
		conditional = eff.PostBackupScriptOnSuccessPath
	case StatusFailure:
		conditional = eff.PostBackupScriptOnFailurePath
	}
	if conditional != "" {
		report.HookResults = append(report.HookResults, pp.Hooks.Run(ctx, fmt.Sprintf("PostBackupScript[%s]", jobStatus), conditional, args))
	}
	if eff.PostBackupScriptAlwaysPath != "" {
		report.HookResults = append(report.HookResults, pp.Hooks.Run(ctx, "PostBackupScript[Always]", eff.PostBackupScriptAlwaysPath, args))
	}
}

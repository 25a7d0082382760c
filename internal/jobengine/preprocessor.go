package jobengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/confirm"
	"github.com/BootBlock/poshbackup/internal/errs"
	"github.com/BootBlock/poshbackup/internal/hook"
	"github.com/BootBlock/poshbackup/internal/secret"
	"github.com/BootBlock/poshbackup/internal/snapshot"
	"github.com/BootBlock/poshbackup/internal/vss"
)

// PreProcessStatus is JobPreProcessor's hand-back status, per spec §4.9
// step 6.
type PreProcessStatus string

const (
	Proceed PreProcessStatus = "Proceed"
	SkipJob PreProcessStatus = "SkipJob"
	FailJob PreProcessStatus = "FailJob"
)

// PreProcessResult is the full hand-back record of spec §4.9 step 6.
type PreProcessResult struct {
	Status               PreProcessStatus
	ResolvedSources      []string
	VssMap               vss.ShadowMap
	VssActive            bool
	SnapshotSession       *snapshot.Session
	SnapshotProviderName  string
	Password              *secret.String
	PasswordSourceLabel   string
	ErrorMessage          string
	Err                   error
	HookResults           []hook.Record
}

// PreProcessor is the JobPreProcessor orchestrator of spec §4.9: it
// executes the six ordered steps with strict short-circuit on error, and
// forcibly releases any resource already in hand if a later step fails.
type PreProcessor struct {
	Log       logr.Logger
	Confirm   *confirm.Gate
	Secrets   *secret.Resolver
	VSS       *vss.Coordinator
	Snapshots *snapshot.Coordinator
	Hooks     *hook.Runner
}

// Run executes the pre-processing pipeline for eff. configFile and
// simulate are passed through to the pre-backup hook's Args.
func (p *PreProcessor) Run(ctx context.Context, eff *config.EffectiveJobConfig, configFile string) (out *PreProcessResult) {
	result := &PreProcessResult{Status: Proceed}
	defer func() {
		if rec := recover(); rec != nil {
			out = p.fail(ctx, result, fmt.Errorf("panic during pre-processing: %v", rec))
		}
	}()

	// Step 1: source validation.
	sources, status, msg, err := p.validateSources(eff)
	if err != nil {
		return p.fail(ctx, result, err)
	}
	if status != Proceed {
		result.Status = status
		result.ErrorMessage = msg
		return result
	}
	result.ResolvedSources = sources

	// Step 2: destination preparation.
	if !eff.Simulate {
		if err := p.prepareDestination(eff); err != nil {
			return p.fail(ctx, result, err)
		}
	}

	// Step 3: secret retrieval.
	password, err := p.Secrets.Resolve(ctx, eff)
	if err != nil {
		return p.fail(ctx, result, err)
	}
	result.Password = password
	result.PasswordSourceLabel = string(eff.ArchivePasswordMethod)

	// Step 4: pre-backup hook.
	if eff.PreBackupScriptPath != "" && p.Hooks != nil {
		record := p.Hooks.Run(ctx, "PreBackupScript", eff.PreBackupScriptPath, hook.Args{
			JobName:      eff.JobName,
			Status:       "RUNNING",
			ConfigFile:   configFile,
			SimulateMode: eff.Simulate,
		})
		result.HookResults = append(result.HookResults, record)
	}

	// Step 5: snapshot or VSS.
	if eff.SnapshotProviderName != "" && eff.SourceIsVMName {
		session, translated, err := p.Snapshots.Create(ctx, eff.SnapshotProviderName, result.ResolvedSources)
		if err != nil {
			return p.fail(ctx, result, err)
		}
		result.SnapshotSession = &session
		result.SnapshotProviderName = eff.SnapshotProviderName
		result.ResolvedSources = translated
	} else if eff.EnableVSS {
		shadowMap, err := p.VSS.Create(ctx, result.ResolvedSources, eff)
		if err != nil {
			return p.fail(ctx, result, err)
		}
		result.VssMap = shadowMap
		result.VssActive = true
		result.ResolvedSources = applyShadowMap(result.ResolvedSources, shadowMap)
	}

	return result
}

// fail zeroes any password already in hand, forcibly releases VSS/snapshot
// resources, and returns a FailJob result, per spec §4.9's final
// paragraph: "both VSS shadows and snapshot sessions in hand are forcibly
// released, plaintext is zeroed, and a FailJob is returned".
func (p *PreProcessor) fail(ctx context.Context, result *PreProcessResult, err error) *PreProcessResult {
	reaper := &Reaper{Log: p.Log, VSS: p.VSS}
	reaper.Release(ctx, result.VssActive, p.Snapshots, result.SnapshotProviderName, result.SnapshotSession, result.Password)
	result.Status = FailJob
	result.ErrorMessage = err.Error()
	result.Err = err
	return result
}

// validateSources checks every configured source path for existence (with
// wildcard support via filepath.Glob) and applies the configured
// OnSourcePathNotFound policy, per spec §4.9 step 1.
func (p *PreProcessor) validateSources(eff *config.EffectiveJobConfig) ([]string, PreProcessStatus, string, error) {
	var valid []string

	for _, src := range eff.SourcePaths {
		if strings.ContainsAny(src, "*?[") {
			matches, err := filepath.Glob(src)
			if err != nil || len(matches) == 0 {
				continue
			}
			valid = append(valid, matches...)
			continue
		}
		if _, err := os.Stat(src); err != nil {
			switch eff.OnSourcePathNotFound {
			case config.OnMissingSourceFailJob:
				return nil, "", "", &errs.SourceError{Kind: errs.SourceNotFound, Path: src, Message: "source path does not exist"}
			case config.OnMissingSourceSkipJob:
				return nil, SkipJob, fmt.Sprintf("source path %q does not exist", src), nil
			case config.OnMissingSourceWarnAndContinue:
				p.Log.Info("source path does not exist, dropping from set", "path", src)
				continue
			default:
				return nil, "", "", &errs.SourceError{Kind: errs.SourceNotFound, Path: src, Message: "source path does not exist"}
			}
		}
		valid = append(valid, src)
	}

	if len(valid) == 0 {
		return nil, SkipJob, "no valid source paths", nil
	}
	return valid, Proceed, "", nil
}

// prepareDestination creates eff.DestinationDir if missing, subject to
// confirmation, per spec §4.9 step 2.
func (p *PreProcessor) prepareDestination(eff *config.EffectiveJobConfig) error {
	if _, err := os.Stat(eff.DestinationDir); err == nil {
		return nil
	}
	if p.Confirm != nil {
		outcome := p.Confirm.Ask(fmt.Sprintf("create staging directory %q?", eff.DestinationDir))
		if outcome == confirm.No {
			return fmt.Errorf("operator declined to create staging directory %q", eff.DestinationDir)
		}
	}
	if err := os.MkdirAll(eff.DestinationDir, 0o755); err != nil {
		return fmt.Errorf("creating staging directory %q: %w", eff.DestinationDir, err)
	}
	return nil
}

func applyShadowMap(sources []string, shadowMap vss.ShadowMap) []string {
	translated := make([]string, len(sources))
	for i, src := range sources {
		if mapped, ok := shadowMap[src]; ok {
			translated[i] = mapped
		} else {
			translated[i] = src
		}
	}
	return translated
}

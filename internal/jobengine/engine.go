package jobengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/confirm"
	"github.com/BootBlock/poshbackup/internal/effective"
	"github.com/BootBlock/poshbackup/internal/hook"
	"github.com/BootBlock/poshbackup/internal/metrics"
	"github.com/BootBlock/poshbackup/internal/secret"
	"github.com/BootBlock/poshbackup/internal/sevenzip"
	"github.com/BootBlock/poshbackup/internal/snapshot"
	"github.com/BootBlock/poshbackup/internal/vss"
)

// Engine wires every collaborator named in spec §2 and runs jobs/sets
// through them in dependency order.
type Engine struct {
	Log        logr.Logger
	Global     *config.GlobalConfig
	ConfigFile string

	Resolver  *effective.Resolver
	Secrets   *secret.Resolver
	VSS       *vss.Coordinator
	Snapshots *snapshot.Coordinator
	Hooks     *hook.Runner
	Confirm   *confirm.Gate
	Invoker   *sevenzip.Invoker
	Tester    *sevenzip.Tester

	Now func() time.Time
}

// New wires a ready-to-run Engine from a validated GlobalConfig.
// confirmInteractive mirrors the CLI's -Confirm flag (spec §6/§9): when
// true, confirm.Gate.Ask prompts before consequential steps instead of
// assuming Yes.
func New(log logr.Logger, global *config.GlobalConfig, configFile string, confirmInteractive bool) *Engine {
	secretsResolver := secret.New(log)
	invoker := sevenzip.NewInvoker(log)
	snapshotRegistry := snapshot.NewRegistry()
	snapshotRegistry.Register("hyperv", snapshot.NewHypervisorProvider(log))

	return &Engine{
		Log:        log,
		Global:     global,
		ConfigFile: configFile,
		Resolver:   effective.New(global),
		Secrets:    secretsResolver,
		VSS:        vss.NewCoordinator(log),
		Snapshots:  snapshot.NewCoordinator(log, snapshotRegistry),
		Hooks:      hook.New(log),
		Confirm:    confirm.New(confirmInteractive),
		Invoker:    invoker,
		Tester:     sevenzip.NewTester(invoker),
		Now:        time.Now,
	}
}

// RunJob executes one job end-to-end: pre-processing, 7-Zip invocation,
// testing, post-processing, and guaranteed resource release, per spec §2.
func (e *Engine) RunJob(ctx context.Context, jobName, setName string, cli config.CLIOverrides) *Report {
	now := e.Now()
	report := NewReport(jobName, now)
	defer func() {
		metrics.JobDuration.WithLabelValues(jobName, string(report.Status)).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		metrics.JobsTotal.WithLabelValues(string(report.Status)).Inc()
	}()

	eff, err := e.Resolver.Resolve(jobName, setName, cli)
	if err != nil {
		report.Err = err
		report.Finish(StatusFailure, err.Error(), e.Now())
		return report
	}
	if !eff.Enabled {
		report.Finish(StatusSkipped, "job disabled", e.Now())
		return report
	}
	report.ReportGeneratorTypes = eff.ReportGeneratorTypes

	pre := &PreProcessor{Log: e.Log, Confirm: e.Confirm, Secrets: e.Secrets, VSS: e.VSS, Snapshots: e.Snapshots, Hooks: e.Hooks}
	preResult := pre.Run(ctx, eff, e.ConfigFile)
	report.HookResults = append(report.HookResults, preResult.HookResults...)
	report.VSSUsed = preResult.VssActive
	report.VSSShadowCount = len(preResult.VssMap)
	if preResult.SnapshotSession != nil {
		report.SnapshotUsed = true
		report.SnapshotSessionID = preResult.SnapshotSession.SessionID
	}
	report.PasswordSource = preResult.PasswordSourceLabel
	report.EffectiveSources = preResult.ResolvedSources

	switch preResult.Status {
	case SkipJob:
		report.Finish(StatusSkipped, preResult.ErrorMessage, e.Now())
		return report
	case FailJob:
		report.Err = preResult.Err
		report.Finish(StatusFailure, preResult.ErrorMessage, e.Now())
		return report
	}

	reaper := &Reaper{Log: e.Log, VSS: e.VSS}
	defer reaper.Release(ctx, preResult.VssActive, e.Snapshots, preResult.SnapshotProviderName, preResult.SnapshotSession, preResult.Password)

	archivePath := e.archivePath(eff)
	report.ArchivePath = archivePath

	tempPasswordFile, passwordInUse, err := e.writeTempPasswordFile(preResult.Password)
	if err != nil {
		reaper.Release(ctx, preResult.VssActive, e.Snapshots, preResult.SnapshotProviderName, preResult.SnapshotSession, preResult.Password)
		report.Err = err
		report.Finish(StatusFailure, err.Error(), e.Now())
		return report
	}
	defer func() {
		if tempPasswordFile != "" {
			os.Remove(tempPasswordFile)
		}
	}()

	argTokens, err := sevenzip.BuildArgs(eff, sevenzip.ArchiveSpec{
		ArchivePath:      archivePath,
		SourcePaths:      preResult.ResolvedSources,
		PasswordInUse:    passwordInUse,
		TempPasswordFile: tempPasswordFile,
	})
	if err != nil {
		reaper.Release(ctx, preResult.VssActive, e.Snapshots, preResult.SnapshotProviderName, preResult.SnapshotSession, preResult.Password)
		report.Err = err
		report.Finish(StatusFailure, err.Error(), e.Now())
		return report
	}

	invInput := sevenzip.InvocationInput{
		ExePath:                e.Global.SevenZipPath,
		ArgTokens:              argTokens,
		Priority:               eff.SevenZipProcessPriority,
		CPUAffinity:            eff.SevenZipCpuAffinity,
		HideOutput:             true,
		Simulate:               eff.Simulate,
		MaxRetries:             eff.MaxRetryAttempts,
		RetryDelaySeconds:      eff.RetryDelaySeconds,
		EnableRetries:          eff.EnableRetries,
		TreatWarningsAsSuccess: eff.TreatSevenZipWarningsAsSuccess,
	}
	invResult, invErr := e.Invoker.Run(ctx, invInput)
	report.Invocation = invResult

	status := StatusSuccess
	if eff.Simulate {
		status = StatusSimulatedComplete
	}
	if invErr != nil {
		status = StatusFailure
		report.Err = invErr
	}

	if status != StatusFailure && eff.TestArchiveAfterCreation && !eff.Simulate {
		outcome, testResult, testErr := e.Tester.Test(ctx, invInput, archivePath, tempPasswordFile)
		report.TestOutcome = outcome
		report.Invocation = testResult
		if testErr != nil || outcome == sevenzip.TestFailed {
			status = StatusFailure
			report.Err = testErr
		} else if outcome == sevenzip.TestPassedWithWarnings && status == StatusSuccess {
			status = StatusWarnings
		}
	}

	if status != StatusFailure && eff.GenerateArchiveChecksum && !eff.Simulate {
		sum, err := computeChecksum(archivePath, eff.ChecksumAlgorithm)
		if err != nil {
			e.Log.Error(err, "failed to compute archive checksum")
		} else {
			report.Checksum = sum
			report.ChecksumAlgorithm = string(eff.ChecksumAlgorithm)
		}
	}

	if status != StatusFailure && !eff.Simulate {
		post := &PostProcessor{Log: e.Log, Hooks: e.Hooks}
		post.Run(ctx, eff, e.Global.BackupTargets, archivePath, status, e.ConfigFile, report)
		for _, tr := range report.TargetResults {
			if !tr.Success && status == StatusSuccess {
				status = StatusWarnings
			}
		}
	}

	// Resource cleanup ordering per spec §5: released after testing and
	// transfer but before post-run actions on the success path; on failure
	// it already happened at the first fail() call inside PreProcessor, or
	// happens here on the first opportunity after 7-Zip/testing failed.
	reaper.Release(ctx, preResult.VssActive, e.Snapshots, preResult.SnapshotProviderName, preResult.SnapshotSession, preResult.Password)

	message := ""
	if report.Err != nil {
		message = report.Err.Error()
	}
	report.Finish(status, message, e.Now())
	return report
}

// RunSet executes every job in a BackupSet in declaration order, honoring
// OnErrorInJob: StopSet halts on the first failing job, ContinueSet runs
// every job and reports set status WARNINGS if any failed, per spec §7.
func (e *Engine) RunSet(ctx context.Context, setName string, cli config.CLIOverrides) ([]*Report, Status) {
	set, ok := e.Global.BackupSets[setName]
	if !ok {
		return nil, StatusFailure
	}

	var reports []*Report
	setStatus := StatusSuccess
	for _, jobName := range set.JobNames {
		report := e.RunJob(ctx, jobName, setName, cli)
		reports = append(reports, report)

		var stop bool
		setStatus, stop = aggregateSetStatus(setStatus, report.Status, set.OnErrorInJob)
		if stop {
			return reports, setStatus
		}
	}
	return reports, setStatus
}

// aggregateSetStatus folds one job's outcome into the running set status,
// per spec §7: a failing job stops the set unless OnErrorInJob is
// ContinueSet, in which case the set degrades to WARNINGS and continues.
func aggregateSetStatus(current, jobStatus Status, onError config.OnErrorInJob) (next Status, stop bool) {
	if jobStatus == StatusFailure {
		if onError == config.OnErrorContinueSet {
			return StatusWarnings, false
		}
		return StatusFailure, true
	}
	if jobStatus == StatusWarnings && current == StatusSuccess {
		return StatusWarnings, false
	}
	return current, false
}

func (e *Engine) archivePath(eff *config.EffectiveJobConfig) string {
	dateStr := formatArchiveDate(eff.ArchiveDateFormat, e.Now())
	filename := fmt.Sprintf("%s-%s%s", eff.ArchiveBaseName, dateStr, eff.ArchiveExtension)
	return filepath.Join(eff.DestinationDir, filename)
}

// formatArchiveDate converts the job's yyyy-MMM-dd-style format string to a
// Go time layout and applies it, per spec §4.1's ArchiveDateFormat.
func formatArchiveDate(layout string, now time.Time) string {
	goLayout := strings.NewReplacer(
		"yyyy", "2006",
		"MMM", "Jan",
		"MM", "01",
		"dd", "02",
	).Replace(layout)
	return now.Format(goLayout)
}

// writeTempPasswordFile writes password's plaintext to a private temp
// file, per spec §4.7's Lifetime rule: owned by the caller for exactly
// long enough to write it, zeroed immediately after.
func (e *Engine) writeTempPasswordFile(password *secret.String) (path string, inUse bool, err error) {
	if password == nil {
		return "", false, nil
	}
	defer password.Zero()

	f, err := os.CreateTemp("", "poshbackup-pw-*.tmp")
	if err != nil {
		return "", false, fmt.Errorf("creating temp password file: %w", err)
	}
	defer f.Close()

	if err := os.Chmod(f.Name(), 0o600); err != nil {
		e.Log.Info("failed to set restrictive permissions on temp password file", "path", f.Name())
	}

	if _, err := f.WriteString(password.Expose()); err != nil {
		os.Remove(f.Name())
		return "", false, fmt.Errorf("writing temp password file: %w", err)
	}
	return f.Name(), true, nil
}

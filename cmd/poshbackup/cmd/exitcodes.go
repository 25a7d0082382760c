package cmd

import (
	"errors"

	"github.com/BootBlock/poshbackup/internal/errs"
	"github.com/BootBlock/poshbackup/internal/jobengine"
	"github.com/BootBlock/poshbackup/internal/sevenzip"
)

// Process exit codes, per spec.md §6's CLI surface.
const (
	exitSuccess                  = 0
	exitWarnings                 = 10
	exitVerificationFailure      = 14
	exitArchiveManagementFailure = 15
	exitMissingCLIArgs           = 16
	exitUpdateSubsystemMissing   = 50
	exitOther                    = 1
)

// lastExitCode is set by whichever subcommand ran and read back by
// Execute after rootCmd.Execute returns nil.
var lastExitCode = exitSuccess

// classifyReport maps one job's terminal Report to a process exit code.
func classifyReport(r *jobengine.Report) int {
	switch r.Status {
	case jobengine.StatusSuccess, jobengine.StatusSimulatedComplete, jobengine.StatusSkipped:
		return exitSuccess
	case jobengine.StatusWarnings:
		return exitWarnings
	case jobengine.StatusFailure:
		return classifyFailure(r)
	default:
		return exitOther
	}
}

// classifyFailure distinguishes the failure sub-codes spec §6 names:
// verification failure (14) and archive-management precondition failure
// (15, i.e. an unusable source or snapshot/VSS session) from any other
// fatal configuration or engine error.
func classifyFailure(r *jobengine.Report) int {
	if r.TestOutcome == sevenzip.TestFailed {
		return exitVerificationFailure
	}

	var testErr *errs.TestError
	if errors.As(r.Err, &testErr) {
		return exitVerificationFailure
	}

	var sourceErr *errs.SourceError
	var snapshotErr *errs.SnapshotError
	var vssErr *errs.VssError
	if errors.As(r.Err, &sourceErr) || errors.As(r.Err, &snapshotErr) || errors.As(r.Err, &vssErr) {
		return exitArchiveManagementFailure
	}

	return exitOther
}

// classifySetStatus maps a set's aggregate status to a process exit code
// when no single report's Err is available to classify further.
func classifySetStatus(status jobengine.Status) int {
	switch status {
	case jobengine.StatusSuccess, jobengine.StatusSimulatedComplete, jobengine.StatusSkipped:
		return exitSuccess
	case jobengine.StatusWarnings:
		return exitWarnings
	default:
		return exitOther
	}
}

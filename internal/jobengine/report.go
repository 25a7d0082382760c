// Package jobengine implements JobPreProcessor, JobPostProcessor and
// ResourceReaper (spec §4.9, §4.5-4.8, §9): the orchestrator that drives
// every other component through one job's pre-processing, 7-Zip
// invocation, post-processing, and guaranteed resource release.
package jobengine

import (
	"time"

	"github.com/BootBlock/poshbackup/internal/hook"
	"github.com/BootBlock/poshbackup/internal/sevenzip"
)

// Status is the final outcome of a single job run, per spec §7.
type Status string

const (
	StatusSuccess           Status = "SUCCESS"
	StatusWarnings          Status = "WARNINGS"
	StatusFailure           Status = "FAILURE"
	StatusSimulatedComplete Status = "SIMULATED_COMPLETE"
	StatusSkipped           Status = "SKIPPED"
)

// TargetTransferResult records one remote-target provider's outcome for
// the report.
type TargetTransferResult struct {
	TargetName string
	TargetType string
	Success    bool
	Message    string
	Duration   time.Duration
}

// RetentionAction records one retention decision taken against a target or
// the local staging directory.
type RetentionAction struct {
	Location string
	Kept     int
	Removed  []string
}

// Report accumulates every observable of a single job run, per the
// JobReport record in spec §3.
type Report struct {
	JobName           string
	StartedAt         time.Time
	FinishedAt        time.Time
	Status            Status
	Message           string
	// Err is the underlying typed error (see internal/errs) behind a
	// FAILURE status, if any. It is not rendered into JSON/console
	// reports; callers use it only to classify a process exit code.
	Err error
	EffectiveSources  []string
	PasswordSource    string
	VSSUsed           bool
	VSSShadowCount    int
	SnapshotUsed      bool
	SnapshotSessionID string
	ArchivePath       string
	Invocation        sevenzip.Result
	TestOutcome       sevenzip.TestOutcome
	Checksum          string
	ChecksumAlgorithm string
	RetentionActions  []RetentionAction
	TargetResults     []TargetTransferResult
	HookResults       []hook.Record
	ReportGeneratorTypes []string
}

// NewReport starts a report for jobName at the current instant. now is
// passed in rather than taken from time.Now() so callers stay testable.
func NewReport(jobName string, now time.Time) *Report {
	return &Report{JobName: jobName, StartedAt: now}
}

// Finish stamps the report's terminal status, message, and end time.
func (r *Report) Finish(status Status, message string, now time.Time) {
	r.Status = status
	r.Message = message
	r.FinishedAt = now
}

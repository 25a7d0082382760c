package sevenzip

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/errs"
	"github.com/BootBlock/poshbackup/internal/metrics"
)

// InvocationInput is the full set of parameters SevenZipInvoker.Run needs,
// per spec §4.3's contract.
type InvocationInput struct {
	ExePath                string
	ArgTokens              []string
	Priority               config.SevenZipPriority
	CPUAffinity            string
	HideOutput             bool
	Simulate               bool
	MaxRetries             int
	RetryDelaySeconds      int
	EnableRetries          bool
	TreatWarningsAsSuccess bool
}

// Result carries the raw 7-Zip exit code of the last attempt, or
// errs.ExitLaunchFailed when the process could not be started.
type Result struct {
	ExitCode     int
	Elapsed      time.Duration
	AttemptsMade int
}

// NumLogicalProcessors is overridable for tests; defaults to
// runtime.NumCPU().
var NumLogicalProcessors = runtime.NumCPU

// Launcher abstracts process start/wait so tests can substitute a fake
// child process without actually spawning 7-Zip.
type Launcher interface {
	Launch(ctx context.Context, exePath string, args []string, captureStdout bool) (cmd *exec.Cmd, stdout, stderr *bytes.Buffer, err error)
}

// execLauncher is the real Launcher, grounded on
// diggerhq-opencomputer/internal/podman/client.go's os/exec + bytes.Buffer
// capture pattern.
type execLauncher struct{}

func (execLauncher) Launch(ctx context.Context, exePath string, args []string, captureStdout bool) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer, error) {
	cmd := exec.CommandContext(ctx, exePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	if captureStdout {
		cmd.Stdout = &stdout
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return cmd, &stdout, &stderr, nil
}

// Invoker runs 7-Zip with configured priority, affinity, retry, and
// observability discipline, per spec §4.3.
type Invoker struct {
	Log      logr.Logger
	Launcher Launcher

	// ApplyPriority and ApplyAffinity set the spawned process's priority
	// class and CPU affinity mask after Start, returning an error if the OS
	// refused. They are no-ops returning nil on platforms without the
	// concept (e.g. when cross-compiled for tests on non-Windows hosts).
	ApplyPriority func(cmd *exec.Cmd, priority config.SevenZipPriority) error
	ApplyAffinity func(cmd *exec.Cmd, mask uint64) error
}

// NewInvoker returns an Invoker using the real process launcher and the
// platform's priority/affinity implementation (Win32 APIs on Windows,
// no-ops elsewhere; see priority_windows.go/priority_other.go).
func NewInvoker(log logr.Logger) *Invoker {
	return &Invoker{
		Log:           log,
		Launcher:      execLauncher{},
		ApplyPriority: platformApplyPriority(),
		ApplyAffinity: platformApplyAffinity(),
	}
}

func applyPriorityNoop(cmd *exec.Cmd, priority config.SevenZipPriority) error { return nil }
func applyAffinityNoop(cmd *exec.Cmd, mask uint64) error                      { return nil }

// QuoteArgs joins tokens into a single display command line: a token
// containing whitespace that isn't already quoted is wrapped in double
// quotes, per spec §4.3's quoting rule. This is for logging only; the
// actual child process receives args unjoined via exec.Cmd.
func QuoteArgs(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		if strings.ContainsAny(t, " \t") && !strings.HasPrefix(t, `"`) {
			parts[i] = `"` + t + `"`
		} else {
			parts[i] = t
		}
	}
	return strings.Join(parts, " ")
}

// ParseCPUAffinity implements spec §4.3's CPU-affinity parsing: hex
// bitmask or comma-separated decimal core list, clamped to the discovered
// logical processor count. Returns the effective mask and whether it was
// clamped/adjusted from the input.
func ParseCPUAffinity(raw string, numProcessors int) (mask uint64, clamped bool, reason string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, ""
	}
	full := uint64(1)<<uint(numProcessors) - 1

	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		userMask, err := strconv.ParseUint(raw[2:], 16, 64)
		if err != nil {
			return 0, true, fmt.Sprintf("unparsable hex affinity %q, ignoring", raw)
		}
		effective := userMask & full
		if effective != userMask {
			return effective, true, fmt.Sprintf("affinity mask 0x%x clamped to 0x%x for %d logical processors", userMask, effective, numProcessors)
		}
		return effective, false, ""
	}

	parts := strings.Split(raw, ",")
	var effective uint64
	var dropped []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 || idx >= numProcessors {
			dropped = append(dropped, p)
			continue
		}
		effective |= 1 << uint(idx)
	}
	if len(dropped) > 0 {
		return effective, true, fmt.Sprintf("dropped out-of-range or unparsable core indices: %s", strings.Join(dropped, ", "))
	}
	return effective, false, ""
}

// Run launches 7-Zip per in, retrying on the exit-code taxonomy documented
// in spec §4.3, and returns the engine's own Result.
func (inv *Invoker) Run(ctx context.Context, in InvocationInput) (Result, error) {
	if in.Simulate {
		inv.Log.Info("simulate: would run 7-Zip", "command", in.ExePath+" "+QuoteArgs(in.ArgTokens))
		return Result{ExitCode: 0, Elapsed: 0, AttemptsMade: 1}, nil
	}

	numProcessors := NumLogicalProcessors()
	var affinityMask uint64
	if in.CPUAffinity != "" {
		mask, clamped, reason := ParseCPUAffinity(in.CPUAffinity, numProcessors)
		affinityMask = mask
		inv.Log.Info("resolved CPU affinity", "raw", in.CPUAffinity, "effectiveMask", affinityMask, "clamped", clamped, "reason", reason)
	}

	actualMaxTries := 1
	if in.EnableRetries {
		actualMaxTries = in.MaxRetries
		if actualMaxTries < 1 {
			actualMaxTries = 1
		}
	}

	var total time.Duration
	var lastExit int
	for attempt := 1; attempt <= actualMaxTries; attempt++ {
		start := time.Now()
		exitCode, stdout, stderr, err := inv.runOnce(ctx, in, affinityMask)
		elapsed := time.Since(start)
		total += elapsed
		lastExit = exitCode

		metrics.SevenZipExitCode.WithLabelValues("job").Set(float64(exitCode))

		if err != nil {
			metrics.SevenZipAttempts.WithLabelValues("job", "launch_failed").Inc()
			return Result{ExitCode: errs.ExitLaunchFailed, Elapsed: total, AttemptsMade: attempt}, &errs.SevenZipError{Kind: errs.SevenZipLaunchFailed, Message: err.Error(), Err: err}
		}

		accepted := exitCode == 0 || (exitCode == 1 && in.TreatWarningsAsSuccess)
		inv.emitObservability(in, exitCode, accepted, stdout, stderr)

		if accepted {
			metrics.SevenZipAttempts.WithLabelValues("job", "success").Inc()
			return Result{ExitCode: exitCode, Elapsed: total, AttemptsMade: attempt}, nil
		}

		metrics.SevenZipAttempts.WithLabelValues("job", "retryable_failure").Inc()
		if attempt < actualMaxTries && in.RetryDelaySeconds > 0 {
			select {
			case <-ctx.Done():
				return Result{ExitCode: lastExit, Elapsed: total, AttemptsMade: attempt}, ctx.Err()
			case <-time.After(time.Duration(in.RetryDelaySeconds) * time.Second):
			}
		}
	}

	return Result{ExitCode: lastExit, Elapsed: total, AttemptsMade: actualMaxTries},
		&errs.SevenZipError{Kind: errs.SevenZipNonZeroExit, ExitCode: lastExit, Attempts: actualMaxTries, Message: "7-Zip did not succeed after all retry attempts"}
}

func (inv *Invoker) runOnce(ctx context.Context, in InvocationInput, affinityMask uint64) (exitCode int, stdout, stderr *bytes.Buffer, err error) {
	cmd, stdoutBuf, stderrBuf, launchErr := inv.Launcher.Launch(ctx, in.ExePath, in.ArgTokens, in.HideOutput)
	if launchErr != nil {
		return errs.ExitLaunchFailed, nil, nil, launchErr
	}

	if err := inv.ApplyPriority(cmd, in.Priority); err != nil {
		inv.Log.Info("failed to set 7-Zip process priority after start, continuing", "error", err.Error())
	}
	if affinityMask != 0 {
		if err := inv.ApplyAffinity(cmd, affinityMask); err != nil {
			inv.Log.Info("failed to set 7-Zip process CPU affinity after start, continuing", "error", err.Error())
		}
	}

	waitErr := cmd.Wait()
	code := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			return 0, stdoutBuf, stderrBuf, waitErr
		}
	}
	return code, stdoutBuf, stderrBuf, nil
}

func (inv *Invoker) emitObservability(in InvocationInput, exitCode int, accepted bool, stdout, stderr *bytes.Buffer) {
	if !in.HideOutput {
		return
	}
	if stderr != nil {
		for _, line := range strings.Split(strings.TrimRight(stderr.String(), "\n"), "\n") {
			if line == "" {
				continue
			}
			if accepted {
				inv.Log.Info("7-Zip stderr", "line", line, "exitCode", exitCode)
			} else {
				inv.Log.Error(fmt.Errorf("7-Zip stderr"), line, "exitCode", exitCode)
			}
		}
	}
	if stdout != nil {
		for _, line := range strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n") {
			if line == "" {
				continue
			}
			inv.Log.V(1).Info("7-Zip stdout", "line", line)
		}
	}
}

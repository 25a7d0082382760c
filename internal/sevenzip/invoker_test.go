package sevenzip

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/go-logr/logr"
)

// fakeLauncher replays a scripted sequence of exit codes without spawning
// any real process, grounded on the teacher's preference for small,
// dependency-free fakes in its _test.go files.
type fakeLauncher struct {
	exitCodes []int
	calls     int
}

func (f *fakeLauncher) Launch(ctx context.Context, exePath string, args []string, captureStdout bool) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer, error) {
	idx := f.calls
	f.calls++
	code := 0
	if idx < len(f.exitCodes) {
		code = f.exitCodes[idx]
	}
	// sh -c "exit N" gives us a real *exec.Cmd whose Wait() reports the
	// scripted exit code, without needing 7z.exe on the test host.
	cmd := exec.CommandContext(ctx, "sh", "-c", "exit "+itoaTest(code))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return cmd, &stdout, &stderr, nil
}

func itoaTest(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

func newTestInvoker(codes []int) (*Invoker, *fakeLauncher) {
	fl := &fakeLauncher{exitCodes: codes}
	return &Invoker{
		Log:           logr.Discard(),
		Launcher:      fl,
		ApplyPriority: applyPriorityNoop,
		ApplyAffinity: applyAffinityNoop,
	}, fl
}

func TestRunSimulateNeverSpawns(t *testing.T) {
	inv, fl := newTestInvoker(nil)
	result, err := inv.Run(context.Background(), InvocationInput{Simulate: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if fl.calls != 0 {
		t.Errorf("expected simulate mode to spawn nothing, got %d calls", fl.calls)
	}
	if result.ExitCode != 0 || result.AttemptsMade != 1 {
		t.Errorf("expected {0, _, 1}, got %+v", result)
	}
}

func TestRunSuccessOnFirstAttempt(t *testing.T) {
	inv, _ := newTestInvoker([]int{0})
	result, err := inv.Run(context.Background(), InvocationInput{EnableRetries: true, MaxRetries: 3})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.ExitCode != 0 || result.AttemptsMade != 1 {
		t.Errorf("expected {0, _, 1}, got %+v", result)
	}
}

func TestRunRetriesExactlyRTimesOnPersistentFailure(t *testing.T) {
	inv, fl := newTestInvoker([]int{1, 1, 1})
	result, err := inv.Run(context.Background(), InvocationInput{
		EnableRetries:          true,
		MaxRetries:             3,
		RetryDelaySeconds:      0,
		TreatWarningsAsSuccess: false,
	})
	if err == nil {
		t.Fatal("expected an error after exhausting all retries")
	}
	if result.AttemptsMade != 3 {
		t.Errorf("expected attemptsMade=3, got %d", result.AttemptsMade)
	}
	if fl.calls != 3 {
		t.Errorf("expected exactly 3 launch calls, got %d", fl.calls)
	}
}

func TestRunWarningsAsSuccess(t *testing.T) {
	inv, _ := newTestInvoker([]int{1})
	result, err := inv.Run(context.Background(), InvocationInput{
		EnableRetries:          true,
		MaxRetries:             3,
		TreatWarningsAsSuccess: true,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.AttemptsMade != 1 {
		t.Errorf("expected attemptsMade=1 for an accepted warning, got %d", result.AttemptsMade)
	}
}

func TestRunWithoutRetriesEnabledTriesOnce(t *testing.T) {
	inv, fl := newTestInvoker([]int{1, 1, 1})
	_, err := inv.Run(context.Background(), InvocationInput{EnableRetries: false, MaxRetries: 5})
	if err == nil {
		t.Fatal("expected an error")
	}
	if fl.calls != 1 {
		t.Errorf("expected actualMaxTries=1 when EnableRetries=false, got %d calls", fl.calls)
	}
}

func TestParseCPUAffinityHexClamp(t *testing.T) {
	mask, clamped, _ := ParseCPUAffinity("0xFF", 4)
	if mask != 0x0F {
		t.Errorf("expected mask 0x0F for 4 processors, got 0x%x", mask)
	}
	if !clamped {
		t.Error("expected clamped=true when the mask exceeds the processor count")
	}
}

func TestParseCPUAffinityHexNoClampNeeded(t *testing.T) {
	mask, clamped, _ := ParseCPUAffinity("0x03", 4)
	if mask != 0x03 {
		t.Errorf("expected mask 0x03, got 0x%x", mask)
	}
	if clamped {
		t.Error("expected clamped=false when the mask already fits")
	}
}

func TestParseCPUAffinityDecimalList(t *testing.T) {
	mask, clamped, _ := ParseCPUAffinity("0,2", 4)
	if mask != 0b0101 {
		t.Errorf("expected mask 0b0101, got 0b%b", mask)
	}
	if clamped {
		t.Error("expected clamped=false for an in-range core list")
	}
}

func TestParseCPUAffinityDecimalListDropsOutOfRange(t *testing.T) {
	mask, clamped, reason := ParseCPUAffinity("0,99,abc", 4)
	if mask != 0b0001 {
		t.Errorf("expected mask 0b0001 after dropping invalid entries, got 0b%b", mask)
	}
	if !clamped {
		t.Error("expected clamped=true when entries are dropped")
	}
	if reason == "" {
		t.Error("expected a logged reason for the dropped entries")
	}
}

func TestParseCPUAffinityEmptyMeansNoAffinity(t *testing.T) {
	mask, clamped, _ := ParseCPUAffinity("", 4)
	if mask != 0 || clamped {
		t.Errorf("expected {0, false} for empty input, got {%d, %v}", mask, clamped)
	}
}

func TestQuoteArgsWrapsWhitespace(t *testing.T) {
	got := QuoteArgs([]string{"a", `C:\My Data\file.7z`, "-mx=5"})
	want := `a "C:\My Data\file.7z" -mx=5`
	if got != want {
		t.Errorf("QuoteArgs() = %q, want %q", got, want)
	}
}

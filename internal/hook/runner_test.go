package hook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hook.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestRunMissingScriptIsNotFoundNotFatal(t *testing.T) {
	r := New(logr.Discard())
	rec := r.Run(context.Background(), "pre-backup", "", Args{})
	if rec.Status != StatusNotFound {
		t.Errorf("expected NotFound, got %v", rec.Status)
	}
}

func TestRunSuccessExitZero(t *testing.T) {
	path := writeScript(t, "exit 0\n")
	r := New(logr.Discard())
	rec := r.Run(context.Background(), "pre-backup", path, Args{JobName: "DataBackup"})
	if rec.Status != StatusSuccess {
		t.Errorf("expected Success, got %v", rec.Status)
	}
}

func TestRunNonZeroExitIsFailure(t *testing.T) {
	path := writeScript(t, "exit 3\n")
	r := New(logr.Discard())
	rec := r.Run(context.Background(), "pre-backup", path, Args{})
	if rec.Status != StatusFailure {
		t.Errorf("expected Failure, got %v", rec.Status)
	}
	if rec.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", rec.ExitCode)
	}
}

func TestRunStderrWithoutBadExitIsWarning(t *testing.T) {
	path := writeScript(t, "echo oops 1>&2\nexit 0\n")
	r := New(logr.Discard())
	rec := r.Run(context.Background(), "pre-backup", path, Args{})
	if rec.Status != StatusWarning {
		t.Errorf("expected Warning, got %v", rec.Status)
	}
}
